package connector

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/sqlcore/dialect"
)

var globalManager = &Manager{
	providers: make(map[string]Provider),
}

// Manager is the registry of providers by driver name.
type Manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

func init() {
	Register("postgres", postgresProvider{})
	Register("postgresql", postgresProvider{})
	Register("pgx", postgresProvider{})
	Register("mysql", sqlProvider{dialect: dialect.NewMySQLDialect(), driver: "mysql", dsn: mysqlDSN, multiStatements: true})
	Register("tidb", sqlProvider{dialect: dialect.NewTiDBDialect(), driver: "mysql", dsn: mysqlDSN, multiStatements: true})
	Register("sqlite", sqlProvider{dialect: dialect.NewSQLiteDialect(), driver: "sqlite", dsn: sqliteDSN, singleConn: true})
	Register("sqlite3", sqlProvider{dialect: dialect.NewSQLiteDialect(), driver: "sqlite", dsn: sqliteDSN, singleConn: true})
}

// Register makes a provider available to Open under name.
func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[strings.ToLower(name)] = provider
}

func lookup(name string) (Provider, error) {
	globalManager.mu.RLock()
	provider, ok := globalManager.providers[strings.ToLower(name)]
	globalManager.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector: provider %s not registered", name)
	}
	return provider, nil
}
