package dialect

// TiDB speaks the MySQL protocol. Its transactions are size limited, so
// multi-row inserts are kept smaller.
type TiDB struct {
	*MySQL
}

func NewTiDBDialect() Dialect {
	return &TiDB{
		MySQL: NewMySQLDialect().(*MySQL),
	}
}

func (t *TiDB) Name() string { return "tidb" }

func (t *TiDB) MaxRecordsInInsertMany() int { return 256 }

func (t *TiDB) SupportsVector() bool {
	return true
}
