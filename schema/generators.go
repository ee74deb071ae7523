package schema

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces client-side primary key values.
type IDGenerator interface {
	Generate() (any, error)
	Type() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) Generate() (any, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id, nil
}

func (UUIDGenerator) Type() string { return "uuid" }

// ULIDGenerator yields monotonic ULIDs. The entropy source is not safe for
// concurrent use, so it is guarded.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGenerator) Generate() (any, error) {
	g.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id, nil
}

func (g *ULIDGenerator) Type() string { return "ulid" }

// SnowflakeGenerator yields 64-bit ids: 41 bits time | 10 bits machine | 12 bits sequence.
type SnowflakeGenerator struct {
	mu        sync.Mutex
	machineID uint64
	sequence  uint64
	lastTime  uint64
	epoch     uint64
}

func NewSnowflakeGenerator(machineID uint64) *SnowflakeGenerator {
	return &SnowflakeGenerator{
		machineID: machineID & 0x3FF,
		epoch:     uint64(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()),
	}
}

func (g *SnowflakeGenerator) Generate() (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := uint64(time.Now().UnixMilli())
	if now < g.lastTime {
		return nil, fmt.Errorf("snowflake: clock moved backwards")
	}
	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & 0xFFF
		if g.sequence == 0 {
			for now <= g.lastTime {
				now = uint64(time.Now().UnixMilli())
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now
	return int64(((now - g.epoch) << 22) | (g.machineID << 12) | g.sequence), nil
}

func (g *SnowflakeGenerator) Type() string { return "snowflake" }

// GeneratorRegistry resolves generator names from `generator:` tags.
type GeneratorRegistry struct {
	mu         sync.RWMutex
	generators map[string]IDGenerator
}

var defaultGenerators = NewGeneratorRegistry()

func NewGeneratorRegistry() *GeneratorRegistry {
	r := &GeneratorRegistry{generators: make(map[string]IDGenerator)}
	r.Register("uuid", UUIDGenerator{})
	r.Register("ulid", NewULIDGenerator())
	r.Register("snowflake", NewSnowflakeGenerator(1))
	return r
}

func (r *GeneratorRegistry) Register(name string, g IDGenerator) {
	r.mu.Lock()
	r.generators[name] = g
	r.mu.Unlock()
}

func (r *GeneratorRegistry) Get(name string) (IDGenerator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

func (r *GeneratorRegistry) Generate(name string) (any, error) {
	g, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown generator type: %s", name)
	}
	return g.Generate()
}

func RegisterGenerator(name string, g IDGenerator) {
	defaultGenerators.Register(name, g)
}

func GenerateID(name string) (any, error) {
	return defaultGenerators.Generate(name)
}

// AssignGeneratedIDs fills every empty generated member of a new record.
// It runs as a pre-action before the record's values are bound.
func AssignGeneratedIDs(rec *EntityRecord) error {
	for _, m := range rec.Entity.Members {
		if m.Generator == "" || !isZero(rec.Values[m.Index]) {
			continue
		}
		id, err := GenerateID(m.Generator)
		if err != nil {
			return fmt.Errorf("schema: %s.%s: %w", rec.Entity.Name, m.Name, err)
		}
		if err := rec.Assign(m, id); err != nil {
			return err
		}
	}
	return nil
}

// HasGeneratedMembers reports whether AssignGeneratedIDs has work to do.
func (e *EntityInfo) HasGeneratedMembers() bool {
	for _, m := range e.Members {
		if m.Generator != "" {
			return true
		}
	}
	return false
}
