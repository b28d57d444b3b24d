package store

import (
	"context"
	"errors"
	"strings"
)

const (
	EngineJSON     = "json"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// NewByEngine opens the store for engine. target is a file path for the json
// and sqlite engines and a connection string for postgres.
func NewByEngine(ctx context.Context, engine string, target string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		return NewSQLiteStore(target)
	case EngineJSON:
		return NewJSONStore(target)
	case EnginePostgres:
		return NewPostgresStore(ctx, target)
	default:
		return nil, errors.New("unsupported store engine: " + engine)
	}
}
