package repository

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/config"
)

// Open builds the store selected by configuration
func Open(ctx context.Context, cfg config.Repository) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite, config.DriverPostgres:
		return OpenSQL(ctx, cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown repository driver: %s", cfg.Driver)
	}
}
