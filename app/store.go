package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sprintertech/sprinter-treasury/config"
	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/sprintertech/sprinter-treasury/store/lvldb"
	"github.com/sprintertech/sprinter-treasury/store/memory"
	"github.com/sprintertech/sprinter-treasury/store/postgres"
	"github.com/sprintertech/sprinter-treasury/store/postgres/migrations"
)

// NewStore opens the treasury store selected by the configuration. Postgres
// schemas are migrated before the store is returned.
func NewStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case config.MemoryStore:
		log.Warn().Msg("Using in-memory store, replay markers and balances are lost on restart")
		return memory.NewMemoryStore(), nil
	case config.LvlDBStore:
		s, err := lvldb.NewLvlDBStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.PostgresStore:
		db, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		err = migrations.Apply(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed migrating treasury schema: %w", err)
		}
		return postgres.NewPostgresStore(db, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("type '%s' not recognized", cfg.Type)
	}
}
