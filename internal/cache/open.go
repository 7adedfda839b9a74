package cache

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/config"
)

// Open selects and opens the configured cache backend.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Path, cfg.BusyTimeout)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("cache: postgres driver requires cache.database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
