package fx

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/docrag/docrag/internal/constants"
	"github.com/docrag/docrag/internal/storage"
	"github.com/docrag/docrag/internal/storage/memory"
	"github.com/docrag/docrag/internal/storage/sqlite"
	"github.com/docrag/docrag/internal/storage/sqlvec"
)

// StorageParams represents dependencies for storage components
type StorageParams struct {
	fx.In

	Config *Config
}

// NewChunkStore creates the chunk store for the configured backend
func NewChunkStore(params StorageParams, lc fx.Lifecycle) (storage.ChunkStore, error) {
	store, err := openStore(params.Config)
	if err != nil {
		return nil, err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		lc.Append(fx.StopHook(closer.Close))
	}
	return store, nil
}

func openStore(config *Config) (storage.ChunkStore, error) {
	switch config.Backend {
	case constants.BackendMemory:
		return memory.New(), nil
	case constants.BackendSqlite:
		if config.DBPath == "" {
			return nil, fmt.Errorf("database path must be specified")
		}
		return sqlite.New(config.DBPath, config.Dimension)
	case constants.BackendSqlvec:
		if config.DBPath == "" {
			return nil, fmt.Errorf("database path must be specified")
		}
		return sqlvec.New(config.DBPath, config.Dimension)
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.Backend)
	}
}

// StorageModule provides storage components
var StorageModule = fx.Module("storage",
	fx.Provide(NewChunkStore),
)
