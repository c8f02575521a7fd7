package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lcrostarosa/lastword/internal/logging"
)

// Backend names
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = DialectSQLite
	BackendPostgres = DialectPostgres
	BackendNATS     = "nats"
)

// Config selects and configures a state store backend
type Config struct {
	Backend   string `json:"backend" yaml:"backend"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`             // file, sqlite
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`               // redis, nats, postgres DSN
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"` // redis
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`         // nats

	// Fallback opts in to an in-memory store when the backend cannot be
	// opened. State then does not survive a restart and health reports Degraded.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Open creates the configured store. dataDir resolves relative paths.
func Open(ctx context.Context, cfg Config, dataDir string) (Store, error) {
	store, err := open(ctx, cfg, dataDir)
	if err == nil {
		logging.Info("State store opened", logging.String("backend", store.Backend()))
		return store, nil
	}

	if !cfg.Fallback {
		return nil, err
	}

	logging.Warn("State store unavailable, falling back to memory",
		logging.String("backend", cfg.Backend),
		logging.Err(err))
	return NewDegraded(NewMemoryStore(), cfg.Backend, err), nil
}

func open(ctx context.Context, cfg Config, dataDir string) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(resolvePath(cfg.Path, dataDir, "state.json"))
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(resolvePath(cfg.Path, dataDir, "state.db"))
	case BackendPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres store requires url")
		}
		return OpenPostgres(cfg.URL)
	case BackendRedis:
		if cfg.URL == "" {
			return nil, fmt.Errorf("redis store requires url")
		}
		return NewRedisStore(ctx, cfg.URL, cfg.KeyPrefix)
	case BackendNATS:
		if cfg.URL == "" {
			return nil, fmt.Errorf("nats store requires url")
		}
		return NewNATSStore(ctx, cfg.URL, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func resolvePath(path, dataDir, def string) string {
	if path == "" {
		path = def
	}
	if filepath.IsAbs(path) || dataDir == "" {
		return path
	}
	return filepath.Join(dataDir, path)
}
