package vector

import (
	"fmt"

	"go.uber.org/zap"
)

// BackendType selects the dense-index backend.
type BackendType string

const (
	// BackendMemory is the exact in-memory reference store. Good for
	// single-process corpora up to tens of thousands of vectors.
	BackendMemory BackendType = "memory"
	// BackendSQLite persists chunks and embeddings in SQLite.
	BackendSQLite BackendType = "sqlite"
)

// Config holds backend selection and sizing for the dense index.
type Config struct {
	Backend      string `yaml:"backend"`
	Dimensions   int    `yaml:"dimensions"`
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
}

// NewStore creates the dense-index backend named by cfg.Backend.
func NewStore(cfg Config, logger *zap.Logger) (Store, error) {
	switch BackendType(cfg.Backend) {
	case BackendMemory, "":
		return NewMemoryStore(cfg.Dimensions, logger)
	case BackendSQLite:
		return NewSQLiteStore(cfg.DatabasePath, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, sqlite)", cfg.Backend)
	}
}
