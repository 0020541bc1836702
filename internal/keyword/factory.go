package keyword

import (
	"fmt"

	"go.uber.org/zap"
)

// BackendType selects the lexical-index backend.
type BackendType string

const (
	// BackendMemory is the exact in-memory BM25 index.
	BackendMemory BackendType = "memory"
	// BackendBleve persists the index on disk via bleve.
	BackendBleve BackendType = "bleve"
)

// Config holds backend selection and BM25 tuning for the lexical index.
type Config struct {
	Backend   string  `yaml:"backend"`
	IndexPath string  `yaml:"index_path"`
	K1        float64 `yaml:"k1"`
	B         float64 `yaml:"b"`
}

// NewIndex creates the lexical-index backend named by cfg.Backend.
func NewIndex(cfg Config, logger *zap.Logger) (Index, error) {
	switch BackendType(cfg.Backend) {
	case BackendMemory, "":
		return NewBM25Index(WithParameters(cfg.K1, cfg.B), WithBM25Logger(logger)), nil
	case BackendBleve:
		if cfg.IndexPath == "" {
			return nil, fmt.Errorf("bleve backend requires index_path")
		}
		return NewBleveIndex(cfg.IndexPath)
	default:
		return nil, fmt.Errorf("unknown keyword backend: %s (supported: memory, bleve)", cfg.Backend)
	}
}
