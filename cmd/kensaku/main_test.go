package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single arg", []string{"query"}, "query"},
		{"multi word", []string{"machine", "learning"}, "machine learning"},
		{"quoted as one", []string{"machine learning"}, "machine learning"},
		{"trims", []string{" padded "}, "padded"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.want {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1234\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %s, want %s", resolved, path)
	}
	if cfg.Server.Port != 1234 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestInitializeComponents_Defaults(t *testing.T) {
	var cfg config.Config
	config.ApplyDefaults(&cfg)

	comps, err := initializeComponents(&cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer comps.Close()
	if comps.Retriever == nil || comps.VectorStore == nil || comps.KeywordIdx == nil || comps.Cache == nil {
		t.Error("components missing from default stack")
	}
}

func TestInitializeComponents_UnknownBackend(t *testing.T) {
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Vector.Backend = "faiss"
	if _, err := initializeComponents(&cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
