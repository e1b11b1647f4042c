package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"auctionload/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The source is a local directory and the warehouse a local SQLite file, so
// the result validates without credentials.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Source.Kind = config.SourceLocal
	cfgVal.Source.Dir = filepath.Join(base, "inbox")
	cfgVal.Warehouse.Kind = config.WarehouseSQLite
	cfgVal.Warehouse.SQLitePath = filepath.Join(base, "data", "warehouse.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithThreshold overrides the filter threshold.
func WithThreshold(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Filter.Threshold = n
	}
}

// WithMaxFiles caps the number of candidates per run.
func WithMaxFiles(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.MaxFiles = n
	}
}

// WithoutSweep disables the stale artifact sweep.
func WithoutSweep() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.SweepStale = false
	}
}

// WithLoadEmpty makes runs write and load outputs that have no rows.
func WithLoadEmpty() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.LoadEmpty = true
	}
}

// WithInboxFile writes name with content into the local source directory.
func WithInboxFile(name, content string) ConfigOption {
	return func(b *configBuilder) {
		dir := b.cfg.Source.Dir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir inbox: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			b.t.Fatalf("write inbox file %s: %v", name, err)
		}
	}
}
