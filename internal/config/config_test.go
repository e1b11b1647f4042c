package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"auctionload/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	t.Setenv("AUCTIONLOAD_FOLDER_ID", "folder-123")
	t.Setenv("AUCTIONLOAD_PROJECT_ID", "proj")
	t.Setenv("AUCTIONLOAD_DATASET_ID", "ds")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "auctionload")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Source.FolderID != "folder-123" {
		t.Fatalf("expected folder id from env, got %q", cfg.Source.FolderID)
	}
	if cfg.Warehouse.ProjectID != "proj" || cfg.Warehouse.DatasetID != "ds" {
		t.Fatalf("expected warehouse ids from env, got %q/%q", cfg.Warehouse.ProjectID, cfg.Warehouse.DatasetID)
	}
	if cfg.Filter.Threshold != 100 || cfg.Filter.KeyColumn != 1 || cfg.Filter.HeaderLines != 3 {
		t.Fatalf("unexpected filter defaults: %+v", cfg.Filter)
	}
	if cfg.Naming.OutputPrefix != "__AU_" || cfg.Naming.ConsumedPrefix != "___DEL__" {
		t.Fatalf("unexpected naming defaults: %+v", cfg.Naming)
	}
	if cfg.Warehouse.SQLitePath != filepath.Join(wantData, "warehouse.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Warehouse.SQLitePath)
	}
	if !cfg.Run.SweepStale {
		t.Fatal("expected stale sweep enabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if filepath.Dir(cfg.LedgerPath()) != cfg.Paths.DataDir {
		t.Fatalf("ledger path outside data dir: %q", cfg.LedgerPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "auctionload.toml")
	sourceDir := filepath.Join(tempDir, "inbox")

	type payload struct {
		Source struct {
			Kind string `toml:"kind"`
			Dir  string `toml:"dir"`
		} `toml:"source"`
		Warehouse struct {
			Kind string `toml:"kind"`
		} `toml:"warehouse"`
		Filter struct {
			Threshold int `toml:"threshold"`
		} `toml:"filter"`
		Run struct {
			MaxFiles int `toml:"max_files"`
		} `toml:"run"`
	}
	custom := payload{}
	custom.Source.Kind = "LOCAL"
	custom.Source.Dir = sourceDir
	custom.Warehouse.Kind = "sqlite"
	custom.Filter.Threshold = 5
	custom.Run.MaxFiles = 1
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Source.Kind != config.SourceLocal {
		t.Fatalf("expected normalized local kind, got %q", cfg.Source.Kind)
	}
	if cfg.Source.Dir != sourceDir {
		t.Fatalf("unexpected source dir %q", cfg.Source.Dir)
	}
	if cfg.Warehouse.Kind != config.WarehouseSQLite {
		t.Fatalf("expected sqlite warehouse, got %q", cfg.Warehouse.Kind)
	}
	if cfg.Filter.Threshold != 5 {
		t.Fatalf("expected threshold 5, got %d", cfg.Filter.Threshold)
	}
	if cfg.Filter.HeaderLines != 3 {
		t.Fatalf("expected default header lines to survive partial file, got %d", cfg.Filter.HeaderLines)
	}
	if cfg.Run.MaxFiles != 1 {
		t.Fatalf("expected max files 1, got %d", cfg.Run.MaxFiles)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "auctionload.toml")
	if err := os.WriteFile(configPath, []byte("[filter]\nthreshhold = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_drive_folder_id_here") {
		t.Fatalf("sample config missing placeholder folder id: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Filter.Threshold != 100 {
		t.Fatalf("expected sample threshold 100, got %d", cfg.Filter.Threshold)
	}
	if !strings.Contains(cfg.Paths.DataDir, "auctionload") {
		t.Fatalf("expected data dir to contain auctionload, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Source.FolderID = "folder"
		cfg.Warehouse.ProjectID = "proj"
		cfg.Warehouse.DatasetID = "ds"
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing folder", func(c *config.Config) { c.Source.FolderID = "" }},
		{"unknown source", func(c *config.Config) { c.Source.Kind = "ftp" }},
		{"gcs without bucket", func(c *config.Config) { c.Source.Kind = config.SourceGCS }},
		{"local without dir", func(c *config.Config) { c.Source.Kind = config.SourceLocal }},
		{"missing dataset", func(c *config.Config) { c.Warehouse.DatasetID = "" }},
		{"unknown warehouse", func(c *config.Config) { c.Warehouse.Kind = "redshift" }},
		{"zero threshold", func(c *config.Config) { c.Filter.Threshold = 0 }},
		{"key column out of range", func(c *config.Config) { c.Filter.KeyColumn = 7 }},
		{"negative header lines", func(c *config.Config) { c.Filter.HeaderLines = -1 }},
		{"output without marker", func(c *config.Config) { c.Naming.OutputPrefix = "AU_" }},
		{"consumed without marker", func(c *config.Config) { c.Naming.ConsumedPrefix = "DEL_" }},
		{"static date layout", func(c *config.Config) { c.Naming.DateLayout = "today" }},
		{"slashes in date layout", func(c *config.Config) { c.Naming.DateLayout = "2006/01/02" }},
		{"dashes in date layout", func(c *config.Config) { c.Naming.DateLayout = "2006-01-02" }},
		{"table prefix with dash", func(c *config.Config) { c.Warehouse.TablePrefix = "AU-IS_" }},
		{"table prefix leading digit", func(c *config.Config) {
			c.Warehouse.TablePrefix = "2_"
		}},
		{"negative max files", func(c *config.Config) { c.Run.MaxFiles = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestValidTableName(t *testing.T) {
	for name, want := range map[string]bool{
		"AU_IS_20240101":   true,
		"_private":         true,
		"1abc":             false,
		"a-b":              false,
		"AU_IS_2024-01-01": false,
		"":                 false,
	} {
		if got := config.ValidTableName(name); got != want {
			t.Fatalf("ValidTableName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLoadRejectsDateLayoutBreakingTableName(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[source]\nkind = \"local\"\ndir = \"" + filepath.ToSlash(filepath.Join(dir, "inbox")) + "\"\n" +
		"[warehouse]\nkind = \"sqlite\"\n" +
		"[naming]\ndate_layout = \"2006-01-02\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid table name") {
		t.Fatalf("expected table name error, got %v", err)
	}
}
