package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Source kinds.
const (
	SourceDrive = "drive"
	SourceGCS   = "gcs"
	SourceLocal = "local"
)

// Warehouse kinds.
const (
	WarehouseBigQuery = "bigquery"
	WarehouseSQLite   = "sqlite"
)

// Paths contains local state and log directories.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Source describes the folder that receives the CSV exports.
type Source struct {
	Kind            string `toml:"kind"`
	FolderID        string `toml:"folder_id"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Dir             string `toml:"dir"`
	CredentialsFile string `toml:"credentials_file"`
	MimeType        string `toml:"mime_type"`
}

// Warehouse describes the table destination for filtered CSVs.
type Warehouse struct {
	Kind            string `toml:"kind"`
	ProjectID       string `toml:"project_id"`
	DatasetID       string `toml:"dataset_id"`
	Location        string `toml:"location"`
	TablePrefix     string `toml:"table_prefix"`
	CredentialsFile string `toml:"credentials_file"`
	SQLitePath      string `toml:"sqlite_path"`
}

// Filter contains the row filter knobs.
type Filter struct {
	// Threshold is the minimum number of rows a key needs to be kept.
	Threshold int `toml:"threshold"`
	// KeyColumn is the zero-based column counted by the filter.
	KeyColumn int `toml:"key_column"`
	// HeaderLines is the number of leading lines dropped before parsing.
	HeaderLines int `toml:"header_lines"`
}

// Naming controls artifact names written back into the source folder.
type Naming struct {
	SkipMarker     string `toml:"skip_marker"`
	OutputPrefix   string `toml:"output_prefix"`
	ConsumedPrefix string `toml:"consumed_prefix"`
	DateLayout     string `toml:"date_layout"`
}

// Run contains per-invocation behaviour.
type Run struct {
	// MaxFiles caps the candidate files handled per run. Zero means no cap.
	MaxFiles   int  `toml:"max_files"`
	SweepStale bool `toml:"sweep_stale"`
	LoadEmpty  bool `toml:"load_empty"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for auctionload.
//
// Configuration sections:
//   - Paths: ledger/lock and log directories
//   - Source: where exports are listed, read, and written back
//   - Warehouse: where filtered CSVs are loaded
//   - Filter: frequency threshold, key column, header block size
//   - Naming: marker and prefixes for written/consumed artifacts
//   - Run: file cap, stale sweep, empty-load policy
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Source    Source    `toml:"source"`
	Warehouse Warehouse `toml:"warehouse"`
	Filter    Filter    `toml:"filter"`
	Naming    Naming    `toml:"naming"`
	Run       Run       `toml:"run"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("auctionload.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Source.Kind == SourceLocal && strings.TrimSpace(c.Source.Dir) != "" {
		if err := os.MkdirAll(c.Source.Dir, 0o755); err != nil {
			return fmt.Errorf("create source directory %q: %w", c.Source.Dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite file recording run history.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "ledger.db")
}

// LockPath returns the file used to keep a single run active at a time.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "auctionload.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
