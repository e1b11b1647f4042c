package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSource(); err != nil {
		return err
	}
	if err := c.normalizeWarehouse(); err != nil {
		return err
	}
	c.normalizeNaming()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() error {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	if c.Source.Kind == "" {
		c.Source.Kind = defaultSourceKind
	}
	c.Source.FolderID = strings.TrimSpace(c.Source.FolderID)
	if c.Source.FolderID == "" {
		if value, ok := os.LookupEnv("AUCTIONLOAD_FOLDER_ID"); ok {
			c.Source.FolderID = strings.TrimSpace(value)
		}
	}
	c.Source.Bucket = strings.TrimSpace(c.Source.Bucket)
	c.Source.Prefix = strings.TrimLeft(strings.TrimSpace(c.Source.Prefix), "/")
	if c.Source.Prefix != "" && !strings.HasSuffix(c.Source.Prefix, "/") {
		c.Source.Prefix += "/"
	}
	c.Source.MimeType = strings.TrimSpace(c.Source.MimeType)
	if c.Source.MimeType == "" {
		c.Source.MimeType = defaultSourceMimeType
	}

	var err error
	if c.Source.Dir, err = expandPath(strings.TrimSpace(c.Source.Dir)); err != nil {
		return fmt.Errorf("source.dir: %w", err)
	}
	if c.Source.CredentialsFile, err = credentialsPath(c.Source.CredentialsFile); err != nil {
		return fmt.Errorf("source.credentials_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeWarehouse() error {
	c.Warehouse.Kind = strings.ToLower(strings.TrimSpace(c.Warehouse.Kind))
	if c.Warehouse.Kind == "" {
		c.Warehouse.Kind = defaultWarehouseKind
	}
	c.Warehouse.ProjectID = strings.TrimSpace(c.Warehouse.ProjectID)
	if c.Warehouse.ProjectID == "" {
		if value, ok := os.LookupEnv("AUCTIONLOAD_PROJECT_ID"); ok {
			c.Warehouse.ProjectID = strings.TrimSpace(value)
		}
	}
	c.Warehouse.DatasetID = strings.TrimSpace(c.Warehouse.DatasetID)
	if c.Warehouse.DatasetID == "" {
		if value, ok := os.LookupEnv("AUCTIONLOAD_DATASET_ID"); ok {
			c.Warehouse.DatasetID = strings.TrimSpace(value)
		}
	}
	c.Warehouse.Location = strings.TrimSpace(c.Warehouse.Location)
	if c.Warehouse.Location == "" {
		c.Warehouse.Location = defaultWarehouseLoc
	}
	c.Warehouse.TablePrefix = strings.TrimSpace(c.Warehouse.TablePrefix)

	var err error
	if c.Warehouse.CredentialsFile, err = credentialsPath(c.Warehouse.CredentialsFile); err != nil {
		return fmt.Errorf("warehouse.credentials_file: %w", err)
	}
	if strings.TrimSpace(c.Warehouse.SQLitePath) == "" {
		c.Warehouse.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteWarehouse)
	}
	if c.Warehouse.SQLitePath, err = expandPath(c.Warehouse.SQLitePath); err != nil {
		return fmt.Errorf("warehouse.sqlite_path: %w", err)
	}
	return nil
}

// credentialsPath expands an explicit credentials file or falls back to
// GOOGLE_APPLICATION_CREDENTIALS. An empty result means application default
// credentials are used.
func credentialsPath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if env, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok {
			value = strings.TrimSpace(env)
		}
	}
	return expandPath(value)
}

func (c *Config) normalizeNaming() {
	if c.Naming.SkipMarker == "" {
		c.Naming.SkipMarker = defaultSkipMarker
	}
	if strings.TrimSpace(c.Naming.OutputPrefix) == "" {
		c.Naming.OutputPrefix = defaultOutputPrefix
	}
	if strings.TrimSpace(c.Naming.ConsumedPrefix) == "" {
		c.Naming.ConsumedPrefix = defaultConsumedPrefix
	}
	c.Naming.DateLayout = strings.TrimSpace(c.Naming.DateLayout)
	if c.Naming.DateLayout == "" {
		c.Naming.DateLayout = defaultDateLayout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
