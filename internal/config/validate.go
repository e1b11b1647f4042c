package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateWarehouse(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if c.Run.MaxFiles < 0 {
		return errors.New("run.max_files must be >= 0")
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Kind {
	case SourceDrive:
		if c.Source.FolderID == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("source.folder_id is required for drive sources. Set AUCTIONLOAD_FOLDER_ID or edit %s (create with 'auctionload config init')", defaultPath)
		}
	case SourceGCS:
		if c.Source.Bucket == "" {
			return errors.New("source.bucket must be set when source.kind is gcs")
		}
	case SourceLocal:
		if c.Source.Dir == "" {
			return errors.New("source.dir must be set when source.kind is local")
		}
	default:
		return fmt.Errorf("source.kind: unsupported value %q (want drive, gcs or local)", c.Source.Kind)
	}
	return nil
}

func (c *Config) validateWarehouse() error {
	switch c.Warehouse.Kind {
	case WarehouseBigQuery:
		if c.Warehouse.ProjectID == "" {
			return errors.New("warehouse.project_id is required for bigquery (or set AUCTIONLOAD_PROJECT_ID)")
		}
		if c.Warehouse.DatasetID == "" {
			return errors.New("warehouse.dataset_id is required for bigquery (or set AUCTIONLOAD_DATASET_ID)")
		}
	case WarehouseSQLite:
		if c.Warehouse.SQLitePath == "" {
			return errors.New("warehouse.sqlite_path must be set when warehouse.kind is sqlite")
		}
	default:
		return fmt.Errorf("warehouse.kind: unsupported value %q (want bigquery or sqlite)", c.Warehouse.Kind)
	}
	if c.Warehouse.TablePrefix == "" {
		return errors.New("warehouse.table_prefix must be set")
	}
	return nil
}

func (c *Config) validateFilter() error {
	if c.Filter.Threshold < 1 {
		return errors.New("filter.threshold must be >= 1")
	}
	if c.Filter.KeyColumn < 0 || c.Filter.KeyColumn >= rowColumns {
		return fmt.Errorf("filter.key_column must be between 0 and %d", rowColumns-1)
	}
	if c.Filter.HeaderLines < 0 {
		return errors.New("filter.header_lines must be >= 0")
	}
	return nil
}

func (c *Config) validateNaming() error {
	marker := c.Naming.SkipMarker
	if strings.TrimSpace(marker) == "" {
		return errors.New("naming.skip_marker must not be blank")
	}
	// Written artifacts must never be picked up as candidates on the next run.
	if !strings.Contains(c.Naming.OutputPrefix, marker) {
		return fmt.Errorf("naming.output_prefix %q must contain naming.skip_marker %q", c.Naming.OutputPrefix, marker)
	}
	if !strings.Contains(c.Naming.ConsumedPrefix, marker) {
		return fmt.Errorf("naming.consumed_prefix %q must contain naming.skip_marker %q", c.Naming.ConsumedPrefix, marker)
	}
	sample := time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC).Format(c.Naming.DateLayout)
	if sample == c.Naming.DateLayout {
		return fmt.Errorf("naming.date_layout %q has no date components", c.Naming.DateLayout)
	}
	if strings.ContainsAny(sample, "/\\") {
		return fmt.Errorf("naming.date_layout %q must not produce path separators", c.Naming.DateLayout)
	}
	// Tables are named table_prefix + formatted run date.
	if table := c.Warehouse.TablePrefix + sample; !ValidTableName(table) {
		return fmt.Errorf("warehouse.table_prefix %q with naming.date_layout %q gives invalid table name %q (letters, digits, underscores; no leading digit)",
			c.Warehouse.TablePrefix, c.Naming.DateLayout, table)
	}
	return nil
}

// ValidTableName reports whether name is usable as a warehouse table
// identifier: letters, digits and underscores, not starting with a digit.
func ValidTableName(name string) bool {
	if name == "" || len(name) > 1024 {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
