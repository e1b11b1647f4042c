package config

const (
	defaultConfigPath       = "~/.config/auctionload/config.toml"
	defaultDataDir          = "~/.local/share/auctionload"
	defaultLogDir           = "~/.local/share/auctionload/logs"
	defaultSourceKind       = SourceDrive
	defaultSourceMimeType   = "text/csv"
	defaultWarehouseKind    = WarehouseBigQuery
	defaultWarehouseLoc     = "US"
	defaultTablePrefix      = "AU_IS_"
	defaultSQLiteWarehouse  = "warehouse.db"
	defaultThreshold        = 100
	defaultKeyColumn        = 1
	defaultHeaderLines      = 3
	defaultSkipMarker       = "__"
	defaultOutputPrefix     = "__AU_"
	defaultConsumedPrefix   = "___DEL__"
	defaultDateLayout       = "20060102"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30

	// rowColumns is the fixed width of an Auction Insights row.
	rowColumns = 7
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Source: Source{
			Kind:     defaultSourceKind,
			MimeType: defaultSourceMimeType,
		},
		Warehouse: Warehouse{
			Kind:        defaultWarehouseKind,
			Location:    defaultWarehouseLoc,
			TablePrefix: defaultTablePrefix,
		},
		Filter: Filter{
			Threshold:   defaultThreshold,
			KeyColumn:   defaultKeyColumn,
			HeaderLines: defaultHeaderLines,
		},
		Naming: Naming{
			SkipMarker:     defaultSkipMarker,
			OutputPrefix:   defaultOutputPrefix,
			ConsumedPrefix: defaultConsumedPrefix,
			DateLayout:     defaultDateLayout,
		},
		Run: Run{
			SweepStale: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
