package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"auctionload/internal/config"
	"auctionload/internal/services"
)

// File identifies one object inside a folder.
type File struct {
	// ID is the backend identifier: Drive file id, object name, or path.
	ID       string
	Name     string
	Size     int64
	Modified time.Time
}

// Folder is the storage location scanned by a run.
type Folder interface {
	// List returns the CSV files currently in the folder, processed or not.
	List(ctx context.Context) ([]File, error)
	// Read returns the decoded text of f.
	Read(ctx context.Context, f File) (string, error)
	// Write creates a new file named name holding content.
	Write(ctx context.Context, name, content string) (File, error)
	// MarkProcessed renames f to newName and moves it to the backend's trash.
	MarkProcessed(ctx context.Context, f File, newName string) error
	// Describe returns a short human-readable location for logs.
	Describe() string
}

// Open builds the folder configured in cfg.
func Open(ctx context.Context, cfg config.Source, logger *slog.Logger) (Folder, error) {
	switch cfg.Kind {
	case config.SourceDrive:
		return NewDrive(ctx, DriveOptions{
			FolderID:        cfg.FolderID,
			MimeType:        cfg.MimeType,
			CredentialsFile: cfg.CredentialsFile,
		}, logger)
	case config.SourceGCS:
		return NewGCS(ctx, GCSOptions{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.CredentialsFile,
		}, logger)
	case config.SourceLocal:
		return NewLocal(cfg.Dir, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "source", "open", fmt.Sprintf("unsupported kind %q", cfg.Kind), nil)
	}
}
