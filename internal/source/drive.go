package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"auctionload/internal/logging"
	"auctionload/internal/services"
)

const driveListFields = "nextPageToken, files(id, name, size, modifiedTime)"

// DriveOptions configures a Drive folder.
type DriveOptions struct {
	FolderID        string
	MimeType        string
	CredentialsFile string
	// ClientOptions are appended after the credential option. Tests use them
	// to point the client at a fake endpoint.
	ClientOptions []option.ClientOption
}

// Drive is a Folder backed by a Google Drive folder.
type Drive struct {
	svc      *drive.Service
	folderID string
	mimeType string
	logger   *slog.Logger
}

// NewDrive connects to Drive using the credentials file when set, otherwise
// application default credentials.
func NewDrive(ctx context.Context, opts DriveOptions, logger *slog.Logger) (*Drive, error) {
	if strings.TrimSpace(opts.FolderID) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open drive", "folder id is required", nil)
	}
	clientOpts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open drive", "create client", err)
	}
	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = "text/csv"
	}
	return &Drive{
		svc:      svc,
		folderID: opts.FolderID,
		mimeType: mimeType,
		logger:   logging.NewComponentLogger(logger, "source.drive"),
	}, nil
}

func (d *Drive) Describe() string { return "drive:" + d.folderID }

func (d *Drive) List(ctx context.Context) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(d.folderID), escapeQuery(d.mimeType))
	var files []File
	err := d.svc.Files.List().
		Q(query).
		Fields(driveListFields).
		OrderBy("createdTime").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, fromDriveFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, wrapDriveError("list", d.folderID, err)
	}
	d.logger.Debug("folder listed", logging.Int("files", len(files)))
	return files, nil
}

func (d *Drive) Read(ctx context.Context, f File) (string, error) {
	resp, err := d.svc.Files.Get(f.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return "", wrapDriveError("read", f.Name, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "source", "read", f.Name, err)
	}
	return DecodeText(raw)
}

func (d *Drive) Write(ctx context.Context, name, content string) (File, error) {
	meta := &drive.File{
		Name:     name,
		Parents:  []string{d.folderID},
		MimeType: d.mimeType,
	}
	created, err := d.svc.Files.Create(meta).
		Media(strings.NewReader(content), googleapi.ContentType(d.mimeType)).
		Fields("id, name, size, modifiedTime").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return File{}, wrapDriveError("write", name, err)
	}
	return fromDriveFile(created), nil
}

// MarkProcessed renames and trashes f in a single update call.
func (d *Drive) MarkProcessed(ctx context.Context, f File, newName string) error {
	_, err := d.svc.Files.Update(f.ID, &drive.File{Name: newName, Trashed: true}).
		Fields("id, name, trashed").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return wrapDriveError("mark processed", f.Name, err)
	}
	return nil
}

func fromDriveFile(f *drive.File) File {
	out := File{ID: f.Id, Name: f.Name, Size: f.Size}
	if ts, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		out.Modified = ts.UTC()
	}
	return out
}

func escapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

func wrapDriveError(op, subject string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, "source", op, subject, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "source", op, subject, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return services.Wrap(services.ErrTransient, "source", op, subject, err)
		}
	}
	return services.Wrap(services.ErrExternal, "source", op, subject, err)
}
