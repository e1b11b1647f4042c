package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"auctionload/internal/logging"
	"auctionload/internal/services"
)

// GCSOptions configures a Cloud Storage folder.
type GCSOptions struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	ClientOptions   []option.ClientOption
}

// GCS is a Folder backed by the objects directly under a bucket prefix.
// Nested "directories" are ignored.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *slog.Logger
}

// NewGCS opens a storage client for the configured bucket.
func NewGCS(ctx context.Context, opts GCSOptions, logger *slog.Logger) (*GCS, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open gcs", "bucket is required", nil)
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open gcs", "create client", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		name:   opts.Bucket,
		prefix: opts.Prefix,
		logger: logging.NewComponentLogger(logger, "source.gcs"),
	}, nil
}

func (g *GCS) Describe() string { return "gs://" + g.name + "/" + g.prefix }

// Close releases the underlying client.
func (g *GCS) Close() error { return g.client.Close() }

func (g *GCS) List(ctx context.Context) ([]File, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: g.prefix, Delimiter: "/"})
	var files []File
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrExternal, "source", "list", g.Describe(), err)
		}
		if attrs.Prefix != "" || !strings.EqualFold(path.Ext(attrs.Name), ".csv") {
			continue
		}
		files = append(files, File{
			ID:       attrs.Name,
			Name:     path.Base(attrs.Name),
			Size:     attrs.Size,
			Modified: attrs.Updated.UTC(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Modified.Before(files[j].Modified) })
	return files, nil
}

func (g *GCS) Read(ctx context.Context, f File) (string, error) {
	reader, err := g.bucket.Object(f.ID).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", services.Wrap(services.ErrNotFound, "source", "read", f.Name, err)
		}
		return "", services.Wrap(services.ErrExternal, "source", "read", f.Name, err)
	}
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "source", "read", f.Name, err)
	}
	return DecodeText(raw)
}

func (g *GCS) Write(ctx context.Context, name, content string) (File, error) {
	objectName := g.prefix + name
	writer := g.bucket.Object(objectName).NewWriter(ctx)
	writer.ContentType = "text/csv"
	if _, err := io.WriteString(writer, content); err != nil {
		_ = writer.Close()
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	if err := writer.Close(); err != nil {
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	out := File{ID: objectName, Name: name, Size: int64(len(content))}
	if attrs := writer.Attrs(); attrs != nil {
		out.Size = attrs.Size
		out.Modified = attrs.Updated.UTC()
	}
	return out, nil
}

// MarkProcessed copies f to newName under the trash prefix and deletes the
// original. Listing uses a delimiter, so trashed objects are never listed.
func (g *GCS) MarkProcessed(ctx context.Context, f File, newName string) error {
	src := g.bucket.Object(f.ID)
	trashName := g.prefix + TrashDirName + "/" + newName
	dst := g.bucket.Object(trashName)
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return services.Wrap(services.ErrExternal, "source", "rename", f.Name, err)
	}
	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return services.Wrap(services.ErrExternal, "source", "delete", f.Name, err)
	}
	g.logger.Debug("object retired",
		logging.String("from", f.ID),
		logging.String("to", trashName),
	)
	return nil
}
