package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"auctionload/internal/logging"
	"auctionload/internal/services"
)

// TrashDirName is the subdirectory that consumed local files are moved to.
const TrashDirName = ".trash"

// Local is a Folder backed by a directory on disk.
type Local struct {
	dir    string
	logger *slog.Logger
}

// NewLocal returns a folder rooted at dir, which must exist.
func NewLocal(dir string, logger *slog.Logger) (*Local, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open local", dir, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open local", dir+" is not a directory", nil)
	}
	return &Local{dir: dir, logger: logging.NewComponentLogger(logger, "source.local")}, nil
}

func (l *Local) Describe() string { return "local:" + l.dir }

func (l *Local) List(ctx context.Context) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "source", "list", l.dir, err)
	}
	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			ID:       filepath.Join(l.dir, entry.Name()),
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name < files[j].Name
		}
		return files[i].Modified.Before(files[j].Modified)
	})
	return files, nil
}

func (l *Local) Read(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(f.ID)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "source", "read", f.Name, err)
		}
		return "", services.Wrap(services.ErrExternal, "source", "read", f.Name, err)
	}
	return DecodeText(raw)
}

func (l *Local) Write(ctx context.Context, name, content string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if name != filepath.Base(name) {
		return File{}, services.Wrap(services.ErrValidation, "source", "write", fmt.Sprintf("invalid file name %q", name), nil)
	}
	target := filepath.Join(l.dir, name)
	tmp, err := os.CreateTemp(l.dir, "."+name+".*.tmp")
	if err != nil {
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return File{}, services.Wrap(services.ErrExternal, "source", "write", name, err)
	}
	return File{ID: target, Name: name, Size: info.Size(), Modified: info.ModTime().UTC()}, nil
}

// MarkProcessed renames f inside the directory and then moves it into the
// trash subdirectory, suffixing the name if the trash already holds one.
func (l *Local) MarkProcessed(ctx context.Context, f File, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if newName != filepath.Base(newName) {
		return services.Wrap(services.ErrValidation, "source", "mark processed", fmt.Sprintf("invalid file name %q", newName), nil)
	}
	renamed := filepath.Join(l.dir, newName)
	if renamed != f.ID {
		renamed = uniquePath(renamed)
		if err := os.Rename(f.ID, renamed); err != nil {
			return services.Wrap(services.ErrExternal, "source", "rename", f.Name, err)
		}
	}

	trashDir := filepath.Join(l.dir, TrashDirName)
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternal, "source", "trash", f.Name, err)
	}
	trashed := uniquePath(filepath.Join(trashDir, filepath.Base(renamed)))
	if err := os.Rename(renamed, trashed); err != nil {
		return services.Wrap(services.ErrExternal, "source", "trash", f.Name, err)
	}
	l.logger.Debug("file trashed",
		logging.String("from", f.Name),
		logging.String("to", trashed),
	)
	return nil
}

// uniquePath returns path, or path with a numeric suffix before the
// extension, such that nothing exists at the result.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := base + "_" + strconv.Itoa(i) + ext
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
