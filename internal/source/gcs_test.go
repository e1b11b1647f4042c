package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"auctionload/internal/logging"
	"auctionload/internal/services"
	"auctionload/internal/source"
	"auctionload/internal/testsupport"
)

const gcsBucket = "exports"

type fakeGCS struct {
	mu           sync.Mutex
	objects      map[string]string
	updated      map[string]time.Time
	contentTypes map[string]string
	listQueries  []url.Values
	rewrites     [][2]string
	deleted      []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	jsonPrefix := "/storage/v1/b/" + gcsBucket + "/o"
	path := r.URL.EscapedPath()
	switch {
	case r.Method == http.MethodGet && path == jsonPrefix:
		f.list(w, r)
	case r.Method == http.MethodPost && path == "/upload"+jsonPrefix:
		f.upload(w, r)
	case r.Method == http.MethodPost && strings.Contains(path, "/rewriteTo/"):
		f.rewrite(w, strings.TrimPrefix(path, jsonPrefix+"/"))
	case r.Method == http.MethodDelete && strings.HasPrefix(path, jsonPrefix+"/"):
		name, _ := url.PathUnescape(strings.TrimPrefix(path, jsonPrefix+"/"))
		if _, ok := f.objects[name]; !ok {
			writeJSONError(w, http.StatusNotFound, "No such object")
			return
		}
		delete(f.objects, name)
		f.deleted = append(f.deleted, name)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/"+gcsBucket+"/"):
		name := strings.TrimPrefix(r.URL.Path, "/"+gcsBucket+"/")
		content, ok := f.objects[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("X-Goog-Generation", "1")
		w.Header().Set("X-Goog-Metageneration", "1")
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		_, _ = w.Write([]byte(content))
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeGCS) object(name string) map[string]any {
	updated, ok := f.updated[name]
	if !ok {
		updated = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	}
	return map[string]any{
		"kind":        "storage#object",
		"bucket":      gcsBucket,
		"name":        name,
		"size":        strconv.Itoa(len(f.objects[name])),
		"generation":  "1",
		"updated":     updated.Format(time.RFC3339),
		"contentType": f.contentTypes[name],
	}
}

func (f *fakeGCS) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f.listQueries = append(f.listQueries, query)
	prefix, delim := query.Get("prefix"), query.Get("delimiter")

	names := make([]string, 0, len(f.objects))
	for name := range f.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	items := []map[string]any{}
	prefixes := []string{}
	seen := map[string]bool{}
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if idx := strings.Index(rest, delim); delim != "" && idx >= 0 {
			p := prefix + rest[:idx+len(delim)]
			if !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
			continue
		}
		items = append(items, f.object(name))
	}
	writeJSON(w, map[string]any{"kind": "storage#objects", "items": items, "prefixes": prefixes})
}

func (f *fakeGCS) upload(w http.ResponseWriter, r *http.Request) {
	meta, media, err := testsupport.ReadMultipartUpload(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var attrs struct {
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
	}
	if err := json.Unmarshal(meta, &attrs); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.objects[attrs.Name] = string(media)
	f.contentTypes[attrs.Name] = attrs.ContentType
	writeJSON(w, f.object(attrs.Name))
}

func (f *fakeGCS) rewrite(w http.ResponseWriter, path string) {
	src, dst, ok := strings.Cut(path, "/rewriteTo/b/"+gcsBucket+"/o/")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "cross-bucket rewrite")
		return
	}
	src, _ = url.PathUnescape(src)
	dst, _ = url.PathUnescape(dst)
	content, exists := f.objects[src]
	if !exists {
		writeJSONError(w, http.StatusNotFound, "No such object")
		return
	}
	f.objects[dst] = content
	f.rewrites = append(f.rewrites, [2]string{src, dst})
	size := strconv.Itoa(len(content))
	writeJSON(w, map[string]any{
		"kind":                "storage#rewriteResponse",
		"done":                true,
		"objectSize":          size,
		"totalBytesRewritten": size,
		"resource":            f.object(dst),
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func newFakeGCS(t *testing.T) (*fakeGCS, *source.GCS) {
	t.Helper()
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	fake := &fakeGCS{
		objects: map[string]string{
			"in/report.csv":                  "\xef\xbb\xbfa,b",
			"in/older.CSV":                   "c,d",
			"in/notes.txt":                   "skip",
			"in/.trash/___DEL__20240101.csv": "old",
			"in/nested/deep.csv":             "skip",
			"other/elsewhere.csv":            "skip",
		},
		updated: map[string]time.Time{
			"in/older.CSV": time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		contentTypes: map[string]string{},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	folder, err := source.NewGCS(context.Background(), source.GCSOptions{
		Bucket: gcsBucket,
		Prefix: "in/",
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/storage/v1/"),
			option.WithoutAuthentication(),
		},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewGCS: %v", err)
	}
	t.Cleanup(func() { _ = folder.Close() })
	return fake, folder
}

func TestGCSRequiresBucket(t *testing.T) {
	if _, err := source.NewGCS(context.Background(), source.GCSOptions{}, nil); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestGCSListReturnsTopLevelCSVOnly(t *testing.T) {
	fake, folder := newFakeGCS(t)
	files, err := folder.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %+v, want older.CSV and report.csv", files)
	}
	if files[0].ID != "in/older.CSV" || files[0].Name != "older.CSV" {
		t.Fatalf("expected oldest object first, got %+v", files[0])
	}
	if files[1].ID != "in/report.csv" || files[1].Size != 6 || files[1].Modified.IsZero() {
		t.Fatalf("unexpected second file %+v", files[1])
	}

	if len(fake.listQueries) == 0 {
		t.Fatal("expected a list request")
	}
	q := fake.listQueries[0]
	if q.Get("prefix") != "in/" || q.Get("delimiter") != "/" {
		t.Fatalf("unexpected list query %v", q)
	}
}

func TestGCSReadDecodes(t *testing.T) {
	_, folder := newFakeGCS(t)
	got, err := folder.Read(context.Background(), source.File{ID: "in/report.csv", Name: "report.csv"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "a,b" {
		t.Fatalf("read %q", got)
	}
}

func TestGCSReadMissing(t *testing.T) {
	_, folder := newFakeGCS(t)
	_, err := folder.Read(context.Background(), source.File{ID: "in/gone.csv", Name: "gone.csv"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGCSWriteStoresUnderPrefix(t *testing.T) {
	fake, folder := newFakeGCS(t)
	created, err := folder.Write(context.Background(), "__AU_20240520.csv", "A,x.com,1")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if created.ID != "in/__AU_20240520.csv" || created.Name != "__AU_20240520.csv" {
		t.Fatalf("created = %+v", created)
	}
	if fake.objects["in/__AU_20240520.csv"] != "A,x.com,1" {
		t.Fatalf("stored content = %q", fake.objects["in/__AU_20240520.csv"])
	}
	if fake.contentTypes["in/__AU_20240520.csv"] != "text/csv" {
		t.Fatalf("content type = %q", fake.contentTypes["in/__AU_20240520.csv"])
	}
}

func TestGCSMarkProcessedCopiesToTrashThenDeletes(t *testing.T) {
	fake, folder := newFakeGCS(t)
	f := source.File{ID: "in/report.csv", Name: "report.csv"}
	if err := folder.MarkProcessed(context.Background(), f, "___DEL__20240520.csv"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	wantDst := "in/" + source.TrashDirName + "/___DEL__20240520.csv"
	if len(fake.rewrites) != 1 || fake.rewrites[0] != [2]string{"in/report.csv", wantDst} {
		t.Fatalf("rewrites = %v", fake.rewrites)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "in/report.csv" {
		t.Fatalf("deleted = %v", fake.deleted)
	}
	if _, ok := fake.objects["in/report.csv"]; ok {
		t.Fatal("original should be gone")
	}
	if fake.objects[wantDst] != "\xef\xbb\xbfa,b" {
		t.Fatalf("trashed content = %q", fake.objects[wantDst])
	}

	files, err := folder.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, file := range files {
		if file.ID == wantDst {
			t.Fatal("trashed object must not be listed")
		}
	}
}
