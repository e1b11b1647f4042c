package testsupport

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// ReadMultipartUpload splits a Google API multipart media upload into its
// JSON metadata part and its media part. It is safe to call from an
// httptest handler.
func ReadMultipartUpload(r *http.Request) (meta, media []byte, err error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("parse content type: %w", err)
	}
	if mediaType != "multipart/related" {
		return nil, nil, fmt.Errorf("unexpected upload content type %q", mediaType)
	}
	reader := multipart.NewReader(r.Body, params["boundary"])
	var parts [][]byte
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read part: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, nil, fmt.Errorf("read part body: %w", err)
		}
		parts = append(parts, data)
	}
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("upload has %d parts, want 2", len(parts))
	}
	return parts[0], parts[1], nil
}
