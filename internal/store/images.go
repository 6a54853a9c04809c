package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/data-power-io/partsquote/libs/metrics"
)

// ImageStore uploads and deletes diagram images.
type ImageStore interface {
	Name() string
	// Upload stores data under objectPath and returns the URL to reference it by.
	Upload(ctx context.Context, data []byte, objectPath string) (string, error)
	// Delete removes the object at objectPath. A missing object is not an error.
	Delete(ctx context.Context, objectPath string) error
	// PathFromURL recovers the object path of a URL returned by Upload. It
	// reports false for URLs this store did not produce.
	PathFromURL(url string) (string, bool)
}

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9가-힣]`)

// SanitizeSegment replaces every character outside [a-zA-Z0-9가-힣] with "_".
func SanitizeSegment(s string) string {
	return unsafeSegment.ReplaceAllString(s, "_")
}

// ImagePath builds "diagrams/{brand}/{model}_{unixmillis}.{ext}".
func ImagePath(brand, model, ext string, now time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("diagrams/%s/%s_%d.%s",
		SanitizeSegment(brand), SanitizeSegment(model), now.UnixMilli(), ext)
}

// ExtensionFor guesses a file extension from image bytes.
func ExtensionFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

func contentType(objectPath string) string {
	if t := mime.TypeByExtension(path.Ext(objectPath)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// DataURLStore embeds images in the record as data URLs. It is used when no
// object store is configured.
type DataURLStore struct{}

func (DataURLStore) Name() string { return "dataurl" }

func (DataURLStore) Upload(_ context.Context, data []byte, objectPath string) (string, error) {
	url := "data:" + contentType(objectPath) + ";base64," + base64.StdEncoding.EncodeToString(data)
	metrics.RecordImage("dataurl", "upload", len(data), nil)
	return url, nil
}

// Delete is a no-op: the image lives only in the record.
func (DataURLStore) Delete(context.Context, string) error { return nil }

func (DataURLStore) PathFromURL(string) (string, bool) { return "", false }

// DecodeDataURL returns the bytes of a base64 data URL.
func DecodeDataURL(url string) ([]byte, error) {
	header, payload, ok := strings.Cut(url, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("not a base64 data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return data, nil
}
