// Package gcsuploader fetches spreadsheets stored in Google Cloud Storage.
package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrTooLarge is returned when an object exceeds the configured size limit.
var ErrTooLarge = errors.New("object exceeds size limit")

// Options configures a Downloader.
type Options struct {
	// CredentialsFile is a service account key. Empty uses Application
	// Default Credentials.
	CredentialsFile string
	// MaxBytes caps the object size. Zero means no limit.
	MaxBytes int64
}

type openFunc func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// Downloader reads objects from Cloud Storage.
type Downloader struct {
	open     openFunc
	close    func() error
	maxBytes int64
}

// NewDownloader creates a storage client. Call Close when done.
func NewDownloader(ctx context.Context, opts Options) (*Downloader, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("NewDownloader: create storage client: %w", err)
	}

	open := func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		return client.Bucket(bucket).Object(object).NewReader(ctx)
	}
	return &Downloader{open: open, close: client.Close, maxBytes: opts.MaxBytes}, nil
}

// Close releases the storage client.
func (d *Downloader) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// FetchFromGCS downloads the object at a gs://bucket/object URI.
func (d *Downloader) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := d.open(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if d.maxBytes > 0 {
		r = io.LimitReader(rc, d.maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("FetchFromGCS: %s: %w (%d bytes)", gcsURI, ErrTooLarge, d.maxBytes)
	}
	return data, nil
}

// ExtractFilenameFromGCSURI implements the pipeline storage interface.
func (d *Downloader) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

// IsGCSURI reports whether s looks like a gs:// URI.
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !IsGCSURI(gcsURI) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.xlsx" → "file.xlsx"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
