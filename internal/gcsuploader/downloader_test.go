package gcsuploader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://statements/2025/q1/bs.xlsx", "statements", "2025/q1/bs.xlsx", false},
		{"gs://b/o", "b", "o", false},
		{"gs://bucket-only", "", "", true},
		{"gs://bucket/", "", "", true},
		{"gs:///object", "", "", true},
		{"s3://bucket/object", "", "", true},
		{"/tmp/bs.xlsx", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/file.xlsx", "file.xlsx"},
		{"gs://bucket/file.csv", "file.csv"},
		{"gs://bucket", "bucket"},
	}
	for _, tt := range tests {
		if got := ExtractFilenameFromGCSURI(tt.uri); got != tt.want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func fakeBucket(objects map[string]string) openFunc {
	return func(_ context.Context, bucket, object string) (io.ReadCloser, error) {
		body, ok := objects[bucket+"/"+object]
		if !ok {
			return nil, errors.New("storage: object doesn't exist")
		}
		return io.NopCloser(strings.NewReader(body)), nil
	}
}

func TestDownloader_FetchFromGCS(t *testing.T) {
	d := &Downloader{
		open:     fakeBucket(map[string]string{"statements/pl.csv": "Income,100\n", "statements/big.csv": strings.Repeat("x", 64)}),
		maxBytes: 32,
	}
	ctx := context.Background()

	got, err := d.FetchFromGCS(ctx, "gs://statements/pl.csv")
	require.NoError(t, err)
	assert.Equal(t, "Income,100\n", string(got))

	_, err = d.FetchFromGCS(ctx, "gs://statements/big.csv")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = d.FetchFromGCS(ctx, "gs://statements/missing.csv")
	assert.Error(t, err)

	_, err = d.FetchFromGCS(ctx, "statements/pl.csv")
	assert.Error(t, err)

	assert.Equal(t, "pl.csv", d.ExtractFilenameFromGCSURI("gs://statements/pl.csv"))
	assert.NoError(t, d.Close())
}
