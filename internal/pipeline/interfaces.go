package pipeline

import (
	"context"
)

// StorageService fetches spreadsheets that live in Cloud Storage.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}
