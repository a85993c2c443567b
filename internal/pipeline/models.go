package pipeline

import (
	"github.com/dvloznov/statement-analyst/internal/domain"
)

// UploadInput is one spreadsheet submitted to an upload slot.
// Exactly one of Data or GCSURI is set.
type UploadInput struct {
	// Slot is the slot the user chose. It is a hint only; the statement is
	// stored under its classified kind.
	Slot     domain.StatementKind
	Filename string
	Data     []byte
	GCSURI   string
}

// UploadResult is the user-facing outcome of an upload.
type UploadResult struct {
	Type    domain.StatementKind `json:"type"`
	Success bool                 `json:"success"`
	Message string               `json:"message"`

	Identification *domain.StatementIdentification `json:"identification,omitempty"`
}

// QueryResult is the answer to one question.
type QueryResult struct {
	Response   string            `json:"response"`
	Code       []string          `json:"code"`
	Execution  []string          `json:"execution"`
	Transcript domain.Transcript `json:"transcript"`
}
