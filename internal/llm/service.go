// Package llm wraps the generative model used to classify, extract and
// answer questions about financial statements.
package llm

import (
	"context"
	"errors"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"google.golang.org/genai"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=llm

// ErrEmptyResponse is returned when the model answers with no usable content.
var ErrEmptyResponse = errors.New("empty response from model")

// Service is the extraction and code-execution service.
type Service interface {
	// GenerateStructured submits prompt in JSON mode constrained by schema and
	// returns the raw response text.
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error)

	// GenerateWithCodeExecution submits prompt with the code-execution tool
	// enabled and returns the response parts in emission order.
	GenerateWithCodeExecution(ctx context.Context, prompt string) ([]domain.Segment, error)
}
