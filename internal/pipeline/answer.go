package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/logger"
)

// Answer asks the service to answer question over the statements in store,
// generating and running code as needed.
//
// An empty store fails with CodeEmptyStore before any service call.
func (a *Analyst) Answer(ctx context.Context, store *domain.StatementStore, question string) (*QueryResult, error) {
	if store == nil || store.Empty() {
		return nil, newError(CodeEmptyStore, StageAnswer, EmptyStoreMessage, nil)
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	indented, compact, err := buildSnapshot(store).encode()
	if err != nil {
		return nil, fmt.Errorf("Answer: %w", err)
	}

	prompt, err := a.prompts.Render(PromptQuery, queryPrompt{
		Question:       question,
		ContextJSON:    indented,
		ContextCompact: compact,
	})
	if err != nil {
		return nil, fmt.Errorf("Answer: %w", err)
	}

	segments, err := a.service.GenerateWithCodeExecution(ctx, prompt)
	if err != nil {
		return nil, newError(CodeServiceFailure, StageAnswer, "query request failed", err)
	}

	transcript := domain.Transcript{Segments: nonNil(segments)}
	result := &QueryResult{
		Response:   transcript.Render(),
		Code:       transcript.Code(),
		Execution:  transcript.Outputs(),
		Transcript: transcript,
	}

	log.Info().
		Int("segments", len(segments)).
		Int("code_blocks", len(result.Code)).
		Dur("duration", time.Since(start)).
		Msg("question answered")
	return result, nil
}
