package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/logger"
)

// Classify asks the service which kind of statement table holds.
// "unknown" is a valid answer, not an error.
func (a *Analyst) Classify(ctx context.Context, table string) (*domain.StatementIdentification, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	prompt, err := a.prompts.Render(PromptClassify, tablePrompt{Table: table})
	if err != nil {
		return nil, fmt.Errorf("Classify: %w", err)
	}

	raw, err := a.service.GenerateStructured(ctx, prompt, IdentificationSchema())
	if err != nil {
		return nil, newError(CodeServiceFailure, StageClassify, "classification request failed", err)
	}

	id, err := a.decoder.DecodeIdentification(raw)
	if err != nil {
		log.Debug().Str("raw_response", truncate(raw, 2000)).Msg("unparseable classification")
		return nil, newError(CodeSchemaViolation, StageClassify, "classification response did not match schema", err)
	}

	log.Info().
		Str("statement_type", string(id.StatementType)).
		Float64("confidence", id.Confidence).
		Dur("duration", time.Since(start)).
		Msg("statement classified")
	return id, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
