package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/logger"
	"google.golang.org/genai"
)

// ExtractProfitAndLoss extracts a P&L statement from table.
func (a *Analyst) ExtractProfitAndLoss(ctx context.Context, table string) (*domain.ProfitAndLoss, error) {
	raw, err := a.extract(ctx, PromptProfitAndLoss, ProfitAndLossSchema(), table)
	if err != nil {
		return nil, err
	}
	pl, err := a.decoder.DecodeProfitAndLoss(raw)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Str("raw_response", truncate(raw, 2000)).Msg("unparseable P&L extraction")
		return nil, newError(CodeSchemaViolation, StageExtract, "P&L response did not match schema", err)
	}
	return pl, nil
}

// ExtractBalanceSheetRaw extracts a Balance Sheet in its flat form, one line
// item per account per period.
func (a *Analyst) ExtractBalanceSheetRaw(ctx context.Context, table string) (*domain.BalanceSheetRaw, error) {
	raw, err := a.extract(ctx, PromptBalanceSheet, BalanceSheetRawSchema(), table)
	if err != nil {
		return nil, err
	}
	bs, err := a.decoder.DecodeBalanceSheetRaw(raw)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Str("raw_response", truncate(raw, 2000)).Msg("unparseable Balance Sheet extraction")
		return nil, newError(CodeSchemaViolation, StageExtract, "Balance Sheet response did not match schema", err)
	}
	return bs, nil
}

// ExtractBalanceSheet extracts a Balance Sheet and converts it to keyed form.
func (a *Analyst) ExtractBalanceSheet(ctx context.Context, table string) (*domain.BalanceSheet, error) {
	raw, err := a.ExtractBalanceSheetRaw(ctx, table)
	if err != nil {
		return nil, err
	}
	keyed := ToKeyed(*raw)
	return &keyed, nil
}

func (a *Analyst) extract(ctx context.Context, promptName string, schema *genai.Schema, table string) (string, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	prompt, err := a.prompts.Render(promptName, tablePrompt{Table: table})
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	raw, err := a.service.GenerateStructured(ctx, prompt, schema)
	if err != nil {
		return "", newError(CodeServiceFailure, StageExtract, "extraction request failed", err)
	}

	log.Info().Str("prompt", promptName).Dur("duration", time.Since(start)).Msg("statement extracted")
	return raw, nil
}
