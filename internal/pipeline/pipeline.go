// Package pipeline turns an uploaded spreadsheet into a typed statement and
// answers questions over the statements a session holds.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/llm"
	"github.com/dvloznov/statement-analyst/internal/logger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Analyst runs uploads and questions against an extraction service.
// It holds no per-session state and is safe to share.
type Analyst struct {
	service llm.Service
	storage StorageService
	prompts *Prompts
	decoder Decoder
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithStorage enables gs:// upload sources.
func WithStorage(s StorageService) Option {
	return func(a *Analyst) { a.storage = s }
}

// WithPrompts replaces the built-in prompt catalogue.
func WithPrompts(p *Prompts) Option {
	return func(a *Analyst) { a.prompts = p }
}

// WithJSONRepair lets the decoder repair malformed JSON before validation.
func WithJSONRepair(enabled bool) Option {
	return func(a *Analyst) { a.decoder.Repair = enabled }
}

// NewAnalyst creates an Analyst backed by service.
func NewAnalyst(service llm.Service, opts ...Option) *Analyst {
	a := &Analyst{service: service}
	for _, opt := range opts {
		opt(a)
	}
	if a.prompts == nil {
		a.prompts = DefaultPrompts()
	}
	return a
}

// Upload reads, classifies, extracts and stores one spreadsheet.
//
// On failure store is left untouched. An unrecognised statement is not an
// error: it returns a result with Success false and stores nothing.
func (a *Analyst) Upload(ctx context.Context, store *domain.StatementStore, in UploadInput) (*UploadResult, error) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"filename": in.Filename,
		"slot":     string(in.Slot),
	})
	ctx = logger.WithContext(ctx, log)
	start := time.Now()

	state := &UploadState{Input: in}
	if err := a.UploadPipeline(store).Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("code", string(CodeOf(err))).Msg("upload failed")
		return nil, err
	}

	log.Info().
		Str("type", string(state.Result.Type)).
		Bool("success", state.Result.Success).
		Dur("duration", time.Since(start)).
		Msg("upload finished")
	return state.Result, nil
}

// UploadPipeline returns the step sequence used by Upload.
func (a *Analyst) UploadPipeline(store *domain.StatementStore) *Pipeline {
	return NewPipeline(
		&ReadTableStep{storage: a.storage},
		&ClassifyStep{analyst: a},
		&ExtractStep{analyst: a},
		&NormalizeStep{},
		&CommitStep{store: store},
	)
}

var printer = message.NewPrinter(language.English)

// FormatMoney formats v with thousands separators and two decimals, e.g. $1,234.50.
func FormatMoney(v float64) string {
	return "$" + printer.Sprintf("%.2f", v)
}

// SummarizeProfitAndLoss describes a stored P&L for the upload message.
func SummarizeProfitAndLoss(pl *domain.ProfitAndLoss) string {
	msg := "✅ P&L uploaded successfully"
	if pl.NetIncome == nil || *pl.NetIncome == 0 {
		return msg
	}
	return fmt.Sprintf("%s\n- Period: %s to %s\n- Net Income: %s",
		msg, orNA(pl.PeriodStart), orNA(pl.PeriodEnd), FormatMoney(*pl.NetIncome))
}

// SummarizeBalanceSheet describes a stored Balance Sheet for the upload message.
func SummarizeBalanceSheet(bs *domain.BalanceSheet) string {
	return fmt.Sprintf("✅ Balance Sheet uploaded successfully\n- Time Periods: %s\n- Asset Accounts: %d",
		strings.Join(bs.TimePeriods, ", "), len(bs.Assets))
}

func orNA(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}
