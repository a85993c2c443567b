package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/logger"
	"github.com/dvloznov/statement-analyst/internal/tabular"
)

// PipelineStep represents a single step in the upload pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *UploadState) error
}

// UploadState holds the shared state across all pipeline steps.
type UploadState struct {
	Input UploadInput

	Table           string
	Identification  *domain.StatementIdentification
	ProfitAndLoss   *domain.ProfitAndLoss
	BalanceSheetRaw *domain.BalanceSheetRaw
	BalanceSheet    *domain.BalanceSheet

	// Result is set by the step that finishes the upload.
	Result *UploadResult
	// Halted stops the remaining steps without an error.
	Halted bool
}

// Step 1: ReadTableStep turns the uploaded bytes (or GCS object) into CSV text.
type ReadTableStep struct {
	storage StorageService
}

func (s *ReadTableStep) Execute(ctx context.Context, state *UploadState) error {
	data, filename := state.Input.Data, state.Input.Filename

	if uri := state.Input.GCSURI; uri != "" {
		if s.storage == nil {
			return newError(CodeReadFailure, StageRead, "cloud storage sources are not configured", nil)
		}
		fetched, err := s.storage.FetchFromGCS(ctx, uri)
		if err != nil {
			return newError(CodeReadFailure, StageRead, "could not fetch "+uri, err)
		}
		data = fetched
		if filename == "" {
			filename = s.storage.ExtractFilenameFromGCSURI(uri)
		}
	}

	if len(data) == 0 {
		return newError(CodeReadFailure, StageRead, "no spreadsheet data", nil)
	}

	table, err := tabular.Normalize(data, filename)
	if err != nil {
		return newError(CodeReadFailure, StageRead, "could not read spreadsheet", err)
	}
	state.Table = table

	log := logger.FromContext(ctx)
	log.Debug().Int("bytes", len(data)).Int("table_chars", len(table)).Msg("spreadsheet read")
	return nil
}

// Step 2: ClassifyStep identifies the statement kind. It halts the pipeline
// for statements it cannot identify.
type ClassifyStep struct {
	analyst *Analyst
}

func (s *ClassifyStep) Execute(ctx context.Context, state *UploadState) error {
	id, err := s.analyst.Classify(ctx, state.Table)
	if err != nil {
		return err
	}
	state.Identification = id

	if id.StatementType == domain.KindUnknown {
		state.Result = &UploadResult{
			Type:           domain.KindUnknown,
			Success:        false,
			Message:        UnknownStatementMessage,
			Identification: id,
		}
		state.Halted = true
	}
	return nil
}

// Step 3: ExtractStep extracts the statement with the schema for its kind.
type ExtractStep struct {
	analyst *Analyst
}

func (s *ExtractStep) Execute(ctx context.Context, state *UploadState) error {
	switch state.Identification.StatementType {
	case domain.KindProfitAndLoss:
		pl, err := s.analyst.ExtractProfitAndLoss(ctx, state.Table)
		if err != nil {
			return err
		}
		state.ProfitAndLoss = pl
	case domain.KindBalanceSheet:
		raw, err := s.analyst.ExtractBalanceSheetRaw(ctx, state.Table)
		if err != nil {
			return err
		}
		state.BalanceSheetRaw = raw
	default:
		return fmt.Errorf("ExtractStep: unexpected statement type %q", state.Identification.StatementType)
	}
	return nil
}

// Step 4: NormalizeStep converts a raw Balance Sheet to keyed form.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *UploadState) error {
	if state.BalanceSheetRaw == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	for _, w := range CheckBalanceSheetRaw(state.BalanceSheetRaw) {
		log.Warn().Str("stage", StageNormalize).Msg(w)
	}
	keyed := ToKeyed(*state.BalanceSheetRaw)
	state.BalanceSheet = &keyed
	return nil
}

// Step 5: CommitStep replaces the matching store slot and builds the result.
type CommitStep struct {
	store *domain.StatementStore
}

func (s *CommitStep) Execute(ctx context.Context, state *UploadState) error {
	if s.store == nil {
		return errors.New("CommitStep: no statement store")
	}

	var result *UploadResult
	switch {
	case state.ProfitAndLoss != nil:
		s.store.SetProfitAndLoss(state.ProfitAndLoss)
		result = &UploadResult{
			Type:    domain.KindProfitAndLoss,
			Success: true,
			Message: SummarizeProfitAndLoss(state.ProfitAndLoss),
		}
	case state.BalanceSheet != nil:
		s.store.SetBalanceSheet(state.BalanceSheet)
		result = &UploadResult{
			Type:    domain.KindBalanceSheet,
			Success: true,
			Message: SummarizeBalanceSheet(state.BalanceSheet),
		}
	default:
		return errors.New("CommitStep: nothing to commit")
	}
	result.Identification = state.Identification

	if slot := state.Input.Slot; slot != "" && slot != result.Type {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("slot", string(slot)).
			Str("type", string(result.Type)).
			Msg("upload slot does not match classified statement")
		result.Message += fmt.Sprintf("\n- Note: uploaded as %s but identified as %s",
			slot.Label(), result.Type.Label())
	}

	state.Result = result
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially until one fails or halts the pipeline.
func (p *Pipeline) Execute(ctx context.Context, state *UploadState) error {
	for i, step := range p.steps {
		if state.Halted {
			return nil
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
