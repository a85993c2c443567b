package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Options configures a GeminiService.
type Options struct {
	APIKey          string
	Model           string
	MaxOutputTokens int32
	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string
}

// GeminiService implements Service on the Gemini API.
type GeminiService struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	log             zerolog.Logger
}

var _ Service = (*GeminiService)(nil)

// NewGeminiService creates a client for the Gemini API.
func NewGeminiService(ctx context.Context, opts Options, log zerolog.Logger) (*GeminiService, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("NewGeminiService: API key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("NewGeminiService: model is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiService: create genai client: %w", err)
	}

	return &GeminiService{
		client:          client,
		model:           opts.Model,
		maxOutputTokens: opts.MaxOutputTokens,
		log:             log.With().Str("component", "gemini").Str("model", opts.Model).Logger(),
	}, nil
}

// GenerateStructured implements Service.
func (s *GeminiService) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := s.generate(ctx, "structured", prompt, s.structuredConfig(schema))
	if err != nil {
		return "", fmt.Errorf("GenerateStructured: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("GenerateStructured: %w", ErrEmptyResponse)
	}
	return text, nil
}

// GenerateWithCodeExecution implements Service.
func (s *GeminiService) GenerateWithCodeExecution(ctx context.Context, prompt string) ([]domain.Segment, error) {
	resp, err := s.generate(ctx, "code_execution", prompt, s.codeExecutionConfig())
	if err != nil {
		return nil, fmt.Errorf("GenerateWithCodeExecution: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("GenerateWithCodeExecution: %w", ErrEmptyResponse)
	}
	return SegmentsFromParts(resp.Candidates[0].Content.Parts), nil
}

func (s *GeminiService) generate(ctx context.Context, mode, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), config)
	if err != nil {
		s.log.Error().Err(err).Str("mode", mode).Dur("duration", time.Since(start)).Msg("generate content failed")
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}

	ev := s.log.Debug().Str("mode", mode).Int("prompt_chars", len(prompt)).Dur("duration", time.Since(start))
	if u := resp.UsageMetadata; u != nil {
		ev = ev.Int32("tokens_input", u.PromptTokenCount).Int32("tokens_output", u.CandidatesTokenCount)
	}
	ev.Msg("generate content")

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		s.log.Warn().Str("mode", mode).Int32("max_output_tokens", s.maxOutputTokens).Msg("response truncated at token limit")
	}
	return resp, nil
}

func (s *GeminiService) structuredConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if s.maxOutputTokens > 0 {
		cfg.MaxOutputTokens = s.maxOutputTokens
	}
	return cfg
}

func (s *GeminiService) codeExecutionConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{CodeExecution: &genai.ToolCodeExecution{}}},
	}
	if s.maxOutputTokens > 0 {
		cfg.MaxOutputTokens = s.maxOutputTokens
	}
	return cfg
}

// SegmentsFromParts converts response parts to transcript segments, keeping
// their order. Within one part, text comes before code and code before its
// output. Empty text and thought parts are skipped.
func SegmentsFromParts(parts []*genai.Part) []domain.Segment {
	segments := make([]domain.Segment, 0, len(parts))
	for _, p := range parts {
		if p == nil || p.Thought {
			continue
		}
		if p.Text != "" {
			segments = append(segments, domain.Segment{Kind: domain.SegmentText, Content: p.Text})
		}
		if c := p.ExecutableCode; c != nil {
			segments = append(segments, domain.Segment{
				Kind:     domain.SegmentCode,
				Content:  c.Code,
				Language: string(c.Language),
			})
		}
		if r := p.CodeExecutionResult; r != nil {
			segments = append(segments, domain.Segment{Kind: domain.SegmentOutput, Content: r.Output})
		}
	}
	return segments
}
