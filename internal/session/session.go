// Package session owns the per-user statement store and conversation
// history, and allows one request in flight per session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/pipeline"
)

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when a session already has a request in flight.
	ErrBusy = errors.New("session is busy with another request")
)

// Analyst runs uploads and questions against a statement store.
type Analyst interface {
	Upload(ctx context.Context, store *domain.StatementStore, in pipeline.UploadInput) (*pipeline.UploadResult, error)
	Answer(ctx context.Context, store *domain.StatementStore, question string) (*pipeline.QueryResult, error)
}

// Turn is one answered question.
type Turn struct {
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Code      []string  `json:"code"`
	Execution []string  `json:"execution"`
	AskedAt   time.Time `json:"asked_at"`
}

// Status is a point-in-time view of a session.
type Status struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Busy       bool      `json:"busy"`
	Turns      int       `json:"turns"`

	ProfitAndLoss *SlotStatus `json:"profit_and_loss"`
	BalanceSheet  *SlotStatus `json:"balance_sheet"`
}

// SlotStatus describes a filled store slot.
type SlotStatus struct {
	CompanyName *string `json:"company_name"`
	Summary     string  `json:"summary"`
}

// Session is one user's workspace.
type Session struct {
	ID        string
	CreatedAt time.Time

	analyst Analyst
	now     func() time.Time

	// inflight admits one request at a time; it is only ever TryLock'ed.
	inflight sync.Mutex

	// mu guards the fields below. Writers also hold inflight.
	mu         sync.RWMutex
	busy       bool
	store      *domain.StatementStore
	history    []Turn
	lastActive time.Time
}

func newSession(id string, analyst Analyst, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:         id,
		CreatedAt:  t,
		analyst:    analyst,
		now:        now,
		store:      domain.NewStatementStore(),
		lastActive: t,
	}
}

// acquire claims the session for one request or fails with ErrBusy.
func (s *Session) acquire() (release func(), err error) {
	if !s.inflight.TryLock() {
		return nil, ErrBusy
	}
	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.busy = false
		s.lastActive = s.now()
		s.mu.Unlock()
		s.inflight.Unlock()
	}, nil
}

// Upload runs one spreadsheet through the pipeline and, on success, replaces
// the matching store slot. A failed upload leaves the store as it was.
func (s *Session) Upload(ctx context.Context, in pipeline.UploadInput) (*pipeline.UploadResult, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	staged := domain.NewStatementStore()
	result, err := s.analyst.Upload(ctx, staged, in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if pl := staged.ProfitAndLoss(); pl != nil {
		s.store.SetProfitAndLoss(pl)
	}
	if bs := staged.BalanceSheet(); bs != nil {
		s.store.SetBalanceSheet(bs)
	}
	s.mu.Unlock()

	return result, nil
}

// Ask answers question over the loaded statements and records the turn.
func (s *Session) Ask(ctx context.Context, question string) (*pipeline.QueryResult, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	// Writers hold inflight, so reading the store here needs no further lock.
	result, err := s.analyst.Answer(ctx, s.store, question)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.history = append(s.history, Turn{
		Question:  question,
		Response:  result.Response,
		Code:      result.Code,
		Execution: result.Execution,
		AskedAt:   s.now(),
	})
	s.mu.Unlock()

	return result, nil
}

// Reset clears both statements and the conversation history.
func (s *Session) Reset() error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	s.store.Reset()
	s.history = nil
	s.mu.Unlock()
	return nil
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Status reports which slots are filled.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.lastActive,
		Busy:       s.busy,
		Turns:      len(s.history),
	}
	if pl := s.store.ProfitAndLoss(); pl != nil {
		st.ProfitAndLoss = &SlotStatus{CompanyName: pl.CompanyName, Summary: pipeline.SummarizeProfitAndLoss(pl)}
	}
	if bs := s.store.BalanceSheet(); bs != nil {
		st.BalanceSheet = &SlotStatus{CompanyName: bs.CompanyName, Summary: pipeline.SummarizeBalanceSheet(bs)}
	}
	return st
}
