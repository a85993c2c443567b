package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/statement-analyst/internal/logger"
	"github.com/google/uuid"
)

// Registry is an in-memory set of sessions keyed by ID.
// It is safe for concurrent use. Sessions are lost on restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	analyst  Analyst
	now      func() time.Time
}

// NewRegistry creates an empty registry whose sessions use analyst.
func NewRegistry(analyst Analyst) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		analyst:  analyst,
		now:      time.Now,
	}
}

// Create starts a new, empty session.
func (r *Registry) Create(ctx context.Context) *Session {
	s := newSession(uuid.NewString(), r.analyst, r.now)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log := logger.FromContext(ctx)
	log.Info().Str("session_id", s.ID).Msg("session created")
	return s
}

// Get returns the session with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete ends a session. A request already running on it finishes normally.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.sessions, id)

	log := logger.FromContext(ctx)
	log.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// Filter narrows List.
type Filter struct {
	// Loaded keeps only sessions with at least one statement.
	Loaded bool
	Limit  int
	Offset int
}

// List returns session statuses, oldest first.
func (r *Registry) List(ctx context.Context, filter Filter) []Status {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	result := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		st := s.Status()
		if filter.Loaded && st.ProfitAndLoss == nil && st.BalanceSheet == nil {
			continue
		}
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []Status{}
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result
}

// Expire removes sessions idle for longer than idle and returns how many
// were removed. Sessions with a request in flight are kept.
func (r *Registry) Expire(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	var expired []string
	r.mu.Lock()
	for id, s := range r.sessions {
		st := s.Status()
		if st.Busy || !st.LastActive.Before(cutoff) {
			continue
		}
		delete(r.sessions, id)
		expired = append(expired, id)
	}
	r.mu.Unlock()

	if len(expired) > 0 {
		log := logger.FromContext(ctx)
		log.Info().Strs("session_ids", expired).Dur("idle", idle).Msg("idle sessions expired")
	}
	return len(expired)
}

// RunJanitor calls Expire every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Expire(ctx, idle)
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
