package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/statement-analyst/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&mockAnalyst{})

	s := r.Create(ctx)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Delete(ctx, s.ID))
	_, err = r.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, s.ID), ErrNotFound)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&mockAnalyst{UploadFunc: storesBalanceSheet("Jan 2025")})

	a := r.Create(ctx)
	b := r.Create(ctx)
	assert.NotEqual(t, a.ID, b.ID)

	_, err := a.Upload(ctx, pipeline.UploadInput{})
	require.NoError(t, err)

	assert.NotNil(t, a.Status().BalanceSheet)
	assert.Nil(t, b.Status().BalanceSheet)
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&mockAnalyst{UploadFunc: storesBalanceSheet("Jan 2025")})

	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := r.Create(ctx)
	second := r.Create(ctx)
	third := r.Create(ctx)
	_, err := second.Upload(ctx, pipeline.UploadInput{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all oldest first", Filter{}, []string{first.ID, second.ID, third.ID}},
		{"loaded only", Filter{Loaded: true}, []string{second.ID}},
		{"limit", Filter{Limit: 2}, []string{first.ID, second.ID}},
		{"offset", Filter{Offset: 2}, []string{third.ID}},
		{"offset past end", Filter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.List(ctx, tt.filter)
			ids := make([]string, 0, len(got))
			for _, st := range got {
				ids = append(ids, st.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRegistry_Expire(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&mockAnalyst{UploadFunc: storesBalanceSheet("Jan 2025")})

	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	stale := r.Create(ctx)
	busy := r.Create(ctx)
	active := r.Create(ctx)

	now = now.Add(90 * time.Minute)
	_, err := active.Upload(ctx, pipeline.UploadInput{})
	require.NoError(t, err)

	release, err := busy.acquire()
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, r.Expire(ctx, time.Hour))

	_, err = r.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(ctx, busy.ID)
	assert.NoError(t, err, "a session with a request in flight is never expired")
	_, err = r.Get(ctx, active.ID)
	assert.NoError(t, err)

	// Finishing the request counts as activity.
	release()
	assert.Equal(t, 0, r.Expire(ctx, time.Hour))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, r.Expire(ctx, time.Hour))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_RunJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRegistry(&mockAnalyst{})

	var mu sync.Mutex
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	r.Create(ctx)

	done := make(chan error, 1)
	go func() { done <- r.RunJanitor(ctx, 5*time.Millisecond, time.Hour) }()

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

