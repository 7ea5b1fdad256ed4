package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"splay/internal/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWorkerPoolProcessesAndDrains(t *testing.T) {
	var mu sync.Mutex
	var seen []uuid.UUID
	release := make(chan struct{})

	pool := NewWorkerPool(func(_ context.Context, id uuid.UUID) {
		<-release
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
	}, 1, 4, metrics.New(), zap.NewNop())

	assert.False(t, pool.Submit(uuid.New()), "not started")
	pool.Start()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.True(t, pool.Submit(id))
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, ids, seen)
	assert.False(t, pool.Submit(uuid.New()), "closed")
}

func TestWorkerPoolSurvivesPanics(t *testing.T) {
	bad, good := uuid.New(), uuid.New()
	done := make(chan uuid.UUID, 1)
	pool := NewWorkerPool(func(_ context.Context, id uuid.UUID) {
		if id == bad {
			panic("boom")
		}
		done <- id
	}, 1, 2, nil, zap.NewNop())
	pool.Start()

	require.True(t, pool.Submit(bad))
	require.True(t, pool.Submit(good))

	select {
	case id := <-done:
		assert.Equal(t, good, id)
	case <-time.After(5 * time.Second):
		t.Fatal("worker stopped after a panic")
	}
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPoolRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(func(context.Context, uuid.UUID) {
		started <- struct{}{}
		<-block
	}, 1, 1, nil, zap.NewNop())
	pool.Start()

	require.True(t, pool.Submit(uuid.New()))
	<-started // the worker holds the first job
	require.True(t, pool.Submit(uuid.New()))
	assert.False(t, pool.Submit(uuid.New()))

	close(block)
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPoolShutdownTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	pool := NewWorkerPool(func(context.Context, uuid.UUID) { <-block }, 1, 1, nil, zap.NewNop())
	pool.Start()
	require.True(t, pool.Submit(uuid.New()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
}
