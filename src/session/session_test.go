package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsConcurrency(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 0)
	assert.Equal(t, 4, s.Concurrency)
}

func TestBuilderForReturnsSameBuilderForSameTarget(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 1)
	b1 := s.BuilderFor("Game", "/usr/bin/nbo")
	b2 := s.BuilderFor("Game", "/usr/bin/nbo")
	assert.Same(t, b1, b2)

	other := s.BuilderFor("Editor", "/usr/bin/nbo")
	assert.NotSame(t, b1, other)
}

func TestCancelMarksSessionCancelled(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 1)
	assert.False(t, s.Cancelled())
	s.Cancel()
	assert.True(t, s.Cancelled())
}

func TestParallelRunsAllJobs(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 2)
	var count int32
	jobs := make([]func(context.Context) error, 10)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		}
	}
	require.NoError(t, s.Parallel(jobs))
	assert.Equal(t, int32(10), count)

	active, pending, done := s.Counts()
	assert.Zero(t, active)
	assert.Zero(t, pending)
	assert.Equal(t, 10, done)
}

func TestParallelStopsAtFirstError(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 2)
	boom := errors.New("boom")
	jobs := []func(context.Context) error{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
	}
	err := s.Parallel(jobs)
	assert.Error(t, err)
}

func TestFinishSkipsSaveWhenCancelled(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 1)
	s.Cancel()
	require.NoError(t, s.Finish())
}

func TestFinishIsNoOpWithoutDepCache(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, 1)
	require.NoError(t, s.Finish())
}
