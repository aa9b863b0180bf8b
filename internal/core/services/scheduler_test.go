package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"garbage", "every now and then"},
		{"six fields", "0 0 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.spec, func(context.Context) (*domain.RunReport, error) { return nil, nil })
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestNewScheduler_RequiresRun(t *testing.T) {
	_, err := NewScheduler("@daily", nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestScheduler_Next(t *testing.T) {
	s, err := NewScheduler("30 2 * * *", func(context.Context) (*domain.RunReport, error) { return nil, nil })
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 2, 2, 30, 0, 0, time.UTC), s.Next(from))
}

func TestScheduler_TriggerReportsResult(t *testing.T) {
	want := &domain.RunReport{Chunks: 7}
	var got *domain.RunReport
	var gotErr error

	s, err := NewScheduler("@hourly",
		func(context.Context) (*domain.RunReport, error) { return want, nil },
		WithResultHandler(func(r *domain.RunReport, err error) { got, gotErr = r, err }),
	)
	require.NoError(t, err)

	assert.True(t, s.Trigger(context.Background()))
	assert.Same(t, want, got)
	assert.NoError(t, gotErr)
}

func TestScheduler_TriggerPassesErrors(t *testing.T) {
	runErr := errors.New("embedding backend down")
	var gotErr error

	s, err := NewScheduler("@hourly",
		func(context.Context) (*domain.RunReport, error) { return nil, runErr },
		WithResultHandler(func(_ *domain.RunReport, err error) { gotErr = err }),
	)
	require.NoError(t, err)

	assert.True(t, s.Trigger(context.Background()))
	assert.ErrorIs(t, gotErr, runErr)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	s, err := NewScheduler("@hourly", func(context.Context) (*domain.RunReport, error) {
		runs.Add(1)
		close(started)
		<-release
		return &domain.RunReport{}, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Trigger(context.Background())
	}()

	<-started
	assert.False(t, s.Trigger(context.Background()))

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	ran := make(chan struct{}, 1)

	s, err := NewScheduler("@daily", func(context.Context) (*domain.RunReport, error) {
		ran <- struct{}{}
		return &domain.RunReport{}, nil
	}, WithRunOnStart())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("run on start did not happen")
	}

	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestScheduler_StartReturnsOnContextCancel(t *testing.T) {
	s, err := NewScheduler("@daily", func(context.Context) (*domain.RunReport, error) { return nil, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s, err := NewScheduler("@daily", func(context.Context) (*domain.RunReport, error) { return nil, nil })
	require.NoError(t, err)

	assert.NoError(t, s.Stop())
}
