package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	batch := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(batch, []byte(`
inputs:
  - input_as_text: "Order: name=Bob"
    student_id: s-2
`), 0o644))

	f := &runFlags{
		inputs:    []string{"Order: name=Alice"},
		inputFile: batch,
		studentID: "s-1",
	}
	got, err := collectInputs(f, []string{"positional"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, "Order: name=Alice", got[0].InputAsText)
	require.Equal(t, "s-1", *got[0].StudentID)
	require.Equal(t, "positional", got[1].InputAsText)
	require.Equal(t, "Order: name=Bob", got[2].InputAsText)
	require.Equal(t, "s-2", *got[2].StudentID)
}

func TestCollectInputsNeedsOne(t *testing.T) {
	_, err := collectInputs(&runFlags{}, nil)
	require.Error(t, err)
}

type fakeRouter struct {
	running chan struct{}
	run     func(ctx context.Context, running chan struct{}) error
}

func (f *fakeRouter) Run(ctx context.Context) error {
	return f.run(ctx, f.running)
}

func (f *fakeRouter) Running() chan struct{} {
	return f.running
}

func TestStartRouterReturnsEarlyFailure(t *testing.T) {
	boom := errors.New("plugin failed")
	r := &fakeRouter{
		running: make(chan struct{}),
		run: func(ctx context.Context, running chan struct{}) error {
			return boom
		},
	}
	eg, ctx := errgroup.WithContext(context.Background())
	err := startRouter(ctx, eg, r)
	require.ErrorIs(t, err, boom)
}

func TestStartRouterStopsWithoutRunning(t *testing.T) {
	r := &fakeRouter{
		running: make(chan struct{}),
		run: func(ctx context.Context, running chan struct{}) error {
			return nil
		},
	}
	eg, ctx := errgroup.WithContext(context.Background())
	require.Error(t, startRouter(ctx, eg, r))
}

func TestStartRouterWaitsForRunning(t *testing.T) {
	r := &fakeRouter{
		running: make(chan struct{}),
		run: func(ctx context.Context, running chan struct{}) error {
			close(running)
			<-ctx.Done()
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	eg, gctx := errgroup.WithContext(ctx)
	require.NoError(t, startRouter(gctx, eg, r))
	cancel()
	require.NoError(t, eg.Wait())
}
