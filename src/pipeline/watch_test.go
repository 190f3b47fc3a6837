package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/makoty26/HysteresisAnalyzer/src/record/recordtest"
)

func TestWatch_RebuildsOnNewSample(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1)
	p, _, _ := newTestPipeline(t, testConfig(t, dir, 3))

	results := make(chan *Result, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, WatchOptions{
			Debounce: 50 * time.Millisecond,
			OnResult: func(r *Result, err error) {
				if err == nil {
					results <- r
				}
			},
		})
	}()

	next := func() *Result {
		select {
		case r := <-results:
			return r
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for a build")
			return nil
		}
	}

	first := next()
	assert.Equal(t, 1, first.Present)

	recordtest.WriteIDs(t, dir, 2)
	second := next()
	assert.Equal(t, 2, second.Present)
	assert.NotEqual(t, first.RunID, second.RunID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
