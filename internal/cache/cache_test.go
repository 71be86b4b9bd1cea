package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archviz/diagramsvc/internal/model"
)

func artifact(body string) model.RenderedArtifact {
	return model.RenderedArtifact{ContentType: "image/svg+xml", Content: []byte(body), IsText: true}
}

func TestPutThenGetHit(t *testing.T) {
	c := New(1 << 20)
	c.Put("k1", artifact("<svg/>"), "", "svg_template", time.Hour)

	entry, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, "svg_template", entry.Method)
	require.Equal(t, "<svg/>", string(entry.Artifact.Content))
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c := New(1 << 20)
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestGetEvictsExpiredEntry(t *testing.T) {
	c := New(1 << 20)
	c.Put("k1", artifact("<svg/>"), "", "svg_template", time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := c.Get("k1")
	require.False(t, ok)
	require.Equal(t, 0, c.Stats().Entries)
}

func TestPutIsIdempotentForUnexpiredKey(t *testing.T) {
	c := New(1 << 20)
	c.Put("k1", artifact("first"), "", "svg_template", time.Hour)
	c.Put("k1", artifact("second"), "", "svg_template", time.Hour)

	entry, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, "first", string(entry.Artifact.Content))
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	entrySize := int64(len(artifact("x").Content))
	c := New(entrySize * 2)

	c.Put("a", artifact("x"), "", "svg_template", time.Hour)
	c.Put("b", artifact("x"), "", "svg_template", time.Hour)
	c.Get("a") // promote a to most-recently-used
	c.Put("c", artifact("x"), "", "svg_template", time.Hour)

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	require.True(t, aOK)
	require.False(t, bOK, "b was least recently used and should have been evicted")
	require.True(t, cOK)
}

func TestGetOrComputeReturnsCachedEntryWithoutCallingFn(t *testing.T) {
	c := New(1 << 20)
	c.Put("k1", artifact("cached"), "", "svg_template", time.Hour)

	var called atomic.Bool
	entry, err := c.GetOrCompute(context.Background(), "k1", time.Hour, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
		called.Store(true)
		return artifact("computed"), "", "svg_template", nil
	})
	require.NoError(t, err)
	require.False(t, called.Load())
	require.Equal(t, "cached", string(entry.Artifact.Content))
}

func TestGetOrComputeCoalescesConcurrentMisses(t *testing.T) {
	c := New(1 << 20)
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]Entry, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := c.GetOrCompute(context.Background(), "shared", time.Hour, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return artifact("computed"), "", "svg_template", nil
			})
			require.NoError(t, err)
			results[i] = entry
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), calls.Load(), "concurrent callers sharing a key should coalesce onto one generator run")
	for _, r := range results {
		require.Equal(t, "computed", string(r.Artifact.Content))
	}
}

func TestGetOrComputeSurvivesOneWaiterCancelWhileOthersRemain(t *testing.T) {
	c := New(1 << 20)
	started := make(chan struct{})
	release := make(chan struct{})
	var sawCancel atomic.Bool

	cancelCtx, cancel := context.WithCancel(context.Background())
	go func() {
		_, err := c.GetOrCompute(cancelCtx, "shared", time.Hour, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
			close(started)
			<-release
			if ctx.Err() != nil {
				sawCancel.Store(true)
			}
			return artifact("computed"), "", "svg_template", nil
		})
		require.ErrorIs(t, err, context.Canceled)
	}()
	<-started

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		entry, err := c.GetOrCompute(context.Background(), "shared", time.Hour, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
			t.Error("second waiter must join the in-flight call, not start a new one")
			return model.RenderedArtifact{}, "", "", nil
		})
		require.NoError(t, err)
		require.Equal(t, "computed", string(entry.Artifact.Content))
	}()
	time.Sleep(10 * time.Millisecond) // give the second waiter a chance to join before the first leaves

	cancel() // first waiter leaves; second is still attached, so the call must survive
	close(release)
	wg.Wait()
	require.False(t, sawCancel.Load(), "the shared computation must not observe cancellation while a second waiter remains attached")
}

func TestGetOrComputeCancelsSharedCallOnceLastWaiterLeaves(t *testing.T) {
	c := New(1 << 20)
	started := make(chan struct{})
	var sawCancel atomic.Bool
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		_, err := c.GetOrCompute(ctx, "shared", time.Hour, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
			close(started)
			<-ctx.Done()
			sawCancel.Store(true)
			return model.RenderedArtifact{}, "", "", ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
	}()
	<-started
	cancel()
	<-done
	require.True(t, sawCancel.Load(), "the shared computation must be cancelled once its only waiter leaves")
}

func TestGetOrComputePropagatesFnError(t *testing.T) {
	c := New(1 << 20)
	wantErr := errors.New("generation failed")
	_, err := c.GetOrCompute(context.Background(), "k1", time.Hour, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
		return model.RenderedArtifact{}, "", "", wantErr
	})
	require.ErrorIs(t, err, wantErr)
	_, ok := c.Get("k1")
	require.False(t, ok, "a failed computation must not populate the cache")
}
