package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archviz/diagramsvc/internal/model"
	"github.com/archviz/diagramsvc/internal/retrypolicy"
)

func testRetry() retrypolicy.Policy {
	return retrypolicy.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2, JitterPct: 0}
}

func TestUploadReturnsPublicURLOnSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "diagrams", true, testRetry())
	url, err := c.Upload(context.Background(), "sess-1", model.RenderedArtifact{ContentType: "image/svg+xml", Content: []byte("<svg/>")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, srv.URL+"/diagrams/sess-1/"))
	require.True(t, strings.HasSuffix(url, ".svg"))
	require.Equal(t, gotPath, strings.TrimPrefix(url, srv.URL))
}

func TestUploadReturnsEmptyURLWhenNotPublic(t *testing.T) {
	var hit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "diagrams", false, testRetry())
	url, err := c.Upload(context.Background(), "sess-1", model.RenderedArtifact{ContentType: "image/png", Content: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Empty(t, url)
	require.False(t, hit.Load(), "Upload must not touch the network when object_store_public is false")
}

func TestUploadAbortsAttemptPastPerAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(uploadAttemptTimeout + 2*time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "diagrams", true, retrypolicy.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, Factor: 2, JitterPct: 0})
	start := time.Now()
	_, err := c.Upload(context.Background(), "sess-slow", model.RenderedArtifact{ContentType: "image/svg+xml", Content: []byte("<svg/>")})
	require.Error(t, err)
	require.Less(t, time.Since(start), uploadAttemptTimeout+time.Second, "per-attempt deadline should cut the PUT off well before the handler's own delay elapses")
}

func TestUploadRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "diagrams", true, testRetry())
	_, err := c.Upload(context.Background(), "sess-retry", model.RenderedArtifact{ContentType: "image/svg+xml", Content: []byte("<svg/>")})
	require.NoError(t, err)
	require.Equal(t, int32(3), attempts.Load())
}

func TestUploadDoesNotRetryOn4xx(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "diagrams", true, testRetry())
	_, err := c.Upload(context.Background(), "sess-forbidden", model.RenderedArtifact{ContentType: "image/svg+xml", Content: []byte("<svg/>")})
	require.Error(t, err)
	require.Equal(t, int32(1), attempts.Load())
}

func TestExtensionForKnownContentTypes(t *testing.T) {
	require.Equal(t, ".svg", extensionFor("image/svg+xml"))
	require.Equal(t, ".png", extensionFor("image/png"))
	require.Equal(t, ".py", extensionFor("text/x-python"))
	require.Equal(t, "", extensionFor("application/octet-stream"))
}
