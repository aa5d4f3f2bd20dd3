package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/browserpike/backend/internal/infrastructure/resilience"
	"github.com/browserpike/backend/internal/infrastructure/tracing"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.Handler, mutate ...func(*Options)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts := Options{BaseURL: srv.URL + "/content"}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c, srv
}

func TestResolve(t *testing.T) {
	c, err := New(Options{BaseURL: "http://repo/content"})
	require.NoError(t, err)

	assert.Equal(t, "http://repo/content/", c.BaseURL())
	assert.Equal(t, "http://repo/content/games/My%20Game.zip", c.Resolve("games/My%20Game.zip"))
	assert.Equal(t, "http://repo/content/a.zip", c.Resolve("/a.zip"))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestArchiveCarriesLastModified(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))

	obj, err := c.Archive(context.Background(), c.Resolve("a.zip"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), obj.Size())
	assert.True(t, modified.Equal(obj.LastModified))
	assert.Equal(t, "application/zip", obj.ContentType)
}

func TestStatusErrors(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())

	_, err := c.Text(context.Background(), c.Resolve("locked/_password.txt"))
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `<a href="a.zip">a</a>`)
	}), func(o *Options) { o.Retries = 2 })

	body, err := c.Listing(context.Background(), c.BaseURL())
	require.NoError(t, err)
	assert.Contains(t, body, "a.zip")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPersistentServerErrorSurfacesStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Listing(context.Background(), c.BaseURL())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestDeadlineSurfacesTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), func(o *Options) { o.ArchiveTimeout = 50 * time.Millisecond })
	defer close(release)

	_, err := c.Archive(context.Background(), c.Resolve("slow.zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrTimeout)
}

func TestBodyCap(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}), func(o *Options) { o.MaxBody = 16 })

	_, err := c.Archive(context.Background(), c.Resolve("big.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestOpenStreamsBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "project-bytes")
	}))

	s, err := c.Open(context.Background(), c.Resolve("a.capx"))
	require.NoError(t, err)
	defer s.Body.Close()

	data, err := io.ReadAll(s.Body)
	require.NoError(t, err)
	assert.Equal(t, "project-bytes", string(data))
	assert.Equal(t, "application/octet-stream", s.ContentType)
}

func TestForwardsTraceHeaders(t *testing.T) {
	var got string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(tracing.HeaderTraceID)
	}))

	tracer := tracing.New(zap.NewNop())
	defer tracer.Close()
	_, ctx := tracer.Start(context.Background(), "tree.build")

	_, err := c.Listing(ctx, c.BaseURL())
	require.NoError(t, err)
	assert.Equal(t, string(tracing.TraceIDFrom(ctx)), got)
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 8; i++ {
		_, _ = c.Listing(context.Background(), c.BaseURL())
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.Listing(context.Background(), c.BaseURL())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
