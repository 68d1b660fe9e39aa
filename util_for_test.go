package uplink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evergreen-ci/birch"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type mockComponent struct {
	name     string
	version  string
	inactive atomic.Bool
}

func newMockComponent(name string) *mockComponent {
	return &mockComponent{name: name, version: "1.2.3"}
}

func (c *mockComponent) Name() string    { return c.name }
func (c *mockComponent) Version() string { return c.version }
func (c *mockComponent) Active() bool    { return !c.inactive.Load() }

type mockPlatform struct {
	units    int
	unitsErr error
	online   bool
}

func (p *mockPlatform) Name() string              { return "MockServer" }
func (p *mockPlatform) Version() string           { return "git-MockServer-42 (MC: 1.20.4)" }
func (p *mockPlatform) OnlineMode() bool          { return p.online }
func (p *mockPlatform) ActiveUnits() (int, error) { return p.units, p.unitsErr }

type fallbackPlatform struct {
	mockPlatform
	fallback int
}

func (p *fallbackPlatform) FallbackActiveUnits() int { return p.fallback }

// inlineExecutor runs tasks immediately on the caller's goroutine,
// marking their context as primary.
func inlineExecutor() Executor {
	return ExecutorFunc(func(task func(context.Context)) error {
		task(WithPrimaryContext(context.Background()))
		return nil
	})
}

func decodeJSON(t *testing.T, doc *birch.Document) map[string]interface{} {
	t.Helper()
	require.NotNil(t, doc)

	payload, err := doc.MarshalJSON()
	require.NoError(t, err)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func waitForTimer(t *testing.T, fc *testingclock.FakeClock) {
	t.Helper()
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
}

type capturedRequest struct {
	header        http.Header
	contentLength int64
	close         bool
	body          []byte
}

type captureServer struct {
	*httptest.Server
	requests chan capturedRequest
	hits     atomic.Int64
}

// newCaptureServer starts a TLS server that records every request
// and answers with status.
func newCaptureServer(t *testing.T, status int) *captureServer {
	t.Helper()

	cs := &captureServer{requests: make(chan capturedRequest, 16)}
	cs.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		cs.requests <- capturedRequest{
			header:        r.Header.Clone(),
			contentLength: r.ContentLength,
			close:         r.Close,
			body:          body,
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"received"}`))
	}))
	t.Cleanup(cs.Close)

	return cs
}

func (cs *captureServer) next(t *testing.T) capturedRequest {
	t.Helper()

	select {
	case req := <-cs.requests:
		return req
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no request reached the server")
	}
	return capturedRequest{}
}

var errProducer = errors.New("producer exploded")
