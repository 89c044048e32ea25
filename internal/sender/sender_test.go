package sender_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hookscope/internal/sender"
	"github.com/gyaneshwarpardhi/hookscope/internal/signature"
)

type captured struct {
	path   string
	header http.Header
	body   []byte
}

type recorder struct {
	mu       sync.Mutex
	requests []captured
	status   int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, captured{path: r.URL.Path, header: r.Header.Clone(), body: body})
	status := rec.status
	rec.mu.Unlock()
	if status == 0 {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"id":"wh-1"}`))
}

func hostPort(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, n
}

func TestRun_SendsCountWebhooksToEventPath(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	host, port := hostPort(t, srv)

	var out bytes.Buffer
	sum, err := sender.New(sender.Config{Host: host, Port: port, Event: "user.created", Count: 3}, &out).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Success)
	assert.Zero(t, sum.Failed)

	require.Len(t, rec.requests, 3)
	for _, r := range rec.requests {
		assert.Equal(t, "/webhook/user.created", r.path)
		assert.Equal(t, "application/json", r.header.Get("Content-Type"))
		assert.Equal(t, "true", r.header.Get("X-Test"))
		assert.Empty(t, r.header.Get("X-Hub-Signature-256"))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(r.body, &payload))
		assert.Contains(t, payload, "user")
		assert.Equal(t, "hookscope-sender", payload["source"])
	}
	assert.Contains(t, out.String(), "succeeded: 3")
}

func TestRun_GitHubModeSignsBodies(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	host, port := hostPort(t, srv)

	conf := sender.Config{Host: host, Port: port, Event: "github.push", Count: 1, Secret: "s3cret", GitHub: true}
	_, err := sender.New(conf, io.Discard).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	r := rec.requests[0]
	assert.Equal(t, "/webhooks/github", r.path)
	assert.Equal(t, "push", r.header.Get("X-GitHub-Event"))
	assert.NotEmpty(t, r.header.Get("X-GitHub-Delivery"))

	ok, err := signature.New(signature.SHA256, "s3cret").Verify(r.body, r.header.Get("X-Hub-Signature-256"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_CountsFailures(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	host, port := hostPort(t, srv)

	sum, err := sender.New(sender.Config{Host: host, Port: port, Event: "test", Count: 2}, io.Discard).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Success)
	assert.Equal(t, 2, sum.Failed)
	require.Len(t, sum.Errors, 2)
	assert.Equal(t, http.StatusInternalServerError, sum.Errors[0].StatusCode)
}

func TestGenerate_KnownAndFallbackShapes(t *testing.T) {
	tests := []struct {
		event string
		key   string
	}{
		{"github.push", "commits"},
		{"github.pull_request", "pull_request"},
		{"github.issues", "issue"},
		{"user.created", "user"},
		{"payment.success", "payment"},
		{"order.updated", "order"},
		{"order.completed", "order"},
		{"something.else", "data"},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			payload := sender.Generate(tt.event, 7)
			assert.Contains(t, payload, tt.key)
			assert.Contains(t, payload, "eventId")
			_, err := json.Marshal(payload)
			assert.NoError(t, err)
		})
	}
}
