package hooks_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hookscope/internal/hooks"
)

func newGitHubRegistry() *hooks.Registry {
	r := hooks.NewRegistry(nil)
	hooks.GitHub(r)
	return r
}

func TestDispatch_GitHubEvents(t *testing.T) {
	r := newGitHubRegistry()
	assert.Equal(t, []string{"issues", "pull_request", "push"}, r.Events())

	tests := []struct {
		name    string
		event   string
		payload string
		summary string
	}{
		{
			name:    "push",
			event:   "push",
			payload: `{"ref":"refs/heads/main","repository":{"full_name":"octo/hello"},"pusher":{"name":"octocat"},"commits":[{"id":"a"},{"id":"b"}]}`,
			summary: "push to octo/hello by octocat: 2 commits",
		},
		{
			name:    "pull request",
			event:   "pull_request",
			payload: `{"action":"opened","pull_request":{"number":12,"title":"Add docs"}}`,
			summary: "pull request opened: #12 Add docs",
		},
		{
			name:    "issues",
			event:   "issues",
			payload: `{"action":"closed","issue":{"number":3,"title":"Crash on start"}}`,
			summary: "issue closed: #3 Crash on start",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Dispatch(context.Background(), hooks.Delivery{ID: "d-1", Event: tt.event, Payload: json.RawMessage(tt.payload)})
			require.NoError(t, err)
			assert.True(t, res.Handled)
			assert.Equal(t, tt.summary, res.Summary)
		})
	}
}

func TestDispatch_UnhandledEventIsNotAnError(t *testing.T) {
	res, err := newGitHubRegistry().Dispatch(context.Background(), hooks.Delivery{Event: "star", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, "star", res.Event)
}

func TestDispatch_MalformedPayload(t *testing.T) {
	_, err := newGitHubRegistry().Dispatch(context.Background(), hooks.Delivery{Event: "push", Payload: json.RawMessage(`[1,2`)})
	assert.Error(t, err)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	r := newGitHubRegistry()
	assert.Panics(t, func() { r.Register(hooks.PushHandler{}) })
}
