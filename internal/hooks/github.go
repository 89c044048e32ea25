package hooks

import (
	"context"
	"encoding/json"
	"fmt"
)

// GitHub registers the example handlers for GitHub push, pull_request and
// issues events.
func GitHub(r *Registry) {
	r.Register(PushHandler{})
	r.Register(PullRequestHandler{})
	r.Register(IssuesHandler{})
}

type repository struct {
	FullName string `json:"full_name"`
}

// PushHandler summarizes "push" events.
type PushHandler struct{}

func (PushHandler) Event() string { return "push" }

func (h PushHandler) Handle(_ context.Context, d Delivery) (*Result, error) {
	var p struct {
		Ref        string     `json:"ref"`
		Repository repository `json:"repository"`
		Pusher     struct {
			Name string `json:"name"`
		} `json:"pusher"`
		Commits []json.RawMessage `json:"commits"`
	}
	if err := json.Unmarshal(d.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode push payload: %w", err)
	}
	return &Result{
		Event:   h.Event(),
		Handled: true,
		Summary: fmt.Sprintf("push to %s by %s: %d commits", p.Repository.FullName, p.Pusher.Name, len(p.Commits)),
	}, nil
}

type numbered struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// PullRequestHandler summarizes "pull_request" events.
type PullRequestHandler struct{}

func (PullRequestHandler) Event() string { return "pull_request" }

func (h PullRequestHandler) Handle(_ context.Context, d Delivery) (*Result, error) {
	var p struct {
		Action      string   `json:"action"`
		PullRequest numbered `json:"pull_request"`
	}
	if err := json.Unmarshal(d.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode pull_request payload: %w", err)
	}
	return &Result{
		Event:   h.Event(),
		Handled: true,
		Summary: fmt.Sprintf("pull request %s: #%d %s", p.Action, p.PullRequest.Number, p.PullRequest.Title),
	}, nil
}

// IssuesHandler summarizes "issues" events.
type IssuesHandler struct{}

func (IssuesHandler) Event() string { return "issues" }

func (h IssuesHandler) Handle(_ context.Context, d Delivery) (*Result, error) {
	var p struct {
		Action string   `json:"action"`
		Issue  numbered `json:"issue"`
	}
	if err := json.Unmarshal(d.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode issues payload: %w", err)
	}
	return &Result{
		Event:   h.Event(),
		Handled: true,
		Summary: fmt.Sprintf("issue %s: #%d %s", p.Action, p.Issue.Number, p.Issue.Title),
	}, nil
}
