// Package sender posts generated webhooks to a running server.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/hookscope/internal/signature"
)

// Config describes one sending run.
type Config struct {
	Host    string
	Port    int
	Event   string
	Count   int
	Delay   time.Duration
	Secret  string // signs bodies when set
	GitHub  bool   // target the signed GitHub endpoint
	Timeout time.Duration
}

// Result is the outcome of a single send.
type Result struct {
	Index      int
	StatusCode int
	Body       string
	Err        error
}

// Summary totals a run.
type Summary struct {
	Success int
	Failed  int
	Errors  []Result
}

// Sender delivers generated webhooks over HTTP.
type Sender struct {
	conf   Config
	client *http.Client
	out    io.Writer
}

// New returns a Sender writing progress to out.
func New(conf Config, out io.Writer) *Sender {
	if conf.Count <= 0 {
		conf.Count = 1
	}
	if conf.Timeout <= 0 {
		conf.Timeout = 10 * time.Second
	}
	return &Sender{conf: conf, client: &http.Client{Timeout: conf.Timeout}, out: out}
}

// URL is the endpoint the run targets.
func (s *Sender) URL() string {
	u := url.URL{Scheme: "http", Host: s.conf.Host + ":" + strconv.Itoa(s.conf.Port)}
	if s.conf.GitHub {
		u.Path = "/webhooks/github"
	} else {
		u.Path = "/webhook/" + url.PathEscape(s.conf.Event)
	}
	return u.String()
}

// Run sends conf.Count webhooks, waiting conf.Delay between them.
func (s *Sender) Run(ctx context.Context) (Summary, error) {
	fmt.Fprintf(s.out, "target: %s\ncount: %d\ndelay: %s\n\n", s.URL(), s.conf.Count, s.conf.Delay)

	var sum Summary
	for i := 0; i < s.conf.Count; i++ {
		res := s.Send(ctx, i)
		if res.Err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, res)
			fmt.Fprintf(s.out, "webhook %d/%d failed: %v\n", i+1, s.conf.Count, res.Err)
		} else {
			sum.Success++
			fmt.Fprintf(s.out, "webhook %d/%d sent (status %d)\n", i+1, s.conf.Count, res.StatusCode)
		}

		if i < s.conf.Count-1 && s.conf.Delay > 0 {
			select {
			case <-time.After(s.conf.Delay):
			case <-ctx.Done():
				return sum, ctx.Err()
			}
		}
	}
	fmt.Fprintf(s.out, "\nsucceeded: %d\nfailed: %d\n", sum.Success, sum.Failed)
	return sum, nil
}

// Send delivers the index-th webhook. Non-2xx responses are errors.
func (s *Sender) Send(ctx context.Context, index int) Result {
	res := Result{Index: index}
	body, err := json.Marshal(Generate(s.conf.Event, index))
	if err != nil {
		res.Err = fmt.Errorf("encode payload: %w", err)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(), bytes.NewReader(body))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hookscope-sender/1.0")
	req.Header.Set("X-Event-ID", fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), index))
	req.Header.Set("X-Test", "true")
	if s.conf.GitHub {
		req.Header.Set("X-GitHub-Event", strings.TrimPrefix(s.conf.Event, "github."))
		req.Header.Set("X-GitHub-Delivery", uuid.NewString())
	}
	if s.conf.Secret != "" {
		sig, err := signature.Sign(signature.SHA256, s.conf.Secret, body)
		if err != nil {
			res.Err = err
			return res
		}
		req.Header.Set("X-Hub-Signature-256", sig)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	res.StatusCode = resp.StatusCode
	res.Body = string(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(res.Body))
	}
	return res
}
