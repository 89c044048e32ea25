// Package ingest turns a received webhook into a stored record and a
// real-time broadcast.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
	"github.com/gyaneshwarpardhi/hookscope/internal/event"
	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
)

// DefaultEventTypeHeaders are consulted, in order, when the route names no
// event type.
var DefaultEventTypeHeaders = []string{"X-Event-Type", "X-GitHub-Event", "X-GitLab-Event", "X-Hook-Event"}

// Recorder persists new webhooks.
type Recorder interface {
	Create(ctx context.Context, in event.NewWebhook) (*event.Webhook, error)
}

// Publisher broadcasts messages to live observers.
type Publisher interface {
	Publish(msg event.Message) (int, error)
}

// Request is a webhook as delivered by the transport.
type Request struct {
	PathEventType string            // route segment, may be empty
	Headers       map[string]string // lower-cased names
	Payload       json.RawMessage
	SourceIP      string
}

// Config sizes the pipeline.
type Config struct {
	Workers          int
	QueueDepth       int
	EventTypeHeaders []string
}

// Pipeline runs Classify → Persist → Broadcast for each request on a bounded
// worker pool.
type Pipeline struct {
	recorder  Recorder
	publisher Publisher
	logger    *slog.Logger
	headers   atomic.Pointer[[]string]
	pool      *workerPool[*work]
}

type work struct {
	ctx     context.Context
	req     Request
	resultC chan result
}

type result struct {
	wh  *event.Webhook
	err error
}

// New creates a Pipeline and starts its workers.
func New(recorder Recorder, publisher Publisher, conf Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if conf.Workers <= 0 {
		conf.Workers = 8
	}
	if conf.QueueDepth <= 0 {
		conf.QueueDepth = 1024
	}
	p := &Pipeline{
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
	}
	p.SetEventTypeHeaders(conf.EventTypeHeaders)
	p.pool = newWorkerPool(conf.Workers, conf.QueueDepth, p.run)
	return p
}

// SetEventTypeHeaders swaps the ordered header list used by Classify (used on
// hot-reload). An empty list restores the defaults.
func (p *Pipeline) SetEventTypeHeaders(names []string) {
	if len(names) == 0 {
		names = DefaultEventTypeHeaders
	}
	lower := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			lower = append(lower, n)
		}
	}
	p.headers.Store(&lower)
}

// Classify resolves the event type: route segment first, then the first
// configured header present, then "unknown".
func (p *Pipeline) Classify(pathEventType string, headers map[string]string) string {
	if t := strings.TrimSpace(pathEventType); t != "" {
		return t
	}
	for _, name := range *p.headers.Load() {
		if v := strings.TrimSpace(headers[name]); v != "" {
			return v
		}
	}
	return event.UnknownType
}

// Ingest persists and broadcasts req, returning the stored record.
//
// If ctx is cancelled while the request is in flight Ingest returns ctx.Err(),
// but the accepted work still completes: persistence is not interruptible.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*event.Webhook, error) {
	w := &work{ctx: ctx, req: req, resultC: make(chan result, 1)}
	if !p.pool.Submit(w) {
		metrics.WebhooksRejected.Inc()
		if p.pool.Closed() {
			return nil, apperr.Overloaded("ingest pipeline is shut down")
		}
		return nil, apperr.Overloaded(fmt.Sprintf("ingest queue full (capacity %d)", p.pool.QueueCap()))
	}
	select {
	case res := <-w.resultC:
		return res.wh, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pipeline) run(w *work) {
	wh, err := p.process(context.WithoutCancel(w.ctx), w.req)
	w.resultC <- result{wh: wh, err: err}
}

func (p *Pipeline) process(ctx context.Context, req Request) (*event.Webhook, error) {
	start := time.Now()
	eventType := p.Classify(req.PathEventType, req.Headers)

	wh, err := p.recorder.Create(ctx, event.NewWebhook{
		EventType: eventType,
		Headers:   req.Headers,
		Payload:   req.Payload,
		SourceIP:  req.SourceIP,
	})
	if err != nil {
		metrics.WebhooksFailed.WithLabelValues("persist").Inc()
		p.logger.Error("webhook not persisted", "event_type", eventType, "source_ip", req.SourceIP, "err", err)
		return nil, err
	}
	metrics.WebhooksReceived.Inc()
	p.logger.Info("webhook received", "event_id", wh.ID, "event_type", eventType, "source_ip", req.SourceIP)

	// Broadcast is a side channel: the record is already durable, so a
	// failure here never reaches the sender.
	delivered, err := p.publisher.Publish(event.Received(wh))
	if err != nil {
		metrics.WebhooksFailed.WithLabelValues("broadcast").Inc()
		p.logger.Warn("broadcast failed", "event_id", wh.ID, "err", err)
	} else {
		p.logger.Debug("broadcast sent", "event_id", wh.ID, "observers", delivered)
	}

	metrics.IngestDuration.Observe(float64(time.Since(start).Milliseconds()))
	return wh, nil
}

// QueueUtilization returns queue used / capacity (0–1).
func (p *Pipeline) QueueUtilization() float64 {
	if p.pool.QueueCap() == 0 {
		return 0
	}
	return float64(p.pool.QueueLen()) / float64(p.pool.QueueCap())
}

// Shutdown stops accepting work and waits for queued requests to finish.
func (p *Pipeline) Shutdown() {
	p.pool.Drain()
}
