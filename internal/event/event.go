package event

import (
	"encoding/json"
	"time"
)

// Fallback event type when neither the route nor any header names one.
const UnknownType = "unknown"

// Webhook is the durable record of one received webhook call.
type Webhook struct {
	ID        string            `json:"id"`
	EventType string            `json:"eventType"`
	Headers   map[string]string `json:"headers"` // lower-cased names
	Payload   json.RawMessage   `json:"payload"` // parsed body, verbatim
	SourceIP  string            `json:"sourceIp"`
	CreatedAt time.Time         `json:"createdAt"` // assigned by the store
}

// NewWebhook carries the sender-derived fields of a webhook before the store
// stamps an id and a creation time.
type NewWebhook struct {
	EventType string
	Headers   map[string]string
	Payload   json.RawMessage
	SourceIP  string
}

// Stats is an aggregate snapshot of the webhook table.
type Stats struct {
	Total       int64            `json:"total"`
	Last24h     int64            `json:"last24h"`
	RecentHour  int64            `json:"recent"`
	ByEventType map[string]int64 `json:"byEvent"`
}
