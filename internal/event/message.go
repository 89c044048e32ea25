package event

// MessageWebhookReceived tags a broadcast carrying a freshly stored Webhook.
const MessageWebhookReceived = "webhook_received"

// Message is the envelope pushed to real-time observers. It is never persisted.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Received wraps a stored webhook in a webhook_received envelope.
func Received(wh *Webhook) Message {
	return Message{Type: MessageWebhookReceived, Data: wh}
}
