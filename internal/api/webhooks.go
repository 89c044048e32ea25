package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
	"github.com/gyaneshwarpardhi/hookscope/internal/hooks"
	"github.com/gyaneshwarpardhi/hookscope/internal/ingest"
	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
	"github.com/gyaneshwarpardhi/hookscope/internal/signature"
)

const msgInvalidSignature = "Firma inválida"

// POST /webhook and POST /webhook/{event} — record any sender's call.
func (h *Handler) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(r)
	if err != nil {
		h.writeAppError(w, r, "could not read webhook", err)
		return
	}
	payload, err := decodePayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		h.writeAppError(w, r, "invalid webhook payload", err)
		return
	}

	wh, err := h.pipeline.Ingest(r.Context(), ingest.Request{
		PathEventType: r.PathValue("event"),
		Headers:       flattenHeaders(r),
		Payload:       payload,
		SourceIP:      clientIP(r, h.server.TrustProxy),
	})
	if err != nil {
		h.writeAppError(w, r, "webhook could not be processed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "webhook received",
		"id":        wh.ID,
		"eventType": wh.EventType,
	})
}

// POST /webhooks/github — signed GitHub deliveries. Nothing is recorded
// unless the signature over the raw body checks out.
func (h *Handler) receiveGitHub(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(r)
	if err != nil {
		h.writeAppError(w, r, "could not read webhook", err)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	deliveryID := r.Header.Get("X-GitHub-Delivery")

	ok, err := h.verifier.Verify(body, signatureHeader(r, h.verifier.Algorithm()))
	if err != nil {
		// A missing secret is reported as a verification failure.
		metrics.SignatureFailures.WithLabelValues("unconfigured").Inc()
		h.logger.Error("github signature check unavailable", "delivery_id", deliveryID, "err", err)
		writeSignatureRejection(w, err)
		return
	}
	if !ok {
		metrics.SignatureFailures.WithLabelValues("mismatch").Inc()
		h.logger.Warn("github signature mismatch", "delivery_id", deliveryID, "event_type", eventType, "source_ip", clientIP(r, h.server.TrustProxy))
		writeSignatureRejection(w, nil)
		return
	}

	payload, err := decodePayload(githubBody(r.Header.Get("Content-Type"), body))
	if err != nil {
		h.writeAppError(w, r, "invalid webhook payload", err)
		return
	}

	if _, err := h.hooks.Dispatch(r.Context(), hooks.Delivery{ID: deliveryID, Event: eventType, Payload: payload}); err != nil {
		h.writeAppError(w, r, "webhook could not be processed", apperr.Internal(err, "hook failed"))
		return
	}

	wh, err := h.pipeline.Ingest(r.Context(), ingest.Request{
		PathEventType: eventType,
		Headers:       flattenHeaders(r),
		Payload:       payload,
		SourceIP:      clientIP(r, h.server.TrustProxy),
	})
	if err != nil {
		h.writeAppError(w, r, "webhook could not be processed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "webhook processed",
		"deliveryId": deliveryID,
		"id":         wh.ID,
	})
}

// signatureHeader picks the GitHub header carrying the configured algorithm.
func signatureHeader(r *http.Request, algorithm string) string {
	if algorithm == signature.SHA1 {
		return r.Header.Get("X-Hub-Signature")
	}
	return r.Header.Get("X-Hub-Signature-256")
}

// githubBody unwraps the JSON document GitHub puts in the "payload" field of
// form-encoded deliveries. The signature still covers the raw body.
func githubBody(contentType string, body []byte) (string, []byte) {
	if mediaType(contentType) != "application/x-www-form-urlencoded" {
		return contentType, body
	}
	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("payload") == "" {
		return contentType, body
	}
	return "application/json", []byte(form.Get("payload"))
}

func (h *Handler) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.TooLarge(tooLarge.Limit)
		}
		return nil, apperr.Validation("request body could not be read", map[string]any{"err": err.Error()})
	}
	return body, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// decodePayload turns a request body into the JSON document that is stored:
// JSON bodies verbatim, form bodies as an object, an empty body as {} and
// anything else as a JSON string.
func decodePayload(contentType string, body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	mt := mediaType(contentType)
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		if !json.Valid(body) {
			return nil, apperr.Validation("malformed JSON body", nil)
		}
		return json.RawMessage(body), nil
	case mt == "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, apperr.Validation("malformed form body", map[string]any{"err": err.Error()})
		}
		obj := make(map[string]any, len(form))
		for k, vs := range form {
			if len(vs) == 1 {
				obj[k] = vs[0]
			} else {
				obj[k] = vs
			}
		}
		return json.Marshal(obj)
	case json.Valid(body):
		return json.RawMessage(body), nil
	default:
		return json.Marshal(string(body))
	}
}

// flattenHeaders lower-cases names and joins repeated values with ", ".
// The Host header is restored since net/http moves it to r.Host.
func flattenHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		out["host"] = r.Host
	}
	return out
}

// clientIP returns the caller address, or the first X-Forwarded-For hop when
// the server sits behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
