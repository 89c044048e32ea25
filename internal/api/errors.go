package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
)

const genericFailure = "something went wrong"

// writeAppError translates a component error into a response. Server-side
// failures are logged; their cause is only shown in development.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, title string, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// The caller is gone; there is nobody to answer.
		h.logger.Debug("request abandoned by client", "path", r.URL.Path, "err", err)
		return
	}

	status := apperr.Status(err)
	resp := errorResponse{Error: title, Message: messageOf(err)}
	if rich, ok := apperr.From(err); ok {
		resp.Code = rich.TextCode
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(title, "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
		if h.dev {
			resp.Detail = err.Error()
		} else {
			resp.Message = genericFailure
		}
	}
	writeJSON(w, status, resp)
}

// writeSignatureRejection answers a failed signature check with the bare
// `{"error":"Firma inválida"}` body senders match on. A configuration cause
// is surfaced as the message.
func writeSignatureRejection(w http.ResponseWriter, cause error) {
	rejection := apperr.InvalidSignature(msgInvalidSignature)
	resp := errorResponse{Error: messageOf(rejection)}
	if cause != nil {
		resp.Message = messageOf(cause)
	}
	writeJSON(w, apperr.Status(rejection), resp)
}

// messageOf returns the human-readable part of err without category or cause.
func messageOf(err error) string {
	if rich, ok := apperr.From(err); ok && rich.Message != "" {
		return rich.Message
	}
	return err.Error()
}
