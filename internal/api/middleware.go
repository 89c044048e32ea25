package api

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rs/cors"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
)

// middleware wraps the mux, outermost first: recovery, logging, metrics,
// security headers, CORS, rate limit, body limit.
func (h *Handler) middleware(next http.Handler) http.Handler {
	handler := h.bodyLimit(next)
	handler = h.rateLimit(handler)
	handler = corsHandler(h.server.AllowedOrigins).Handler(handler)
	handler = securityHeaders(handler)
	handler = h.instrument(handler)
	handler = h.logRequests(handler)
	return h.recoverPanics(handler)
}

// responseWriter captures the status code and size of a response.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Hijack lets the WebSocket upgrade take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w}
}

func (h *Handler) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				resp := errorResponse{Error: "internal server error", Message: genericFailure}
				if h.dev {
					resp.Message = fmt.Sprint(rec)
				}
				writeJSON(w, http.StatusInternalServerError, resp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)

		if !h.dev && r.URL.Path == "/health" {
			return
		}
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"bytes", rw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", clientIP(r, h.server.TrustProxy),
		)
	})
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)

		// The mux records the matched pattern on the request.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.Status())).Inc()
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Content-Security-Policy", "default-src 'self';base-uri 'self';font-src 'self' https: data:;form-action 'self';frame-ancestors 'self';img-src 'self' data:;object-src 'none';script-src 'self';script-src-attr 'none';style-src 'self' https: 'unsafe-inline';upgrade-insecure-requests")
		hdr.Set("Cross-Origin-Opener-Policy", "same-origin")
		hdr.Set("Cross-Origin-Resource-Policy", "same-origin")
		hdr.Set("Referrer-Policy", "no-referrer")
		hdr.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-DNS-Prefetch-Control", "off")
		hdr.Set("X-Frame-Options", "SAMEORIGIN")
		next.ServeHTTP(w, r)
	})
}

func corsHandler(allowed []string) *cors.Cors {
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
}

// probes and scrapes are never throttled.
var unthrottled = map[string]bool{"/health": true, "/healthz": true, "/readyz": true, "/metrics": true}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unthrottled[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r, h.server.TrustProxy)
		allowed, err := h.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open: a limiter outage must not stop ingestion.
			h.logger.Warn("rate limiter unavailable", "source_ip", key, "err", err)
			allowed = true
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(h.rateWindow)))
			h.writeAppError(w, r, "Too Many Requests", apperr.RateLimited(key))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(window time.Duration) int {
	if s := int(window.Seconds()); s > 0 {
		return s
	}
	return 1
}

func (h *Handler) bodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.server.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.server.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
