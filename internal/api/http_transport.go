package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/platform/errs"
)

const (
	// scanTimeout leaves room for an in-flight sub-page audit to finish after
	// the pipeline budget runs out.
	scanTimeout    = 55 * time.Second
	unlockTimeout  = 30 * time.Second
	maxRequestBody = 1 << 20 // 1 MB
)

// Transport handles HTTP requests for scans, unlocks, waitlist sign-ups and
// badges.
type Transport struct {
	service *Service
	logger  *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /scan", t.handleScan)
	mux.HandleFunc("POST /unlock", t.handleUnlock)
	mux.HandleFunc("POST /waitlist", t.handleWaitlist)
	mux.HandleFunc("GET /badge/{sessionId}", t.handleBadge)
	mux.HandleFunc("GET /healthz", t.handleHealth)
}

func (t *Transport) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with \"websiteUrl\" and \"clientSessionId\" fields.", 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scanTimeout)
	defer cancel()

	result, err := t.service.Scan(ctx, req, clientID(r))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, result)
}

func (t *Transport) handleUnlock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with \"sessionId\" and \"email\" fields.", 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), unlockTimeout)
	defer cancel()

	result, err := t.service.Unlock(ctx, req)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, result)
}

func (t *Transport) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req WaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with an \"email\" field.", 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), unlockTimeout)
	defer cancel()

	result, err := t.service.JoinWaitlist(ctx, req)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, result)
}

// handleBadge always answers 200 so embedding pages never show a broken image.
func (t *Transport) handleBadge(w http.ResponseWriter, r *http.Request) {
	svg := t.service.Badge(r.Context(), r.PathValue("sessionId"))

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

func (t *Transport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := t.service.Health(r.Context()); err != nil {
		t.logger.Warn("health check failed", "error", err)
		t.renderError(w, http.StatusServiceUnavailable, "Database unavailable.", 0)
		return
	}
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case errs.InvalidInput:
			status = http.StatusBadRequest
		case errs.RateLimited:
			status = http.StatusTooManyRequests
			w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
		case errs.NotFound:
			status = http.StatusNotFound
		case errs.RootFetchFailed:
			status = http.StatusBadGateway
		case errs.Timeout:
			status = http.StatusGatewayTimeout
		case errs.PersistenceFailure, errs.ParsingFailed, errs.SubScanFailed, errs.Unknown:
			// 500 Internal Server Error
		}
		t.renderError(w, status, appErr.Message, appErr.RetryAfter)
		return
	}

	t.logger.Error("unclassified service error", "error", err)
	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.", 0)
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"success":false,"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string, retryAfter int) {
	t.renderJSON(w, status, model.ErrorResponse{
		Success:    false,
		Error:      message,
		StatusCode: status,
		RetryAfter: retryAfter,
	})
}

// clientID identifies the caller for quota purposes: the first
// X-Forwarded-For entry, then X-Real-IP.
func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
