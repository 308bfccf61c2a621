package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/honyaku/internal/metrics"
	"github.com/foxseedlab/honyaku/internal/translation"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultSourceLang   = "en"
	maxRequestBodyBytes = 64 << 10
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgMissingFields    = "Missing required fields"
	msgInvalidBody      = "Invalid JSON body"
	msgTranslateFailed  = "Translation failed"
)

type Handler struct {
	translator translation.Translator
	provider   string
	metrics    *metrics.Metrics
}

func NewHandler(translator translation.Translator, provider string, m *metrics.Metrics) *Handler {
	return &Handler{translator: translator, provider: provider, metrics: m}
}

// Translate serves POST /api/translate.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	var req translation.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		slog.Debug("translate request body rejected", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Text == "" || req.TargetLang == "" {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	if req.SourceLang == "" {
		req.SourceLang = defaultSourceLang
	}

	start := time.Now()
	text, err := h.translator.Translate(r.Context(), req.Text, req.SourceLang, req.TargetLang)
	h.metrics.TranslationLatency.WithLabelValues(h.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.ProviderErrors.WithLabelValues(h.provider).Inc()
		h.metrics.TranslationsTotal.WithLabelValues(h.provider, outcomeLabel(err)).Inc()
		slog.Error("translation provider failed",
			"error", err,
			"provider", h.provider,
			"source_lang", req.SourceLang,
			"target_lang", req.TargetLang,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, msgTranslateFailed)
		return
	}

	h.metrics.TranslationsTotal.WithLabelValues(h.provider, "success").Inc()
	writeJSON(w, http.StatusOK, translation.Response{TranslatedText: text})
}

func outcomeLabel(err error) string {
	if errors.Is(err, translation.ErrValidation) {
		return "invalid"
	}
	return "error"
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, translation.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response body", "error", err, "status", status)
	}
}
