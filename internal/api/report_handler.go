package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"codequery/internal/core"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var req core.SummaryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.reports.Summary(r.Context(), req)
	if err != nil {
		zap.S().Named("api").Warnw("summary failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Full(w http.ResponseWriter, r *http.Request) {
	var req core.FullExportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.reports.Full(r.Context(), req)
	if err != nil {
		zap.S().Named("api").Warnw("full export failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, core.OrderedRows(*result.Rows))
}

// PreviewSQL shows the statements a full export would run.
func (h *Handler) PreviewSQL(w http.ResponseWriter, r *http.Request) {
	var req core.FullExportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	preview, err := h.reports.Preview(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.reports.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
