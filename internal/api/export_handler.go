package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"codequery/internal/core"
	"codequery/internal/export"
)

// ExportSummary runs the summary and returns it as a download.
func (h *Handler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"), export.FormatXLSX)
	if err != nil {
		writeError(w, err)
		return
	}
	var req core.SummaryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.reports.Summary(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	s := h.settings.Load(r.Context())
	var buf bytes.Buffer
	if format == export.FormatXLSX {
		err = export.WriteSummaryXLSX(&buf, result, s)
	} else {
		err = export.WriteSummaryCSV(&buf, result, s)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeDownload(w, format, downloadName("summary", req.QueryFilter), buf.Bytes())
}

// ExportFull runs the full export and returns it as a download. Rows are
// marked as exported exactly as with /api/full.
func (h *Handler) ExportFull(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"), export.FormatCSV)
	if err != nil {
		writeError(w, err)
		return
	}
	var req core.FullExportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.reports.Full(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	labels := h.settings.Load(r.Context()).FieldLabels
	var buf bytes.Buffer
	if format == export.FormatXLSX {
		err = export.WriteRowsXLSX(&buf, result.Rows, labels)
	} else {
		err = export.WriteCSV(&buf, result.Rows, labels)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeDownload(w, format, downloadName("codes", req.QueryFilter), buf.Bytes())
}

func downloadName(prefix string, f core.QueryFilter) string {
	parts := []string{prefix}
	if f.FiltersGTIN() {
		parts = append(parts, f.SelectedGTIN)
	}
	parts = append(parts, f.StartDate)
	if f.HasEndDate() {
		parts = append(parts, *f.EndDate)
	}
	return core.SafeFilename(strings.Join(parts, "_"))
}

func writeDownload(w http.ResponseWriter, format export.Format, name string, data []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
