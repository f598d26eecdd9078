package api

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"codequery/internal/core"
	"codequery/internal/settings"
)

type saveSettingsResponse struct {
	OK bool `json:"ok"`
	*core.SaveResult
}

// GetSettings always answers with a usable document.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Load(r.Context()))
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	log := zap.S().Named("api")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, err)
		return
	}

	in := core.DefaultSettings()
	if len(body) > 0 {
		in, err = settings.Decode(body)
		if err != nil {
			writeError(w, errInvalidJSON)
			return
		}
	}
	if err := settings.Validate(in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.settings.Save(r.Context(), in)
	if err != nil {
		var persistErr *settings.PersistError
		if errors.As(err, &persistErr) {
			log.Errorw("settings write failed on every target", "attempts", persistErr.Attempts)
		} else {
			log.Errorw("settings write failed", "error", err)
		}
		http.Error(w, "Failed to write settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, saveSettingsResponse{OK: true, SaveResult: result})
}
