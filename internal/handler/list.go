package handler

import (
	"io"
	"net/http"

	"OutdoorAPI/internal/apperror"
	"OutdoorAPI/internal/logger"
	"OutdoorAPI/internal/request"
)

const maxBodyBytes = 1 << 20

// List serves GET /api/v1/{entity}: the flat encoding read from the query
// string.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entity(w, r)
	if !ok {
		return
	}
	req := request.ForEntity(e, request.Query{}, request.QueryBody(r.URL.Query()))
	h.list(w, r, req)
}

// Search serves POST /api/v1/{entity}/search: the structured encoding read
// from a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entity(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		logger.Warn("read_body_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
		writeError(w, r, apperror.NewValidation([]string{"failed to read body"}))
		return
	}
	if len(data) > maxBodyBytes {
		writeError(w, r, apperror.NewValidation([]string{"request body too large"}))
		return
	}
	body, err := request.DecodeJSON(data)
	if err != nil {
		logger.Warn("invalid_json", map[string]any{"path": r.URL.Path, "error": err.Error()})
		writeError(w, r, apperror.NewValidation([]string{err.Error()}))
		return
	}
	h.list(w, r, request.ForEntity(e, request.JSON{}, body))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, req *request.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	p, ok := h.compile(ctx, w, r, req)
	if !ok {
		return
	}
	page, err := h.exec.List(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
