package handler

import (
	"errors"
	"net/http"

	"OutdoorAPI/internal/apperror"
	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/request"
	"OutdoorAPI/internal/resolver"

	"github.com/google/uuid"
)

// Single serves GET /api/v1/{entity}/{id}.
func (h *Handler) Single(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entity(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, apperror.NewValidation([]string{"id: invalid uuid"}))
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	req := request.ForEntity(e, request.Query{}, request.QueryBody(r.URL.Query()), request.Single())
	p, ok := h.compile(ctx, w, r, req)
	if !ok {
		return
	}
	p.Where(filter.Operation{
		Op:        filter.OpEquals,
		Attribute: e.Attribute(e.GetPrimaryKeys()[0]),
		Value:     id.String(),
	})

	doc, err := h.exec.Single(ctx, p)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		writeError(w, r, apperror.NewNotFound(e.Name, id.String()))
		return
	case err != nil:
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
