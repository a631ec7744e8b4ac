// Package handler serves the read endpoints: it compiles requests into
// plans and hands them to the resolver.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"OutdoorAPI/internal/apperror"
	"OutdoorAPI/internal/logger"
	"OutdoorAPI/internal/model"
	"OutdoorAPI/internal/plan"
	"OutdoorAPI/internal/request"
	"OutdoorAPI/internal/resolver"
)

// Executor runs compiled plans. *resolver.Resolver implements it.
type Executor interface {
	List(ctx context.Context, p *plan.Plan) (*resolver.Page, error)
	Single(ctx context.Context, p *plan.Plan) (map[string]any, error)
}

type Handler struct {
	registry *model.Registry
	exec     Executor
	timeout  time.Duration
}

// New creates the handlers. A zero timeout leaves the request context as is.
func New(registry *model.Registry, exec Executor, timeout time.Duration) *Handler {
	return &Handler{registry: registry, exec: exec, timeout: timeout}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// entity resolves the {entity} path segment.
func (h *Handler) entity(w http.ResponseWriter, r *http.Request) (*model.Entity, bool) {
	segment := r.PathValue("entity")
	e, ok := h.registry.Route(segment)
	if !ok {
		writeError(w, r, apperror.NewNotFound(segment, nil))
		return nil, false
	}
	return e, true
}

// compile verifies req and builds its plan. Client errors are answered with
// the whole list of validation errors.
func (h *Handler) compile(ctx context.Context, w http.ResponseWriter, r *http.Request, req *request.Request) (*plan.Plan, bool) {
	if err := req.Verify(ctx); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if errs := req.Errors(); len(errs) > 0 {
		request.SortErrors(errs)
		writeError(w, r, apperror.NewValidation(request.Messages(errs)))
		return nil, false
	}
	p, err := plan.Build(req)
	if err != nil {
		writeError(w, r, apperror.NewInternal(err))
		return nil, false
	}
	logger.Debug("plan_built", map[string]any{
		"entity":   p.Entity,
		"referrer": p.Referrer,
		"encoding": req.Encoding().Name(),
	})
	return p, true
}

type errorBody struct {
	Code   string   `json:"code"`
	Errors []string `json:"errors"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.AsAppError(err)
	switch {
	case ok:
	case errors.Is(err, context.DeadlineExceeded):
		appErr = apperror.NewTimeout(err)
	default:
		appErr = apperror.NewInternal(err)
	}

	body := errorBody{Code: appErr.Code, Errors: []string{appErr.Message}}
	if msgs, ok := appErr.Details["errors"].([]string); ok {
		body.Errors = msgs
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("resolver_error", map[string]any{
			"path":  r.URL.Path,
			"code":  appErr.Code,
			"error": appErr.Error(),
		})
	}
	writeJSON(w, appErr.HTTPStatus, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}
