package router

import (
	"net/http"
	"time"

	"OutdoorAPI/internal/config"
	"OutdoorAPI/internal/handler"
	"OutdoorAPI/internal/logger"

	"github.com/klauspost/compress/gzhttp"
)

// New registers the API routes and wraps them with CORS, request logging
// and response compression.
func New(cfg *config.Config, h *handler.Handler) http.Handler {
	routes := []struct {
		method, pattern string
		handle          http.HandlerFunc
	}{
		{http.MethodGet, "/api/v1/{entity}", h.List},
		{http.MethodGet, "/api/v1/{entity}/{id}", h.Single},
		{http.MethodPost, "/api/v1/{entity}/search", h.Search},
	}
	methods := make([]string, 0, len(routes))
	for _, rt := range routes {
		methods = append(methods, rt.method)
	}
	cors := newCORSPolicy(cfg.CORS, methods)

	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.HandleFunc(rt.method+" "+rt.pattern, cors.wrap(withLogging(rt.handle)))
	}
	mux.HandleFunc("OPTIONS /api/v1/", cors.wrap(func(w http.ResponseWriter, r *http.Request) {}))

	return gzhttp.GzipHandler(mux)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		switch {
		case sw.status >= 500:
			logger.Error("request", fields)
		case sw.status >= 400:
			logger.Warn("request", fields)
		default:
			logger.Info("request", fields)
		}
	}
}
