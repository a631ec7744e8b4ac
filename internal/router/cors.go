package router

import (
	"net/http"
	"slices"
	"strings"

	"OutdoorAPI/internal/config"
)

// The API is read-only and unauthenticated, so a request body type is the
// only header a browser needs to negotiate.
const corsAllowHeaders = "Content-Type"

type corsPolicy struct {
	origins     []string
	anyOrigin   bool
	credentials bool
	methods     string
}

// newCORSPolicy builds the policy from config. methods are the verbs the
// mux actually serves; OPTIONS is always appended.
func newCORSPolicy(cfg config.CORSConfig, methods []string) corsPolicy {
	p := corsPolicy{credentials: cfg.AllowCredentials}
	for _, o := range strings.Split(cfg.AllowOrigin, ",") {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			p.anyOrigin = true
		default:
			p.origins = append(p.origins, o)
		}
	}
	if len(p.origins) == 0 {
		p.anyOrigin = true
	}

	verbs := make([]string, 0, len(methods)+1)
	for _, m := range slices.Concat(methods, []string{http.MethodOptions}) {
		if !slices.Contains(verbs, m) {
			verbs = append(verbs, m)
		}
	}
	p.methods = strings.Join(verbs, ", ")
	return p
}

// wrap adds CORS headers and answers preflight requests with 204.
func (p corsPolicy) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		origin, vary := p.allowOrigin(r.Header.Get("Origin"))
		if origin != "" {
			hdr.Set("Access-Control-Allow-Origin", origin)
		}
		if vary {
			hdr.Set("Vary", "Origin")
		}
		if p.credentials {
			hdr.Set("Access-Control-Allow-Credentials", "true")
		}
		hdr.Set("Access-Control-Allow-Methods", p.methods)
		hdr.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		hdr.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin and whether the answer depends on it. Credentialed wildcard
// policies echo the origin since browsers reject "*" with credentials.
func (p corsPolicy) allowOrigin(requestOrigin string) (string, bool) {
	if p.anyOrigin {
		if p.credentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if slices.Contains(p.origins, requestOrigin) {
		return requestOrigin, true
	}
	return "", true
}
