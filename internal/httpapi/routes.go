package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scribe.dev/internal/audit"
	"scribe.dev/internal/auth"
	"scribe.dev/internal/gate"
	"scribe.dev/internal/obs"
)

const (
	authHeader  = "Authorization"
	msgDenied   = "not authorized"
	paramID     = "id"
	paramUser   = "user"
	paramImage  = "name"
	routeUsers  = "/users"
	routeBlog   = "/blog-entries"
	routeByUser = "/blog-entries/user/"
	routeEvents = "/blog-entries/events"
)

// routes mounts the resource endpoints. Every protected route is wrapped in
// guard with a chain built once at startup.
func (a *API) routes(r chi.Router) {
	authenticated := gate.NewBuilder().Authenticate(a.tokens).Build()
	self := gate.NewBuilder().
		Authenticate(a.tokens).
		RequireSelf(a.users.Store(), paramID).
		Build()
	admin := gate.NewBuilder().
		Authenticate(a.tokens).
		RequireRoles(auth.RoleAdmin).
		Build()
	author := gate.NewBuilder().
		Authenticate(a.tokens).
		RequireAuthor(a.users.Store(), a.blog.Store(), paramID).
		Build()

	r.Route(routeUsers, func(r chi.Router) {
		r.Post("/", a.createUser)
		r.Get("/", a.listUsers)
		r.With(RateLimit(a.rateBurst, a.ratePerSec, a.trustedProxies)).Post("/login", a.loginUser)
		r.With(a.guard(authenticated)).Post("/upload", a.uploadProfileImage)
		r.Get("/profile-image/{"+paramImage+"}", a.profileImage)

		r.Route("/{"+paramID+"}", func(r chi.Router) {
			r.Get("/", a.getUser)
			r.With(a.guard(self)).Put("/", a.updateUser)
			r.With(a.guard(admin)).Delete("/", a.deleteUser)
			r.With(a.guard(admin)).Put("/role", a.updateRole)
		})
	})

	r.Route(routeBlog, func(r chi.Router) {
		r.With(a.guard(authenticated)).Post("/", a.createEntry)
		r.Get("/", a.listEntries)
		r.Get("/user/{"+paramUser+"}", a.listEntriesByUser)

		r.Route("/{"+paramID+"}", func(r chi.Router) {
			r.Get("/", a.getEntry)
			r.With(a.guard(author)).Put("/", a.updateEntry)
			r.With(a.guard(author)).Delete("/", a.deleteEntry)
		})
	})
}

// guard evaluates chain before next runs. The handler only ever sees the
// context the chain produced, so the caller identity cannot come from anywhere
// else.
func (a *API) guard(chain *gate.Chain) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := gate.NewRequest(r.Context(), r.Header.Get(authHeader), func(name string) string {
				return chi.URLParam(r, name)
			})
			ctx, d := chain.Evaluate(req)
			if !d.Allowed {
				deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deny writes the denial. The body is the same for every cause; only the
// status separates a missing or bad credential from an insufficient one.
func deny(w http.ResponseWriter, r *http.Request, d gate.Decision) {
	status := http.StatusForbidden
	if errors.Is(d.Err, auth.ErrUnauthenticated) {
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Bearer realm="scribe"`)
	}
	fields := map[string]any{
		"gate":       d.Gate,
		"reason":     d.Reason,
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"request_id": RequestIDFromContext(r.Context()),
	}
	obs.Warn("authz_denied", fields)
	_ = audit.LogEvent(r.Context(), audit.EventAccessDenied, map[string]any{
		"gate":   d.Gate,
		"method": r.Method,
		"path":   r.URL.Path,
	})
	writeError(w, r, status, msgDenied)
}
