package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/gate"
	"scribe.dev/internal/obs"
	"scribe.dev/internal/stream"
	"scribe.dev/internal/users"
)

const serviceName = "scribe-api"

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks that the backing store answers.
type ReadyProbe struct {
	Store pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Users  *users.Service
	Blog   *blog.Service
	Login  *auth.LoginService
	Tokens gate.TokenValidator
	// Events receives entry changes for the live feed. Nil disables the feed.
	Events *stream.Hub
}

// API is the HTTP layer.
type API struct {
	readyProbe readinessChecker
	version    string

	users  *users.Service
	blog   *blog.Service
	login  *auth.LoginService
	tokens gate.TokenValidator
	events *stream.Hub

	uploadDir      string
	maxUploadBytes int64
	rateBurst      int
	ratePerSec     float64
	requestTimeout time.Duration
	corsOrigins    []string
	trustedProxies TrustedProxies
}

// Option configures API behavior.
type Option func(*API)

// WithUploads sets where profile images are stored and how large they may be.
func WithUploads(dir string, maxBytes int64) Option {
	return func(a *API) {
		if dir != "" {
			a.uploadDir = dir
		}
		if maxBytes > 0 {
			a.maxUploadBytes = maxBytes
		}
	}
}

// WithLoginRateLimit throttles POST /users/login per client IP.
func WithLoginRateLimit(perSecond float64, burst int) Option {
	return func(a *API) {
		if perSecond > 0 {
			a.ratePerSec = perSecond
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// WithTrustedProxies sets the peers allowed to report the client address
// through X-Forwarded-For.
func WithTrustedProxies(proxies TrustedProxies) Option {
	return func(a *API) {
		a.trustedProxies = proxies
	}
}

// WithRequestTimeout bounds every request, including authorization lookups.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.requestTimeout = d
		}
	}
}

// WithCORSOrigins allows extra browser origins.
func WithCORSOrigins(origins ...string) Option {
	return func(a *API) {
		a.corsOrigins = append(a.corsOrigins, origins...)
	}
}

func New(rp readinessChecker, version string, deps Deps, opts ...Option) *API {
	a := &API{
		readyProbe:     rp,
		version:        version,
		users:          deps.Users,
		blog:           deps.Blog,
		login:          deps.Login,
		tokens:         deps.Tokens,
		events:         deps.Events,
		uploadDir:      "uploads/profileimages",
		maxUploadBytes: 5 << 20,
		rateBurst:      5,
		ratePerSec:     1,
		requestTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler builds the router with all middleware applied.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(Recover)
	r.Use(SecurityHeaders)
	r.Use(CORS(a.corsOrigins...))

	// The live feed is long-lived and stays outside the request timeout.
	r.Get(routeEvents, a.streamEntries)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(a.requestTimeout))

		r.Get("/healthz", a.Healthz)
		r.Get("/readyz", a.Ready)
		r.Get("/v1/info", a.Info)
		r.Handle("/metrics", obs.Handler())

		a.routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return obs.Instrument(r)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		obs.Warn("readiness_failed", map[string]any{"err": err, "request_id": RequestIDFromContext(r.Context())})
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func logInternal(r *http.Request, msg string, err error) {
	obs.Error(msg, map[string]any{
		"err":        err,
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": RequestIDFromContext(r.Context()),
	})
}
