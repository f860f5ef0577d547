package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scribe.dev/internal/audit"
	"scribe.dev/internal/auth"
	"scribe.dev/internal/obs"
	"scribe.dev/internal/page"
	"scribe.dev/internal/users"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role is accepted for compatibility and ignored; signup always yields a user.
	Role string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.Create(r.Context(), users.Registration{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventUserCreated, map[string]any{"target_id": u.ID})
	writeJSON(w, http.StatusCreated, u.Public())
}

func (a *API) loginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tok, err := a.login.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidInput):
		obs.ObserveLogin("invalid")
		_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{"email": users.NormalizeEmail(req.Email)})
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	default:
		obs.ObserveLogin("error")
		logInternal(r, "login_failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	obs.ObserveLogin("success")
	ctx := auth.ContextWithIdentity(r.Context(), tok.Identity)
	_ = audit.LogEvent(ctx, audit.EventLogin, nil)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: tok.Text,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tok.ExpiresAt.Sub(tok.IssuedAt) / time.Second),
	})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := a.users.Paginate(r.Context(), page.FromQuery(q), users.Filter{Username: q.Get("username")}, routeUsers)
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page.Map(p, users.User.Public))
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.FindOne(r.Context(), id)
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

// updateUser changes name and username only. Email, password and role are
// not part of the payload; sending them is rejected as unknown fields.
func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.UpdateProfile(r.Context(), id, users.ProfileUpdate{Name: req.Name, Username: req.Username})
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventUserUpdated, map[string]any{"target_id": id})
	writeJSON(w, http.StatusOK, u.Public())
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.Delete(r.Context(), id); err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventUserDeleted, map[string]any{"target_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.UpdateRole(r.Context(), id, role)
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventRoleChanged, map[string]any{"target_id": id, "new_role": role})
	writeJSON(w, http.StatusOK, u.Public())
}

func (a *API) handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, users.ErrConflict):
		writeError(w, r, http.StatusConflict, "email or username already taken")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		logInternal(r, "user_request_failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
