// Package audit writes security-relevant events to the structured log.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/obs"
)

// Event names.
const (
	EventLogin         = "user.login"
	EventLoginFailed   = "user.login_failed"
	EventUserCreated   = "user.created"
	EventUserUpdated   = "user.updated"
	EventRoleChanged   = "user.role_changed"
	EventUserDeleted   = "user.deleted"
	EventImageUploaded = "user.profile_image"
	EventEntryCreated  = "blog.entry_created"
	EventEntryUpdated  = "blog.entry_updated"
	EventEntryDeleted  = "blog.entry_deleted"
	EventAccessDenied  = "authz.denied"
)

type requestIDKey struct{}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request identifier stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and caller context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestID(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		entry["user_id"] = identity.ID
		entry["role"] = identity.Role
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	entry["fields"] = copyFields

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
