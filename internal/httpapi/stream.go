package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"scribe.dev/internal/blog"
	"scribe.dev/internal/stream"
)

const heartbeatInterval = 25 * time.Second

// streamEntries serves Server-Sent Events for published entry changes.
func (a *API) streamEntries(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.events.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("event: " + string(event.Kind) + "\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// publish announces a change to a published entry. Drafts stay private.
func (a *API) publish(kind stream.Kind, e blog.Entry) {
	if a.events == nil || !e.IsPublished {
		return
	}
	a.events.Publish(stream.Event{
		Kind:     kind,
		EntryID:  e.ID,
		AuthorID: e.AuthorID,
		Title:    e.Title,
		Slug:     e.Slug,
	})
}
