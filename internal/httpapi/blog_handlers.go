package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scribe.dev/internal/audit"
	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/page"
	"scribe.dev/internal/stream"
	"scribe.dev/internal/users"
)

type createEntryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
	HeaderImage string `json:"headerImage"`
	IsPublished bool   `json:"isPublished"`
}

type updateEntryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
	HeaderImage *string `json:"headerImage"`
	IsPublished *bool   `json:"isPublished"`
}

// entryView is an entry with its author's public view attached.
type entryView struct {
	blog.Entry
	Author *users.PublicUser `json:"author,omitempty"`
}

func (a *API) view(r *http.Request, e blog.Entry) entryView {
	v := entryView{Entry: e}
	if u, err := a.users.FindOne(r.Context(), e.AuthorID); err == nil {
		pub := u.Public()
		v.Author = &pub
	}
	return v
}

func (a *API) viewPage(r *http.Request, p page.Page[blog.Entry]) page.Page[entryView] {
	authors := make(map[int64]*users.PublicUser)
	return page.Map(p, func(e blog.Entry) entryView {
		author, seen := authors[e.AuthorID]
		if !seen {
			if u, err := a.users.FindOne(r.Context(), e.AuthorID); err == nil {
				pub := u.Public()
				author = &pub
			}
			authors[e.AuthorID] = author
		}
		return entryView{Entry: e, Author: author}
	})
}

func (a *API) createEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgDenied)
		return
	}
	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.blog.Create(r.Context(), identity.ID, blog.Draft{
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		HeaderImage: req.HeaderImage,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventEntryCreated, map[string]any{"entry_id": e.ID})
	a.publish(stream.KindCreated, e)
	writeJSON(w, http.StatusCreated, a.view(r, e))
}

func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	p, err := a.blog.Paginate(r.Context(), page.FromQuery(r.URL.Query()), routeBlog)
	if err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewPage(r, p))
}

func (a *API) listEntriesByUser(w http.ResponseWriter, r *http.Request) {
	authorID, err := parseID(chi.URLParam(r, paramUser))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	route := routeByUser + strconv.FormatInt(authorID, 10)
	p, err := a.blog.PaginateByAuthor(r.Context(), authorID, page.FromQuery(r.URL.Query()), route)
	if err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewPage(r, p))
}

func (a *API) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.blog.FindOne(r.Context(), id)
	if err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(r, e))
}

// updateEntry applies the partial update. The author is not part of the
// payload, so ownership cannot move through this route.
func (a *API) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.blog.Update(r.Context(), id, blog.EntryUpdate{
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		HeaderImage: req.HeaderImage,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventEntryUpdated, map[string]any{"entry_id": id})
	a.publish(stream.KindUpdated, e)
	writeJSON(w, http.StatusOK, a.view(r, e))
}

func (a *API) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, paramID))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.blog.FindOne(r.Context(), id)
	if err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	if err := a.blog.Delete(r.Context(), id); err != nil {
		a.handleBlogError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventEntryDeleted, map[string]any{"entry_id": id})
	a.publish(stream.KindDeleted, e)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleBlogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blog.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, blog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "blog entry not found")
	default:
		logInternal(r, "blog_request_failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
