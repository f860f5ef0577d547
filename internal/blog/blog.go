// Package blog manages blog entries and their authorship.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/page"
)

var (
	// ErrNotFound matches auth.ErrNotFound so stores satisfy auth.ResourceLookup directly.
	ErrNotFound     = fmt.Errorf("blog: %w", auth.ErrNotFound)
	ErrInvalidInput = errors.New("blog: invalid input")
)

// Entry is a stored blog entry.
type Entry struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Description   string     `json:"description"`
	Body          string     `json:"body"`
	Created       time.Time  `json:"created"`
	Updated       time.Time  `json:"updated"`
	Likes         int        `json:"likes"`
	HeaderImage   string     `json:"headerImage"`
	PublishedDate *time.Time `json:"publishedDate,omitempty"`
	IsPublished   bool       `json:"isPublished"`
	AuthorID      int64      `json:"authorId"`
}

// Ownership returns the authorization fact for the entry.
func (e Entry) Ownership() auth.OwnershipFact {
	return auth.OwnershipFact{ResourceID: e.ID, OwnerID: e.AuthorID}
}

// Draft is the payload for a new entry. The author is never part of it.
type Draft struct {
	Title       string
	Description string
	Body        string
	HeaderImage string
	IsPublished bool
}

// EntryUpdate carries optional changes; nil fields are left as they are.
type EntryUpdate struct {
	Title       *string
	Description *string
	Body        *string
	HeaderImage *string
	IsPublished *bool
}

// Store persists entries. Implementations return ErrNotFound for unknown ids.
type Store interface {
	auth.ResourceLookup

	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context, authorID int64, limit, offset int) ([]Entry, int, error)
	UpdateEntry(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, id int64) error
}

// Service implements entry operations over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for wiring lookups into gates.
func (s *Service) Store() Store { return s.store }

// Create stores a new entry authored by authorID.
func (s *Service) Create(ctx context.Context, authorID int64, d Draft) (Entry, error) {
	if authorID <= 0 {
		return Entry{}, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Entry{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	e := Entry{
		Title:       title,
		Slug:        Slugify(title),
		Description: d.Description,
		Body:        d.Body,
		Created:     now,
		Updated:     now,
		HeaderImage: d.HeaderImage,
		IsPublished: d.IsPublished,
		AuthorID:    authorID,
	}
	if d.IsPublished {
		e.PublishedDate = &now
	}
	if err := s.store.CreateEntry(ctx, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// FindOne returns entry id.
func (s *Service) FindOne(ctx context.Context, id int64) (Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// Paginate lists all entries, newest id last.
func (s *Service) Paginate(ctx context.Context, req page.Request, route string) (page.Page[Entry], error) {
	return s.paginate(ctx, 0, req, route)
}

// PaginateByAuthor lists the entries of one author.
func (s *Service) PaginateByAuthor(ctx context.Context, authorID int64, req page.Request, route string) (page.Page[Entry], error) {
	if authorID <= 0 {
		return page.Page[Entry]{}, fmt.Errorf("%w: author id must be positive", ErrInvalidInput)
	}
	return s.paginate(ctx, authorID, req, route)
}

func (s *Service) paginate(ctx context.Context, authorID int64, req page.Request, route string) (page.Page[Entry], error) {
	req = req.Normalize()
	items, total, err := s.store.ListEntries(ctx, authorID, req.Limit, req.Offset())
	if err != nil {
		return page.Page[Entry]{}, err
	}
	return page.New(items, total, req, route), nil
}

// Update applies upd to entry id. The slug follows the title.
func (s *Service) Update(ctx context.Context, id int64, upd EntryUpdate) (Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	now := s.now().UTC()
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return Entry{}, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		e.Title = title
		e.Slug = Slugify(title)
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Body != nil {
		e.Body = *upd.Body
	}
	if upd.HeaderImage != nil {
		e.HeaderImage = *upd.HeaderImage
	}
	if upd.IsPublished != nil {
		if *upd.IsPublished && !e.IsPublished {
			e.PublishedDate = &now
		}
		e.IsPublished = *upd.IsPublished
	}
	e.Updated = now
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Delete removes entry id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteEntry(ctx, id)
}

// Slugify lower-cases title and joins its words with "-".
func Slugify(title string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(title), unicode.IsSpace), "-")
}
