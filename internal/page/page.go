// Package page implements offset pagination for list endpoints.
package page

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage bounds the offset at MaxPage*MaxLimit; later pages are empty anyway.
	MaxPage = 1 << 20
)

// Request is a normalised page request.
type Request struct {
	Page  int
	Limit int
}

// Normalize applies defaults and clamps the limit.
func (r Request) Normalize() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Page > MaxPage {
		r.Page = MaxPage
	}
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	return r
}

// Offset is the number of rows to skip.
func (r Request) Offset() int {
	n := r.Normalize()
	return (n.Page - 1) * n.Limit
}

// FromQuery reads page and limit from query parameters. Unparsable values fall back to defaults.
func FromQuery(q url.Values) Request {
	var r Request
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		r.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		r.Limit = v
	}
	return r.Normalize()
}

// Meta describes the returned slice of the collection.
type Meta struct {
	TotalItems   int `json:"totalItems"`
	ItemCount    int `json:"itemCount"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

// Links are route-relative navigation links; empty when not applicable.
type Links struct {
	First    string `json:"first"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Last     string `json:"last"`
}

// Page is one page of items.
type Page[T any] struct {
	Items []T   `json:"items"`
	Meta  Meta  `json:"meta"`
	Links Links `json:"links"`
}

// New builds a page for items out of total, linking to route.
func New[T any](items []T, total int, req Request, route string) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	p := Page[T]{
		Items: items,
		Meta: Meta{
			TotalItems:   total,
			ItemCount:    len(items),
			ItemsPerPage: req.Limit,
			TotalPages:   pages,
			CurrentPage:  req.Page,
		},
	}
	if route == "" {
		return p
	}
	p.Links.First = link(route, 1, req.Limit)
	if req.Page > 1 {
		p.Links.Previous = link(route, req.Page-1, req.Limit)
	}
	if req.Page < pages {
		p.Links.Next = link(route, req.Page+1, req.Limit)
	}
	if pages > 0 {
		p.Links.Last = link(route, pages, req.Limit)
	}
	return p
}

// Map converts the items of p, keeping meta and links.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Page[U]{Items: out, Meta: p.Meta, Links: p.Links}
}

func link(route string, page, limit int) string {
	return fmt.Sprintf("%s?page=%d&limit=%d", route, page, limit)
}
