// Package client is a small typed client for the HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scribe.dev/internal/blog"
	"scribe.dev/internal/users"
)

// APIError is a non-2xx response.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: %d %s (request %s)", e.Status, e.Message, e.RequestID)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to one API base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy that sends token as the bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Signup registers an account.
type Signup struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Signup(ctx context.Context, s Signup) (users.PublicUser, error) {
	var out users.PublicUser
	err := c.do(ctx, http.MethodPost, "/users", s, &out)
	return out, err
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, http.MethodPost, "/users/login", map[string]string{"email": email, "password": password}, &out)
	return out.AccessToken, err
}

func (c *Client) GetUser(ctx context.Context, id int64) (users.PublicUser, error) {
	var out users.PublicUser
	err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, id int64, name, username string) (users.PublicUser, error) {
	var out users.PublicUser
	body := map[string]string{"name": name, "username": username}
	err := c.do(ctx, http.MethodPut, "/users/"+strconv.FormatInt(id, 10), body, &out)
	return out, err
}

func (c *Client) CreateEntry(ctx context.Context, title, body string, publish bool) (blog.Entry, error) {
	var out blog.Entry
	in := map[string]any{"title": title, "body": body, "isPublished": publish}
	err := c.do(ctx, http.MethodPost, "/blog-entries", in, &out)
	return out, err
}

func (c *Client) UpdateEntryTitle(ctx context.Context, id int64, title string) (blog.Entry, error) {
	var out blog.Entry
	err := c.do(ctx, http.MethodPut, "/blog-entries/"+strconv.FormatInt(id, 10), map[string]string{"title": title}, &out)
	return out, err
}

func (c *Client) DeleteEntry(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/blog-entries/"+strconv.FormatInt(id, 10), nil, nil)
}

// Ready returns nil when /readyz answers 200.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var payload struct {
			Error     string `json:"error"`
			RequestID string `json:"request_id"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error, RequestID: payload.RequestID}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
