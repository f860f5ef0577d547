package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"scribe.dev/internal/client"
	"scribe.dev/internal/ids"
)

func main() {
	log.SetFlags(0)
	base := os.Getenv("SCRIBE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	c := client.New(base)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.Ready(ctx); err != nil {
		log.Fatalf("api at %s not ready: %v", base, err)
	}

	suffix := strings.ToLower(ids.New())
	owner := signupAndLogin(ctx, c, "owner"+suffix)
	other := signupAndLogin(ctx, c, "other"+suffix)

	if _, err := other.client.UpdateProfile(ctx, owner.id, "hijack", ""); statusOf(err) != http.StatusForbidden {
		log.Fatalf("cross-user profile update: expected 403, got %v", err)
	}
	if _, err := owner.client.UpdateProfile(ctx, owner.id, "Smoke Owner", ""); err != nil {
		log.Fatalf("self update: %v", err)
	}

	entry, err := owner.client.CreateEntry(ctx, "Smoke "+suffix, "smoke body", false)
	if err != nil {
		log.Fatalf("create entry: %v", err)
	}
	if _, err := other.client.UpdateEntryTitle(ctx, entry.ID, "stolen"); statusOf(err) != http.StatusForbidden {
		log.Fatalf("foreign entry update: expected 403, got %v", err)
	}
	if _, err := c.WithToken("not-a-token").UpdateEntryTitle(ctx, entry.ID, "x"); statusOf(err) != http.StatusUnauthorized {
		log.Fatalf("bad token: expected 401, got %v", err)
	}
	if err := owner.client.DeleteEntry(ctx, entry.ID); err != nil {
		log.Fatalf("delete entry: %v", err)
	}

	log.Printf("smoke OK against %s (users %d, %d)", base, owner.id, other.id)
}

type account struct {
	id     int64
	client *client.Client
}

func signupAndLogin(ctx context.Context, c *client.Client, username string) account {
	email := username + "@smoke.test"
	password := "smoke-" + username
	u, err := c.Signup(ctx, client.Signup{Username: username, Email: email, Password: password})
	if err != nil {
		log.Fatalf("signup %s: %v", username, err)
	}
	token, err := c.Login(ctx, email, password)
	if err != nil {
		log.Fatalf("login %s: %v", username, err)
	}
	return account{id: u.ID, client: c.WithToken(token)}
}

func statusOf(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
