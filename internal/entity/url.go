// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL with its expiry
// window and the clicks recorded against it, along with the error taxonomy
// shared by the use case and delivery layers.
package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidURL is returned when the original URL is not an absolute http or https URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidValidity is returned when the validity period is supplied but is not a positive number of minutes.
	ErrInvalidValidity = errors.New("invalid validity")
	// ErrInvalidShortCode is returned when a custom short code is not alphanumeric or is too long.
	ErrInvalidShortCode = errors.New("invalid short code")
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when a URL is resolved after its expiry time.
	ErrURLExpired = errors.New("url expired")
)

// ExpiredError carries the expiry time of a URL that was resolved too late.
// It matches ErrURLExpired with errors.Is.
type ExpiredError struct {
	ExpiresAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s at %s", ErrURLExpired, e.ExpiresAt.Format(time.RFC3339))
}

func (e *ExpiredError) Unwrap() error {
	return ErrURLExpired
}

// DirectReferrer is recorded for clicks that arrive without a Referer header.
const DirectReferrer = "direct"

// URL represents a shortened URL.
type URL struct {
	ShortCode   string    // ShortCode is the code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
	ExpiresAt   time.Time // ExpiresAt is fixed at creation and never recomputed.
	Clicks      []Click   // Clicks is the append-only, chronologically ordered click history.
}

// Click records one successful redirect through a short code.
type Click struct {
	ID        string
	Timestamp time.Time
	Referrer  string
	Location  string
}

// IsExpired reports whether the URL is expired at the given moment.
// A URL is still active at exactly ExpiresAt.
func (u *URL) IsExpired(at time.Time) bool {
	return at.After(u.ExpiresAt)
}

// TotalClicks returns the number of recorded clicks.
func (u *URL) TotalClicks() int {
	return len(u.Clicks)
}

// Clone returns a deep copy of the URL so that callers never share the click slice.
func (u *URL) Clone() *URL {
	c := *u
	if u.Clicks != nil {
		c.Clicks = make([]Click, len(u.Clicks))
		copy(c.Clicks, u.Clicks)
	}
	return &c
}
