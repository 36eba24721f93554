// Package memory provides an in-process URL repository.
// Records live for the lifetime of the process and are never evicted.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vadimbarashkov/shorturls/internal/entity"
)

// URLRepository stores URLs keyed by short code.
// It is safe for concurrent use; all mutations are serialized by a single lock.
type URLRepository struct {
	mu   sync.RWMutex
	urls map[string]*entity.URL
}

func NewURLRepository() *URLRepository {
	return &URLRepository{
		urls: make(map[string]*entity.URL),
	}
}

// Save stores url under its short code.
// It fails with entity.ErrShortCodeExists if the short code is already taken.
func (r *URLRepository) Save(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.memory.URLRepository.Save"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.urls[url.ShortCode]; ok {
		return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	r.urls[url.ShortCode] = url.Clone()

	return nil
}

// RetrieveByShortCode returns a copy of the URL stored under shortCode.
func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.RetrieveByShortCode"

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.urls[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return url.Clone(), nil
}

// RetrieveAndRecordClick builds a click with newClick and appends it to the URL stored
// under shortCode, returning a copy of the URL.
// newClick runs under the write lock, so click timestamps are non-decreasing in insertion
// order as long as newClick reads a monotonic clock. The expiry check uses the click
// timestamp; expired URLs are left untouched.
func (r *URLRepository) RetrieveAndRecordClick(ctx context.Context, shortCode string, newClick func() entity.Click) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.RetrieveAndRecordClick"

	r.mu.Lock()
	defer r.mu.Unlock()

	url, ok := r.urls[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	click := newClick()

	if url.IsExpired(click.Timestamp) {
		return nil, fmt.Errorf("%s: %w", op, &entity.ExpiredError{ExpiresAt: url.ExpiresAt})
	}

	url.Clicks = append(url.Clicks, click)

	return url.Clone(), nil
}

// Count returns the number of stored URLs, expired ones included.
func (r *URLRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.urls), nil
}
