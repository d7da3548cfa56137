// Package memory provides an in-process URL repository.
//
// Records live in a sync.Map keyed by short code. Every record carries its own
// mutex, so operations on one short code are serialized while unrelated codes
// proceed in parallel. A removed record stays in the map as a tombstone; the
// tombstone makes the short code unavailable for later inserts.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vadimbarashkov/url-shortener/internal/entity"
)

type urlRecord struct {
	mu      sync.Mutex
	url     entity.URL
	removed bool
}

// URLRepository is a concurrency-safe, in-memory store of shortened URLs.
type URLRepository struct {
	records sync.Map // short code -> *urlRecord
	now     func() time.Time
}

// Option configures a URLRepository.
type Option func(*URLRepository)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *URLRepository) {
		r.now = now
	}
}

func NewURLRepository(opts ...Option) *URLRepository {
	r := &URLRepository{
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Save inserts a new record. It fails with entity.ErrShortCodeExists if the
// short code is live or has been removed before.
func (r *URLRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.Save"

	now := r.now()
	rec := &urlRecord{
		url: entity.URL{
			ShortCode:   shortCode,
			OriginalURL: originalURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	// Once stored, rec is shared and may only be read under rec.mu.
	url := rec.url

	if _, loaded := r.records.LoadOrStore(shortCode, rec); loaded {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	return &url, nil
}

// RetrieveByShortCode returns a copy of the live record without touching its statistics.
func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.RetrieveByShortCode"

	url, err := r.withRecord(shortCode, func(rec *urlRecord) {})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

// RetrieveAndUpdateStats increments the access count and returns the updated record.
func (r *URLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.RetrieveAndUpdateStats"

	url, err := r.withRecord(shortCode, func(rec *urlRecord) {
		rec.url.AccessCount++
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

// Update replaces the original URL and refreshes UpdatedAt.
func (r *URLRepository) Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.Update"

	url, err := r.withRecord(shortCode, func(rec *urlRecord) {
		rec.url.OriginalURL = originalURL

		now := r.now()
		if now.Before(rec.url.CreatedAt) {
			now = rec.url.CreatedAt
		}
		rec.url.UpdatedAt = now
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

// Remove turns the record into a tombstone.
func (r *URLRepository) Remove(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.memory.URLRepository.Remove"

	_, err := r.withRecord(shortCode, func(rec *urlRecord) {
		rec.removed = true
		rec.url = entity.URL{ShortCode: shortCode}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// withRecord runs fn on the live record for shortCode while holding its lock
// and returns a snapshot taken before the lock is released.
func (r *URLRepository) withRecord(shortCode string, fn func(rec *urlRecord)) (*entity.URL, error) {
	v, ok := r.records.Load(shortCode)
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	rec := v.(*urlRecord)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.removed {
		return nil, entity.ErrURLNotFound
	}

	fn(rec)

	url := rec.url
	return &url, nil
}
