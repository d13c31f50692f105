// Package memory provides an in-memory URL repository for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

// URLRepository stores URLs in process memory. It is safe for concurrent use.
// Every instance has its own id sequence.
type URLRepository struct {
	mu         sync.RWMutex
	nextID     int64
	bySlug     map[string]*entity.URL
	byOriginal map[string]*entity.URL
	now        func() time.Time
}

// NewURLRepository creates an empty repository.
func NewURLRepository() *URLRepository {
	return &URLRepository{
		nextID:     1,
		bySlug:     make(map[string]*entity.URL),
		byOriginal: make(map[string]*entity.URL),
		now:        time.Now,
	}
}

func clone(url *entity.URL) *entity.URL {
	c := *url
	if url.ExpiresAt != nil {
		t := *url.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (r *URLRepository) FindBySlug(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.FindBySlug"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return clone(url), nil
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.FindByOriginalURL"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.byOriginal[originalURL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return clone(url), nil
}

func (r *URLRepository) CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.CreateUnique"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySlug[slug]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrSlugExists)
	}
	if _, ok := r.byOriginal[originalURL]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
	}

	url := &entity.URL{
		ID:          r.nextID,
		Slug:        slug,
		OriginalURL: originalURL,
		CreatedAt:   r.now(),
	}
	if expiresAt != nil {
		t := *expiresAt
		url.ExpiresAt = &t
	}

	r.nextID++
	r.bySlug[slug] = url
	r.byOriginal[originalURL] = url

	return clone(url), nil
}

func (r *URLRepository) IncrementHits(ctx context.Context, slug string) error {
	const op = "adapter.repository.memory.URLRepository.IncrementHits"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if url, ok := r.bySlug[slug]; ok {
		url.Hits++
	}

	return nil
}

func (r *URLRepository) Stats(ctx context.Context, slug string) (*entity.URLStats, error) {
	const op = "adapter.repository.memory.URLRepository.Stats"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return clone(url).Stats(), nil
}
