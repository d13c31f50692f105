// Package rediscache caches slug lookups of a URL repository in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

const keyPrefix = "url:slug:"

type urlRepository interface {
	FindBySlug(ctx context.Context, slug string) (*entity.URL, error)
	FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error)
	CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error)
	IncrementHits(ctx context.Context, slug string) error
	Stats(ctx context.Context, slug string) (*entity.URLStats, error)
}

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// cachedURL holds the immutable part of a URL. Hits are never cached.
type cachedURL struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (c *cachedURL) toEntity() *entity.URL {
	return &entity.URL{
		ID:          c.ID,
		Slug:        c.Slug,
		OriginalURL: c.OriginalURL,
		CreatedAt:   c.CreatedAt,
		ExpiresAt:   c.ExpiresAt,
	}
}

// URLRepository is a cache-aside decorator around another URL repository.
//
// Only FindBySlug is served from the cache, and URLs returned from a cache hit
// carry zero Hits. CreateUnique populates the cache. Cache failures are logged
// and the request falls through to the wrapped repository.
type URLRepository struct {
	next   urlRepository
	client client
	ttl    time.Duration
	logger *slog.Logger
}

func NewURLRepository(next urlRepository, client client, ttl time.Duration, logger *slog.Logger) *URLRepository {
	return &URLRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *URLRepository) FindBySlug(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "adapter.repository.rediscache.URLRepository.FindBySlug"

	if url, ok := r.get(ctx, slug); ok {
		return url, nil
	}

	url, err := r.next.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.set(ctx, url)

	return url, nil
}

func (r *URLRepository) get(ctx context.Context, slug string) (*entity.URL, bool) {
	data, err := r.client.Get(ctx, keyPrefix+slug).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to read url from cache", slog.String("slug", slug), slog.Any("error", err))
		}
		return nil, false
	}

	var cached cachedURL
	if err := json.Unmarshal(data, &cached); err != nil {
		r.logger.Warn("failed to decode cached url", slog.String("slug", slug), slog.Any("error", err))
		return nil, false
	}

	return cached.toEntity(), true
}

func (r *URLRepository) set(ctx context.Context, url *entity.URL) {
	data, err := json.Marshal(cachedURL{
		ID:          url.ID,
		Slug:        url.Slug,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	})
	if err != nil {
		r.logger.Warn("failed to encode url for cache", slog.String("slug", url.Slug), slog.Any("error", err))
		return
	}

	if err := r.client.Set(ctx, keyPrefix+url.Slug, data, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to write url to cache", slog.String("slug", url.Slug), slog.Any("error", err))
	}
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	return r.next.FindByOriginalURL(ctx, originalURL)
}

func (r *URLRepository) CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	const op = "adapter.repository.rediscache.URLRepository.CreateUnique"

	url, err := r.next.CreateUnique(ctx, slug, originalURL, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.set(ctx, url)

	return url, nil
}

func (r *URLRepository) IncrementHits(ctx context.Context, slug string) error {
	return r.next.IncrementHits(ctx, slug)
}

func (r *URLRepository) Stats(ctx context.Context, slug string) (*entity.URLStats, error) {
	return r.next.Stats(ctx, slug)
}
