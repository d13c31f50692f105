// Package usecase implements URL shortening, slug resolution and usage statistics.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
	"github.com/vadimbarashkov/slug-shortener/internal/slug"
	"github.com/vadimbarashkov/slug-shortener/pkg/urlnorm"
)

const maxAttempts = 5

type urlRepository interface {
	// FindBySlug returns entity.ErrURLNotFound if the slug is unknown.
	FindBySlug(ctx context.Context, slug string) (*entity.URL, error)
	// FindByOriginalURL returns entity.ErrURLNotFound if the URL was never shortened.
	FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error)
	// CreateUnique atomically inserts a new URL. It returns an error wrapping
	// entity.ErrUniqueViolation if the slug or the original URL already exists.
	CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error)
	// IncrementHits atomically adds one hit. Unknown slugs are ignored.
	IncrementHits(ctx context.Context, slug string) error
	// Stats returns entity.ErrURLNotFound if the slug is unknown.
	Stats(ctx context.Context, slug string) (*entity.URLStats, error)
}

type slugGenerator interface {
	Generate() (string, error)
}

// Option configures a URLUseCase.
type Option func(*URLUseCase)

// WithClock sets the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

// WithSlugGenerator sets the generator of candidate slugs.
func WithSlugGenerator(g slugGenerator) Option {
	return func(uc *URLUseCase) {
		uc.slugGen = g
	}
}

// URLUseCase shortens URLs and resolves slugs on top of a URL repository.
// It keeps no state between calls and is safe for concurrent use.
type URLUseCase struct {
	urlRepo  urlRepository
	slugGen  slugGenerator
	validate *validator.Validate
	now      func() time.Time
}

// New creates a URLUseCase backed by urlRepo.
func New(urlRepo urlRepository, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:  urlRepo,
		slugGen:  slug.NewGenerator(),
		validate: newValidate(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// ShortenURL returns the URL record for in.URL, creating it on first use.
//
// An already shortened URL is returned unchanged, even if in.ExpiresInDays
// differs from the stored expiration. Otherwise a random slug is generated and
// stored, retrying on slug collisions up to a fixed number of attempts.
func (uc *URLUseCase) ShortenURL(ctx context.Context, in entity.ShortenInput) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	in.URL = strings.TrimSpace(in.URL)

	if err := uc.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, &entity.ValidationError{Err: err})
	}

	originalURL, err := urlnorm.Normalize(in.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &entity.ValidationError{Err: err})
	}

	url, err := uc.urlRepo.FindByOriginalURL(ctx, originalURL)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	expiresAt := uc.expiresAt(in.ExpiresInDays)

	for i := 0; i < maxAttempts; i++ {
		s, err := uc.slugGen.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		url, err := uc.urlRepo.CreateUnique(ctx, s, originalURL, expiresAt)
		if err == nil {
			return url, nil
		}

		if errors.Is(err, entity.ErrOriginalURLExists) {
			url, err := uc.urlRepo.FindByOriginalURL(ctx, originalURL)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to find concurrently created url: %w", op, err)
			}

			return url, nil
		}

		if errors.Is(err, entity.ErrUniqueViolation) {
			continue
		}

		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrSlugExhausted)
}

func (uc *URLUseCase) expiresAt(days *int) *time.Time {
	if days == nil {
		return nil
	}

	t := uc.now().AddDate(0, 0, *days)
	return &t
}

// ResolveSlug returns the target of the slug and whether it has expired.
// A hit is counted only for URLs that are not expired.
func (uc *URLUseCase) ResolveSlug(ctx context.Context, slug string) (*entity.Resolution, error) {
	const op = "usecase.URLUseCase.ResolveSlug"

	url, err := uc.urlRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve slug: %w", op, err)
	}

	expired := url.IsExpired(uc.now())

	if !expired {
		if err := uc.urlRepo.IncrementHits(ctx, slug); err != nil {
			return nil, fmt.Errorf("%s: failed to increment hits: %w", op, err)
		}
	}

	return &entity.Resolution{
		Target:  url.OriginalURL,
		Expired: expired,
	}, nil
}

// GetURLStats returns the statistics of the slug.
func (uc *URLUseCase) GetURLStats(ctx context.Context, slug string) (*entity.URLStats, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	stats, err := uc.urlRepo.Stats(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return stats, nil
}
