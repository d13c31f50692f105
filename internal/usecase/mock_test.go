package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) FindBySlug(ctx context.Context, slug string) (*entity.URL, error) {
	args := r.Called(ctx, slug)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	args := r.Called(ctx, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	args := r.Called(ctx, slug, originalURL, expiresAt)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) IncrementHits(ctx context.Context, slug string) error {
	args := r.Called(ctx, slug)
	return args.Error(0)
}

func (r *MockURLRepository) Stats(ctx context.Context, slug string) (*entity.URLStats, error) {
	args := r.Called(ctx, slug)
	stats, _ := args.Get(0).(*entity.URLStats)
	return stats, args.Error(1)
}

type MockSlugGenerator struct {
	mock.Mock
}

func (g *MockSlugGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}
