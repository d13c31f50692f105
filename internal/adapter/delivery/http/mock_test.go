package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

type MockURLUseCase struct {
	mock.Mock
}

func (uc *MockURLUseCase) ShortenURL(ctx context.Context, in entity.ShortenInput) (*entity.URL, error) {
	args := uc.Called(ctx, in)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (uc *MockURLUseCase) ResolveSlug(ctx context.Context, slug string) (*entity.Resolution, error) {
	args := uc.Called(ctx, slug)
	res, _ := args.Get(0).(*entity.Resolution)
	return res, args.Error(1)
}

func (uc *MockURLUseCase) GetURLStats(ctx context.Context, slug string) (*entity.URLStats, error) {
	args := uc.Called(ctx, slug)
	stats, _ := args.Get(0).(*entity.URLStats)
	return stats, args.Error(1)
}
