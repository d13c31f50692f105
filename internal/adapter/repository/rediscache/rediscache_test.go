package rediscache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
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

type MockClient struct {
	mock.Mock
}

func (c *MockClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := c.Called(ctx, key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func (c *MockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := c.Called(ctx, key, value, expiration)
	return redis.NewStatusResult(args.String(0), args.Error(1))
}

type URLRepositoryTestSuite struct {
	suite.Suite
	errUnknown  error
	ttl         time.Duration
	url         *entity.URL
	cached      string
	urlRepoMock *MockURLRepository
	clientMock  *MockClient
	repo        *URLRepository
}

func (suite *URLRepositoryTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.ttl = time.Hour

	expiresAt := time.Date(2024, 1, 22, 12, 0, 0, 0, time.UTC)
	suite.url = &entity.URL{
		ID:          1,
		Slug:        "abc123",
		OriginalURL: "https://example.com/",
		CreatedAt:   time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Hits:        10,
		ExpiresAt:   &expiresAt,
	}
	suite.cached = `{"id":1,"slug":"abc123","original_url":"https://example.com/",` +
		`"created_at":"2024-01-15T12:00:00Z","expires_at":"2024-01-22T12:00:00Z"}`
}

func (suite *URLRepositoryTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.clientMock = new(MockClient)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.repo = NewURLRepository(suite.urlRepoMock, suite.clientMock, suite.ttl, logger)
}

func (suite *URLRepositoryTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
	suite.clientMock.AssertExpectations(suite.T())
}

func (suite *URLRepositoryTestSuite) TestFindBySlug() {
	suite.Run("cache hit", func() {
		suite.clientMock.
			On("Get", context.Background(), "url:slug:abc123").
			Once().
			Return(suite.cached, nil)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal("abc123", url.Slug)
		suite.Equal("https://example.com/", url.OriginalURL)
		suite.True(suite.url.CreatedAt.Equal(url.CreatedAt))
		suite.Require().NotNil(url.ExpiresAt)
		suite.True(suite.url.ExpiresAt.Equal(*url.ExpiresAt))
		suite.Zero(url.Hits)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "FindBySlug", mock.Anything, mock.Anything)
	})

	suite.Run("cache miss", func() {
		suite.clientMock.
			On("Get", context.Background(), "url:slug:abc123").
			Once().
			Return("", redis.Nil)
		suite.urlRepoMock.
			On("FindBySlug", context.Background(), "abc123").
			Once().
			Return(suite.url, nil)
		suite.clientMock.
			On("Set", context.Background(), "url:slug:abc123", mock.MatchedBy(func(v []byte) bool {
				return string(v) == suite.cached
			}), suite.ttl).
			Once().
			Return("OK", nil)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.NoError(err)
		suite.Same(suite.url, url)
	})

	suite.Run("url not found is not cached", func() {
		suite.clientMock.
			On("Get", context.Background(), "url:slug:abc123").
			Once().
			Return("", redis.Nil)
		suite.urlRepoMock.
			On("FindBySlug", context.Background(), "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
		suite.clientMock.AssertNotCalled(suite.T(), "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("cache errors fall through", func() {
		suite.clientMock.
			On("Get", context.Background(), "url:slug:abc123").
			Once().
			Return("", suite.errUnknown)
		suite.urlRepoMock.
			On("FindBySlug", context.Background(), "abc123").
			Once().
			Return(suite.url, nil)
		suite.clientMock.
			On("Set", context.Background(), "url:slug:abc123", mock.Anything, suite.ttl).
			Once().
			Return("", suite.errUnknown)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.NoError(err)
		suite.Same(suite.url, url)
	})

	suite.Run("corrupted entry falls through", func() {
		suite.clientMock.
			On("Get", context.Background(), "url:slug:abc123").
			Once().
			Return("not json", nil)
		suite.urlRepoMock.
			On("FindBySlug", context.Background(), "abc123").
			Once().
			Return(suite.url, nil)
		suite.clientMock.
			On("Set", context.Background(), "url:slug:abc123", mock.Anything, suite.ttl).
			Once().
			Return("OK", nil)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.NoError(err)
		suite.Same(suite.url, url)
	})
}

func (suite *URLRepositoryTestSuite) TestOtherMethods() {
	suite.Run("find by original url", func() {
		suite.urlRepoMock.
			On("FindByOriginalURL", context.Background(), "https://example.com/").
			Once().
			Return(suite.url, nil)

		url, err := suite.repo.FindByOriginalURL(context.Background(), "https://example.com/")

		suite.NoError(err)
		suite.Same(suite.url, url)
	})

	suite.Run("create unique populates cache", func() {
		suite.urlRepoMock.
			On("CreateUnique", context.Background(), "abc123", "https://example.com/", suite.url.ExpiresAt).
			Once().
			Return(suite.url, nil)
		suite.clientMock.
			On("Set", context.Background(), "url:slug:abc123", mock.Anything, suite.ttl).
			Once().
			Return("OK", nil)

		url, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", suite.url.ExpiresAt)

		suite.NoError(err)
		suite.Same(suite.url, url)
	})

	suite.Run("create unique error", func() {
		suite.urlRepoMock.
			On("CreateUnique", context.Background(), "abc123", "https://example.com/", (*time.Time)(nil)).
			Once().
			Return(nil, entity.ErrSlugExists)

		url, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", nil)

		suite.ErrorIs(err, entity.ErrSlugExists)
		suite.Nil(url)
	})

	suite.Run("increment hits", func() {
		suite.urlRepoMock.
			On("IncrementHits", context.Background(), "abc123").
			Once().
			Return(suite.errUnknown)

		err := suite.repo.IncrementHits(context.Background(), "abc123")

		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("stats", func() {
		suite.urlRepoMock.
			On("Stats", context.Background(), "abc123").
			Once().
			Return(suite.url.Stats(), nil)

		stats, err := suite.repo.Stats(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal(int64(10), stats.Hits)
	})
}

func TestURLRepository(t *testing.T) {
	suite.Run(t, new(URLRepositoryTestSuite))
}
