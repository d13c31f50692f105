package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

type URLRepositoryTestSuite struct {
	suite.Suite
	repo *URLRepository
}

func (suite *URLRepositoryTestSuite) SetupSubTest() {
	suite.repo = NewURLRepository()
}

func (suite *URLRepositoryTestSuite) TestCreateUnique() {
	suite.Run("success", func() {
		expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

		url, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", &expiresAt)

		suite.NoError(err)
		suite.Equal(int64(1), url.ID)
		suite.Equal("abc123", url.Slug)
		suite.Equal("https://example.com/", url.OriginalURL)
		suite.Zero(url.Hits)
		suite.False(url.CreatedAt.IsZero())
		suite.Equal(expiresAt, *url.ExpiresAt)
	})

	suite.Run("ids are sequential", func() {
		first, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/a", nil)
		suite.Require().NoError(err)

		second, err := suite.repo.CreateUnique(context.Background(), "def456", "https://example.com/b", nil)
		suite.Require().NoError(err)

		suite.Equal(int64(1), first.ID)
		suite.Equal(int64(2), second.ID)
	})

	suite.Run("ids are per instance", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/a", nil)
		suite.Require().NoError(err)

		other := NewURLRepository()
		url, err := other.CreateUnique(context.Background(), "abc123", "https://example.com/a", nil)

		suite.NoError(err)
		suite.Equal(int64(1), url.ID)
	})

	suite.Run("slug exists", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/a", nil)
		suite.Require().NoError(err)

		url, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/b", nil)

		suite.ErrorIs(err, entity.ErrSlugExists)
		suite.ErrorIs(err, entity.ErrUniqueViolation)
		suite.Nil(url)
	})

	suite.Run("original url exists", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/a", nil)
		suite.Require().NoError(err)

		url, err := suite.repo.CreateUnique(context.Background(), "def456", "https://example.com/a", nil)

		suite.ErrorIs(err, entity.ErrOriginalURLExists)
		suite.ErrorIs(err, entity.ErrUniqueViolation)
		suite.Nil(url)
	})

	suite.Run("id not reused after failure", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/a", nil)
		suite.Require().NoError(err)
		_, err = suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/b", nil)
		suite.Require().Error(err)

		url, err := suite.repo.CreateUnique(context.Background(), "def456", "https://example.com/b", nil)

		suite.NoError(err)
		suite.Equal(int64(2), url.ID)
	})

	suite.Run("canceled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		url, err := suite.repo.CreateUnique(ctx, "abc123", "https://example.com/", nil)

		suite.ErrorIs(err, context.Canceled)
		suite.Nil(url)
	})

	suite.Run("concurrent create of the same url", func() {
		const n = 50

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)

		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := suite.repo.CreateUnique(context.Background(), fmt.Sprintf("s%d", i), "https://example.com/", nil)
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		suite.Equal(1, successes)
	})
}

func (suite *URLRepositoryTestSuite) TestFindBySlug() {
	suite.Run("url not found", func() {
		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", nil)
		suite.Require().NoError(err)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal("abc123", url.Slug)
		suite.Equal("https://example.com/", url.OriginalURL)
		suite.Nil(url.ExpiresAt)
	})

	suite.Run("returns copy", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", nil)
		suite.Require().NoError(err)

		url, err := suite.repo.FindBySlug(context.Background(), "abc123")
		suite.Require().NoError(err)
		url.Hits = 100

		stats, err := suite.repo.Stats(context.Background(), "abc123")
		suite.Require().NoError(err)
		suite.Zero(stats.Hits)
	})
}

func (suite *URLRepositoryTestSuite) TestFindByOriginalURL() {
	suite.Run("url not found", func() {
		url, err := suite.repo.FindByOriginalURL(context.Background(), "https://example.com/")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", nil)
		suite.Require().NoError(err)

		url, err := suite.repo.FindByOriginalURL(context.Background(), "https://example.com/")

		suite.NoError(err)
		suite.Equal("abc123", url.Slug)
	})
}

func (suite *URLRepositoryTestSuite) TestIncrementHits() {
	suite.Run("unknown slug is ignored", func() {
		err := suite.repo.IncrementHits(context.Background(), "abc123")

		suite.NoError(err)
	})

	suite.Run("concurrent increments", func() {
		const n = 100

		_, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", nil)
		suite.Require().NoError(err)

		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = suite.repo.IncrementHits(context.Background(), "abc123")
			}()
		}
		wg.Wait()

		stats, err := suite.repo.Stats(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal(int64(n), stats.Hits)
	})
}

func (suite *URLRepositoryTestSuite) TestStats() {
	suite.Run("url not found", func() {
		stats, err := suite.repo.Stats(context.Background(), "abc123")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(stats)
	})

	suite.Run("success", func() {
		created, err := suite.repo.CreateUnique(context.Background(), "abc123", "https://example.com/", nil)
		suite.Require().NoError(err)
		suite.Require().NoError(suite.repo.IncrementHits(context.Background(), "abc123"))

		stats, err := suite.repo.Stats(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal("https://example.com/", stats.OriginalURL)
		suite.Equal(created.CreatedAt, stats.CreatedAt)
		suite.Equal(int64(1), stats.Hits)
		suite.Nil(stats.ExpiresAt)
	})
}

func TestURLRepository(t *testing.T) {
	suite.Run(t, new(URLRepositoryTestSuite))
}
