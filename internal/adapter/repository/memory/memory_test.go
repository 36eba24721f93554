package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shorturls/internal/entity"
)

type URLRepositoryTestSuite struct {
	suite.Suite
	now  time.Time
	repo *URLRepository
}

func (suite *URLRepositoryTestSuite) SetupSuite() {
	suite.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *URLRepositoryTestSuite) SetupSubTest() {
	suite.repo = NewURLRepository()
}

func (suite *URLRepositoryTestSuite) newURL(shortCode string) *entity.URL {
	return &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: "https://example.com",
		CreatedAt:   suite.now,
		ExpiresAt:   suite.now.Add(30 * time.Minute),
	}
}

func clickOf(c entity.Click) func() entity.Click {
	return func() entity.Click { return c }
}

func (suite *URLRepositoryTestSuite) TestSave() {
	suite.Run("short code exists", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		other := suite.newURL("abc123")
		other.OriginalURL = "https://other.example.com"

		err := suite.repo.Save(context.Background(), other)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)

		url, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")
		suite.NoError(err)
		suite.Equal("https://example.com", url.OriginalURL)
	})

	suite.Run("success", func() {
		err := suite.repo.Save(context.Background(), suite.newURL("abc123"))

		suite.NoError(err)

		count, err := suite.repo.Count(context.Background())
		suite.NoError(err)
		suite.Equal(1, count)
	})

	suite.Run("stored copy is isolated from caller", func() {
		url := suite.newURL("abc123")
		suite.Require().NoError(suite.repo.Save(context.Background(), url))

		url.OriginalURL = "https://changed.example.com"

		got, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")
		suite.NoError(err)
		suite.Equal("https://example.com", got.OriginalURL)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveByShortCode() {
	suite.Run("url not found", func() {
		url, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		url, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal("abc123", url.ShortCode)
		suite.Equal(suite.now.Add(30*time.Minute), url.ExpiresAt)
		suite.Empty(url.Clicks)
	})
}

func (suite *URLRepositoryTestSuite) TestRetrieveAndRecordClick() {
	suite.Run("url not found", func() {
		url, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", clickOf(entity.Click{Timestamp: suite.now}))

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("url expired", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		click := entity.Click{Timestamp: suite.now.Add(31 * time.Minute), Referrer: entity.DirectReferrer}
		url, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", clickOf(click))

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLExpired)
		suite.Nil(url)

		var expiredErr *entity.ExpiredError
		suite.Require().True(errors.As(err, &expiredErr))
		suite.Equal(suite.now.Add(30*time.Minute), expiredErr.ExpiresAt)

		stored, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")
		suite.NoError(err)
		suite.Empty(stored.Clicks)
	})

	suite.Run("active at exact expiry", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		click := entity.Click{Timestamp: suite.now.Add(30 * time.Minute)}
		url, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", clickOf(click))

		suite.NoError(err)
		suite.Len(url.Clicks, 1)
	})

	suite.Run("success", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		first := entity.Click{Timestamp: suite.now.Add(time.Minute), Referrer: entity.DirectReferrer, Location: "India"}
		second := entity.Click{Timestamp: suite.now.Add(2 * time.Minute), Referrer: "https://ref.example.com", Location: "India"}

		_, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", clickOf(first))
		suite.NoError(err)

		url, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", clickOf(second))
		suite.NoError(err)
		suite.Equal([]entity.Click{first, second}, url.Clicks)

		url.Clicks[0].Referrer = "changed"

		stored, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")
		suite.NoError(err)
		suite.Equal([]entity.Click{first, second}, stored.Clicks)
	})
}

func (suite *URLRepositoryTestSuite) TestConcurrentAccess() {
	suite.Run("one winner per short code", func() {
		const workers = 50

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				if err := suite.repo.Save(context.Background(), suite.newURL("abc123")); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		suite.Equal(1, successes)
	})

	suite.Run("every click is recorded", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		const workers = 100

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				click := entity.Click{Timestamp: suite.now, Referrer: fmt.Sprintf("ref-%d", i)}
				_, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", clickOf(click))
				suite.NoError(err)
			}(i)
		}
		wg.Wait()

		url, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")
		suite.NoError(err)
		suite.Equal(workers, url.TotalClicks())
	})

	suite.Run("clicks are stored in timestamp order", func() {
		suite.Require().NoError(suite.repo.Save(context.Background(), suite.newURL("abc123")))

		const workers = 50

		var (
			clockMu sync.Mutex
			ticks   int
		)
		newClick := func() entity.Click {
			clockMu.Lock()
			ticks++
			ts := suite.now.Add(time.Duration(ticks) * time.Second)
			clockMu.Unlock()

			// Widen the gap between reading the clock and appending.
			time.Sleep(time.Millisecond)

			return entity.Click{Timestamp: ts}
		}

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := suite.repo.RetrieveAndRecordClick(context.Background(), "abc123", newClick)
				suite.NoError(err)
			}()
		}
		wg.Wait()

		url, err := suite.repo.RetrieveByShortCode(context.Background(), "abc123")
		suite.NoError(err)
		suite.Require().Len(url.Clicks, workers)

		for i := 1; i < len(url.Clicks); i++ {
			suite.False(url.Clicks[i].Timestamp.Before(url.Clicks[i-1].Timestamp),
				"click %d at %s stored after click at %s", i, url.Clicks[i].Timestamp, url.Clicks[i-1].Timestamp)
		}
	})
}

func TestURLRepository(t *testing.T) {
	suite.Run(t, new(URLRepositoryTestSuite))
}
