package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"blurifier/internal/submission/models"
	"blurifier/internal/submission/store"
	id "blurifier/pkg/domain"
)

// submissionStore is the behaviour every backend must share.
type submissionStore interface {
	FindByHash(ctx context.Context, hash id.ContentHash) (*models.Submission, error)
	GetOrCreate(ctx context.Context, content string, now time.Time) (*models.Submission, bool, error)
	SaveProcessed(ctx context.Context, hash id.ContentHash, processed string, now time.Time) error
	ListUnindexed(ctx context.Context, limit int) ([]*models.Submission, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*models.Submission, error)
	BulkUpdate(ctx context.Context, updates []models.Update) error
	ResetIndexed(ctx context.Context) (int64, error)
}

// ContractSuite runs the same behavioural checks against each backend.
// Embedding suites set store in SetupTest.
type ContractSuite struct {
	suite.Suite
	store submissionStore
	now   time.Time
}

func (s *ContractSuite) ctx() context.Context {
	return context.Background()
}

func (s *ContractSuite) base() time.Time {
	if s.now.IsZero() {
		s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return s.now
}

// =============================================================================
// GetOrCreate
// =============================================================================

func (s *ContractSuite) TestGetOrCreateIsIdempotent() {
	first, created, err := s.store.GetOrCreate(s.ctx(), "hello world", s.base())
	s.Require().NoError(err)
	s.True(created)
	s.Equal(id.HashContent("hello world"), first.Hash)
	s.Nil(first.ProcessedContent)
	s.Nil(first.IndexedAt)

	second, created, err := s.store.GetOrCreate(s.ctx(), "hello world", s.base().Add(time.Minute))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.Hash, second.Hash)
	s.True(first.CreatedAt.Equal(second.CreatedAt), "existing row keeps its creation time")
}

// Justification: uniqueness by hash must hold under concurrent submitters,
// which unit tests of the service cannot observe against a real backend.
func (s *ContractSuite) TestConcurrentGetOrCreateCreatesOneRow() {
	const goroutines = 20
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		failed  atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := s.store.GetOrCreate(s.ctx(), "same content", s.base())
			if err != nil {
				failed.Add(1)
				return
			}
			if isNew {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failed.Load())
	s.Equal(int32(1), created.Load(), "exactly one caller creates the row")

	rows, err := s.store.ListUnprocessed(s.ctx(), 100)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

// =============================================================================
// FindByHash / SaveProcessed
// =============================================================================

func (s *ContractSuite) TestFindByHashUnknown() {
	_, err := s.store.FindByHash(s.ctx(), id.HashContent("never stored"))
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *ContractSuite) TestSaveProcessedKeepsFirstValue() {
	sub, _, err := s.store.GetOrCreate(s.ctx(), "this is a damn test", s.base())
	s.Require().NoError(err)

	s.Require().NoError(s.store.SaveProcessed(s.ctx(), sub.Hash, "this is a **** test", s.base().Add(time.Second)))
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), sub.Hash, "something else", s.base().Add(2*time.Second)))

	got, err := s.store.FindByHash(s.ctx(), sub.Hash)
	s.Require().NoError(err)
	s.Require().NotNil(got.ProcessedContent)
	s.Equal("this is a **** test", *got.ProcessedContent)
	s.Equal("this is a damn test", got.OriginalContent)
	s.True(got.UpdatedAt.Equal(s.base().Add(time.Second)))
}

func (s *ContractSuite) TestSaveProcessedUnknownHash() {
	err := s.store.SaveProcessed(s.ctx(), id.HashContent("ghost"), "x", s.base())
	s.ErrorIs(err, store.ErrNotFound)
}

// =============================================================================
// Listing and bulk updates
// =============================================================================

func (s *ContractSuite) TestListUnprocessedAndUnindexed() {
	a, _, _ := s.store.GetOrCreate(s.ctx(), "a", s.base())
	b, _, _ := s.store.GetOrCreate(s.ctx(), "b", s.base().Add(time.Second))
	_, _, _ = s.store.GetOrCreate(s.ctx(), "c", s.base().Add(2*time.Second))
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), a.Hash, "A", s.base().Add(3*time.Second)))

	unprocessed, err := s.store.ListUnprocessed(s.ctx(), 10)
	s.Require().NoError(err)
	s.Len(unprocessed, 2)
	s.Equal(b.Hash, unprocessed[0].Hash, "oldest first")

	limited, err := s.store.ListUnprocessed(s.ctx(), 1)
	s.Require().NoError(err)
	s.Len(limited, 1)

	unindexed, err := s.store.ListUnindexed(s.ctx(), 10)
	s.Require().NoError(err)
	s.Require().Len(unindexed, 1)
	s.Equal(a.Hash, unindexed[0].Hash)
}

func (s *ContractSuite) TestBulkUpdateSetsWatermark() {
	a, _, _ := s.store.GetOrCreate(s.ctx(), "a", s.base())
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), a.Hash, "A", s.base()))

	at := s.base().Add(time.Minute)
	s.Require().NoError(s.store.BulkUpdate(s.ctx(), []models.Update{
		{Hash: a.Hash, IndexedAt: &at, UpdatedAt: at},
	}))

	got, err := s.store.FindByHash(s.ctx(), a.Hash)
	s.Require().NoError(err)
	s.Require().NotNil(got.IndexedAt)
	s.True(got.IndexedAt.Equal(at))

	unindexed, err := s.store.ListUnindexed(s.ctx(), 10)
	s.Require().NoError(err)
	s.Empty(unindexed)
}

func (s *ContractSuite) TestBulkUpdateNeverOverwritesProcessedOrClearsWatermark() {
	a, _, _ := s.store.GetOrCreate(s.ctx(), "a", s.base())
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), a.Hash, "first", s.base()))
	at := s.base().Add(time.Minute)
	s.Require().NoError(s.store.BulkUpdate(s.ctx(), []models.Update{{Hash: a.Hash, IndexedAt: &at, UpdatedAt: at}}))

	other := "second"
	later := at.Add(time.Minute)
	s.Require().NoError(s.store.BulkUpdate(s.ctx(), []models.Update{
		{Hash: a.Hash, ProcessedContent: &other, UpdatedAt: later},
	}))

	got, err := s.store.FindByHash(s.ctx(), a.Hash)
	s.Require().NoError(err)
	s.Equal("first", *got.ProcessedContent)
	s.Require().NotNil(got.IndexedAt)
	s.True(got.IndexedAt.Equal(at))
}

func (s *ContractSuite) TestResetIndexedMakesRowsEligibleAgain() {
	a, _, _ := s.store.GetOrCreate(s.ctx(), "a", s.base())
	b, _, _ := s.store.GetOrCreate(s.ctx(), "b", s.base())
	_, _, _ = s.store.GetOrCreate(s.ctx(), "pending", s.base())
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), a.Hash, "A", s.base()))
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), b.Hash, "B", s.base()))
	at := s.base().Add(time.Minute)
	s.Require().NoError(s.store.BulkUpdate(s.ctx(), []models.Update{{Hash: a.Hash, IndexedAt: &at, UpdatedAt: at}}))

	n, err := s.store.ResetIndexed(s.ctx())
	s.Require().NoError(err)
	s.EqualValues(1, n)

	got, err := s.store.FindByHash(s.ctx(), a.Hash)
	s.Require().NoError(err)
	s.Nil(got.IndexedAt)
	s.Equal("A", *got.ProcessedContent)
	s.True(got.UpdatedAt.Equal(at), "reset leaves updated_at alone")

	unindexed, err := s.store.ListUnindexed(s.ctx(), 10)
	s.Require().NoError(err)
	s.Len(unindexed, 2, "both processed rows, never the pending one")

	n, err = s.store.ResetIndexed(s.ctx())
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ContractSuite) TestBulkUpdateRejectsIndexingUnprocessedRow() {
	a, _, _ := s.store.GetOrCreate(s.ctx(), "a", s.base())
	b, _, _ := s.store.GetOrCreate(s.ctx(), "b", s.base())
	s.Require().NoError(s.store.SaveProcessed(s.ctx(), a.Hash, "A", s.base()))

	at := s.base().Add(time.Minute)
	err := s.store.BulkUpdate(s.ctx(), []models.Update{
		{Hash: a.Hash, IndexedAt: &at, UpdatedAt: at},
		{Hash: b.Hash, IndexedAt: &at, UpdatedAt: at},
	})
	s.Require().Error(err)

	got, err := s.store.FindByHash(s.ctx(), a.Hash)
	s.Require().NoError(err)
	s.Nil(got.IndexedAt, "failed batch leaves earlier rows untouched")
}

func (s *ContractSuite) TestBulkUpdateEmptyBatch() {
	s.NoError(s.store.BulkUpdate(s.ctx(), nil))
}
