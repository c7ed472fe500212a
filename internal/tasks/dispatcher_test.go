package tasks_test

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"blurifier/internal/submission/models"
	"blurifier/internal/tasks"
	"blurifier/internal/tasks/mocks"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	publisher  *mocks.MockPublisher
	statuses   *mocks.MockStatusStore
	metrics    *tasks.Metrics
	dispatcher *tasks.Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.statuses = mocks.NewMockStatusStore(s.ctrl)
	s.metrics = tasks.NewMetrics(prometheus.NewRegistry())
	s.dispatcher = tasks.NewDispatcher(s.publisher, s.statuses,
		tasks.WithDispatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tasks.WithDispatcherMetrics(s.metrics),
	)
}

func (s *DispatcherSuite) TearDownTest() {
	s.ctrl.Finish()
}

// =============================================================================
// Enqueue
// =============================================================================

func (s *DispatcherSuite) TestEnqueuePublishesClaimedTask() {
	h := id.HashContent("x")
	s.statuses.EXPECT().Claim(gomock.Any(), h).Return(true, nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task tasks.Task) error {
			s.Equal(h, task.Hash)
			s.False(task.EnqueuedAt.IsZero())
			return nil
		})

	s.Require().NoError(s.dispatcher.Enqueue(context.Background(), h))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Enqueued))
}

func (s *DispatcherSuite) TestEnqueueSkipsWhenAlreadyClaimed() {
	h := id.HashContent("x")
	s.statuses.EXPECT().Claim(gomock.Any(), h).Return(false, nil)
	// no Publish expected

	s.Require().NoError(s.dispatcher.Enqueue(context.Background(), h))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Deduplicated))
}

func (s *DispatcherSuite) TestEnqueuePublishFailureReleasesClaim() {
	h := id.HashContent("x")
	s.statuses.EXPECT().Claim(gomock.Any(), h).Return(true, nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	s.statuses.EXPECT().Release(gomock.Any(), h).Return(nil)

	err := s.dispatcher.Enqueue(context.Background(), h)
	s.True(dErrors.HasCode(err, dErrors.CodeQueue))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EnqueueFails))
}

func (s *DispatcherSuite) TestEnqueueClaimFailureIsQueueError() {
	h := id.HashContent("x")
	s.statuses.EXPECT().Claim(gomock.Any(), h).Return(false, errors.New("redis down"))

	err := s.dispatcher.Enqueue(context.Background(), h)
	s.True(dErrors.HasCode(err, dErrors.CodeQueue))
}

// =============================================================================
// Status
// =============================================================================

func (s *DispatcherSuite) TestStatusPassesThrough() {
	h := id.HashContent("x")
	s.statuses.EXPECT().Get(gomock.Any(), h).Return(models.Failure{Detail: "boom"}, nil)

	got, err := s.dispatcher.Status(context.Background(), h)
	s.Require().NoError(err)
	s.Equal(models.Failure{Detail: "boom"}, got)
}

func (s *DispatcherSuite) TestStatusBackendErrorIsCoded() {
	h := id.HashContent("x")
	s.statuses.EXPECT().Get(gomock.Any(), h).Return(nil, errors.New("redis down"))

	_, err := s.dispatcher.Status(context.Background(), h)
	s.True(dErrors.HasCode(err, dErrors.CodeQueue))
}
