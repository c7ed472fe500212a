// Package service answers free-text queries over indexed submissions.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blurifier/internal/search/index"
	dErrors "blurifier/pkg/domain-errors"
)

var tracer = otel.Tracer("blurifier/internal/search/service")

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Index is the search backend.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Search(ctx context.Context, text string, size, fuzziness int) ([]index.Document, error)
}

// Page is one window over the backend's result set.
type Page struct {
	Results []index.Document
	Total   int
}

// Metrics counts queries by outcome and their latency.
type Metrics struct {
	Queries  *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blurifier_search_queries_total",
			Help: "Search queries by outcome",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "blurifier_search_duration_seconds",
			Help:    "Search backend latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m != nil {
		m.Queries.WithLabelValues(outcome).Inc()
		m.Duration.Observe(d.Seconds())
	}
}

type Service struct {
	index      Index
	maxResults int
	fuzziness  int
	logger     *slog.Logger
	metrics    *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds a search service. maxResults caps how many hits the backend
// returns before pagination.
func New(idx Index, maxResults, fuzziness int, opts ...Option) *Service {
	s := &Service{
		index:      idx,
		maxResults: maxResults,
		fuzziness:  fuzziness,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates the query, makes sure the index exists, and returns the
// requested window of matches.
func (s *Service) Search(ctx context.Context, text string, limit, offset int) (*Page, error) {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "query must not be empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "offset must not be negative")
	}

	start := time.Now()
	if err := s.index.EnsureIndex(ctx); err != nil {
		s.fail(ctx, span, err, start)
		return nil, dErrors.Wrap(err, dErrors.CodeIndex, "search index unavailable")
	}
	docs, err := s.index.Search(ctx, text, s.maxResults, s.fuzziness)
	if err != nil {
		s.fail(ctx, span, err, start)
		return nil, dErrors.Wrap(err, dErrors.CodeIndex, "search failed")
	}
	s.metrics.observe("ok", time.Since(start))
	span.SetAttributes(attribute.Int("hits", len(docs)))

	page := &Page{Total: len(docs), Results: []index.Document{}}
	if offset < len(docs) {
		end := min(offset+limit, len(docs))
		page.Results = docs[offset:end]
	}
	return page, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, err error, start time.Time) {
	span.SetStatus(codes.Error, err.Error())
	s.metrics.observe("error", time.Since(start))
	s.logger.ErrorContext(ctx, "search backend failure", "error", err)
}
