package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"blurifier/internal/indexing"
	"blurifier/internal/platform/config"
	"blurifier/internal/platform/kafka"
	"blurifier/internal/platform/metrics"
	redisclient "blurifier/internal/platform/redis"
	"blurifier/internal/redaction"
	"blurifier/internal/search/index"
	searchhandler "blurifier/internal/search/handler"
	searchservice "blurifier/internal/search/service"
	"blurifier/internal/submission/cache"
	submissionhandler "blurifier/internal/submission/handler"
	"blurifier/internal/submission/service"
	"blurifier/internal/submission/store"
	"blurifier/internal/tasks"
	"blurifier/internal/tasks/status"
	httptransport "blurifier/internal/transport/http"
	"blurifier/pkg/platform/circuit"
)

const memoryQueueBuffer = 4096

// submissionStore is every store operation the process uses.
type submissionStore interface {
	service.Store
	indexing.Store
}

// app owns the long-lived components of one process.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	db       *sql.DB
	sqlStore *store.SQLStore
	store    submissionStore
	redis    *redisclient.Client
	local    *cache.LocalCache
	producer *kafka.Producer
	memQueue *tasks.MemoryQueue
	index    *index.BleveIndex

	submissions *service.Service
	runner      *tasks.Runner
	health      []httptransport.HealthCheck
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, registry: metrics.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.redis, err = redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.local, err = cache.NewLocal(cfg.Cache.LocalMaxCost, cfg.Cache.ResultTTL)
	if err != nil {
		return nil, fmt.Errorf("local cache: %w", err)
	}
	var (
		resultCache service.ResultCache = a.local
		statuses    tasks.StatusStore   = status.NewMemory(cfg.Tasks.StatusTTL)
	)
	if a.redis != nil {
		breaker := circuit.New("redis-cache",
			circuit.WithFailureThreshold(cfg.Cache.BreakerThreshold),
			circuit.WithCooldown(cfg.Cache.BreakerCooldown),
		)
		remote := cache.NewGuarded(cache.NewRedis(a.redis, cfg.Cache.ResultTTL), breaker, logger)
		resultCache = cache.NewTiered(a.local, remote)
		statuses = status.NewRedis(a.redis, cfg.Tasks.StatusTTL)
		a.health = append(a.health, httptransport.HealthCheck{Name: "redis", Check: a.redis.Health})
	}

	var publisher tasks.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		a.producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		publisher = tasks.NewKafkaPublisher(a.producer)
		a.health = append(a.health, httptransport.HealthCheck{Name: "kafka", Check: a.producer.Ping})
	} else {
		a.memQueue = tasks.NewMemoryQueue(memoryQueueBuffer, cfg.Tasks.Workers, logger)
		publisher = a.memQueue
	}

	redactor, err := newRedactor(cfg.Redaction)
	if err != nil {
		return nil, err
	}

	taskMetrics := tasks.NewMetrics(a.registry)
	dispatcher := tasks.NewDispatcher(publisher, statuses,
		tasks.WithDispatcherLogger(logger),
		tasks.WithDispatcherMetrics(taskMetrics),
	)
	a.submissions = service.New(a.store, resultCache, dispatcher, redactor,
		service.WithLogger(logger),
		service.WithMetrics(service.NewMetrics(a.registry)),
	)
	a.runner = tasks.NewRunner(a.submissions, statuses, tasks.RunnerConfig{
		TimeLimit:    cfg.Tasks.TimeLimit,
		MaxAttempts:  cfg.Tasks.MaxAttempts,
		RetryBackoff: cfg.Tasks.RetryBackoff,
	}, tasks.WithRunnerLogger(logger), tasks.WithRunnerMetrics(taskMetrics))

	a.index = index.NewBleve(cfg.Search.IndexPath)
	if cfg.Search.IndexPath == "" && cfg.Database.Driver != config.DriverMemory {
		logger.Warn("search index is in memory; every start re-indexes all processed submissions",
			"driver", cfg.Database.Driver)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	var err error
	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		if a.db, err = store.OpenPostgres(ctx, a.cfg.Database); err != nil {
			return err
		}
		a.sqlStore = store.NewPostgres(a.db)
	case config.DriverSQLite:
		if a.db, err = store.OpenSQLite(ctx, a.cfg.Database.URL); err != nil {
			return err
		}
		a.sqlStore = store.NewSQLite(a.db)
	default:
		a.store = store.NewInMemory()
		a.logger.Warn("using in-memory submission store; data is lost on exit")
		return nil
	}
	a.store = a.sqlStore
	a.health = append(a.health, httptransport.HealthCheck{Name: "store", Check: a.db.PingContext})
	return nil
}

func newRedactor(cfg config.RedactionConfig) (*redaction.Redactor, error) {
	policy, err := redaction.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	return redaction.New(policy)
}

func (a *app) migrate(ctx context.Context) error {
	if a.sqlStore == nil {
		return nil
	}
	if err := a.sqlStore.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", a.sqlStore.Dialect(), err)
	}
	a.logger.InfoContext(ctx, "schema applied", "driver", a.sqlStore.Dialect())
	return nil
}

func (a *app) router() http.Handler {
	search := searchservice.New(a.index, a.cfg.Search.MaxResults, a.cfg.Search.Fuzziness,
		searchservice.WithLogger(a.logger),
		searchservice.WithMetrics(searchservice.NewMetrics(a.registry)),
	)
	return httptransport.NewRouter(httptransport.Deps{
		Logger:   a.logger,
		Registry: a.registry,
		Metrics:  metrics.New(a.registry),
		Health:   a.health,
		Handlers: []httptransport.Registrar{
			submissionhandler.New(a.submissions, a.logger, a.cfg.Server.MaxContentBytes),
			searchhandler.New(search, a.logger),
		},
	})
}

func (a *app) sweeper() *indexing.Sweeper {
	return indexing.New(a.store, a.index, a.cfg.Sweeper.Interval, a.cfg.Sweeper.BatchSize,
		indexing.WithLogger(a.logger),
		indexing.WithMetrics(indexing.NewMetrics(a.registry)),
	)
}

func (a *app) backfill() *service.Backfill {
	return service.NewBackfill(a.submissions, a.cfg.Backfill.Interval, a.cfg.Backfill.BatchSize, a.logger)
}

// Close releases every opened resource; safe on a partially built app.
func (a *app) Close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("close search index", "error", err)
		}
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.local != nil {
		a.local.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
