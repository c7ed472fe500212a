package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"blurifier/internal/platform/httpserver"
	"blurifier/internal/platform/kafka"
	"blurifier/internal/tasks"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with task workers, the indexing sweeper and the backfill loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.migrate(ctx); err != nil {
				return err
			}

			srv := httpserver.New(a.cfg.Server, a.router())
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpserver.Serve(gctx, srv, a.cfg.Server.ShutdownTimeout, a.logger)
			})
			g.Go(func() error { return a.runWorkers(gctx) })
			g.Go(func() error { return a.sweeper().Run(gctx) })
			if a.cfg.Backfill.Enabled {
				g.Go(func() error { return a.backfill().Run(gctx) })
			}
			return g.Wait()
		},
	}
}

func newWorkerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume redaction tasks from Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.producer == nil {
				return errors.New("worker needs KAFKA_BROKERS; without them serve runs tasks in process")
			}
			return a.runWorkers(ctx)
		},
	}
}

func newSweepCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one indexing pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.sweeper().Sweep(ctx)
			return err
		},
	}
}

func newBackfillCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Redact every unprocessed submission in one batch and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if limit <= 0 {
				limit = a.cfg.Backfill.BatchSize
			}
			_, err = a.submissions.ProcessAllUnprocessed(ctx, limit)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to redact (default BACKFILL_BATCH_SIZE)")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the submission schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.producer != nil {
				if err := kafka.EnsureTopic(ctx, a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic,
					a.cfg.Kafka.Partitions, a.cfg.Kafka.ReplicationFactor); err != nil {
					return err
				}
			}
			return a.migrate(ctx)
		},
	}
}

// runWorkers drains the task queue: the Kafka consumer group when brokers
// are configured, the in-process queue otherwise.
func (a *app) runWorkers(ctx context.Context) error {
	if a.memQueue != nil {
		return a.memQueue.Run(ctx, a.runner)
	}
	consumer, err := kafka.NewConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.ConsumerGroup, a.cfg.Kafka.Topic,
		tasks.NewKafkaHandler(a.runner, a.logger), a.logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	return consumer.Run(ctx)
}
