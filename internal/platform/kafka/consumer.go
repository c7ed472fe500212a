package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

// Handler processes one message. Returning an error stops the consumer
// without committing the current poll, so the records are redelivered.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Consumer reads a topic as part of a consumer group. Each polled batch is
// fanned out one goroutine per partition; records inside a partition are
// handled in order. Offsets are committed only after the whole batch is
// handled.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is done or a handler fails.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.client.AllowRebalance()
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		if err := c.handleBatch(ctx, fetches); err != nil {
			c.client.AllowRebalance()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
		}
		c.client.AllowRebalance()
	}
}

func (c *Consumer) handleBatch(ctx context.Context, fetches kgo.Fetches) error {
	g, gctx := errgroup.WithContext(ctx)
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		records := p.Records
		if len(records) == 0 {
			return
		}
		g.Go(func() error {
			for _, r := range records {
				msg := Message{
					Topic:     r.Topic,
					Key:       r.Key,
					Value:     r.Value,
					Partition: r.Partition,
					Offset:    r.Offset,
				}
				if err := c.handler.Handle(gctx, msg); err != nil {
					return fmt.Errorf("handle %s/%d@%d: %w", r.Topic, r.Partition, r.Offset, err)
				}
			}
			return nil
		})
	})
	return g.Wait()
}

func (c *Consumer) Close() {
	c.client.Close()
}
