package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"blurifier/internal/platform/kafka"
)

// KafkaPublisher publishes tasks keyed by content hash, so every task for a
// hash lands on the same partition.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, task Task) error {
	value, err := task.Encode()
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return p.producer.Produce(ctx, []byte(task.Key()), value)
}

// KafkaHandler adapts the Runner to the consumer. Partitions are consumed
// sequentially, which serializes tasks that share a hash.
type KafkaHandler struct {
	runner *Runner
	logger *slog.Logger
}

func NewKafkaHandler(runner *Runner, logger *slog.Logger) *KafkaHandler {
	return &KafkaHandler{runner: runner, logger: logger}
}

// Handle skips undecodable records; retrying them cannot succeed.
func (h *KafkaHandler) Handle(ctx context.Context, msg kafka.Message) error {
	task, err := DecodeTask(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed task record",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	return h.runner.Run(ctx, task)
}
