// Package tasks dispatches and executes redaction work. A task is keyed by
// the content hash it redacts: the dispatcher claims the key before
// publishing so repeated enqueues collapse into one in-flight task, and the
// runner records a lifecycle status per key that the read path can query.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	id "blurifier/pkg/domain"
)

// Task is the queue payload.
type Task struct {
	Hash       id.ContentHash `json:"content_hash"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Key is the dedup and partitioning key of the task.
func (t Task) Key() string {
	return t.Hash.String()
}

func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask parses a queue payload and validates the hash.
func DecodeTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	hash, err := id.ParseContentHash(t.Hash.String())
	if err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	t.Hash = hash
	return t, nil
}
