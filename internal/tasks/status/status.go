// Package status stores task lifecycle records per content hash. Records
// expire after a TTL; an expired or missing record reads as Pending.
package status

import (
	"encoding/json"
	"fmt"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

const keyPrefix = "task:"

// Key returns the storage key of the task record for hash.
func Key(hash id.ContentHash) string {
	return keyPrefix + hash.String()
}

type record struct {
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

func encode(s models.TaskStatus) ([]byte, error) {
	return json.Marshal(record{State: string(s.State()), Detail: models.DetailOf(s)})
}

func decode(data []byte) (models.TaskStatus, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode task status: %w", err)
	}
	return models.ParseTaskStatus(r.State, r.Detail)
}
