package handler

import (
	"time"

	"blurifier/internal/submission/models"
)

// SubmitResponse is the body of POST /api/submit.
type SubmitResponse struct {
	ContentHash string `json:"content_hash"`
}

// ResultResponse is the body of GET /api/result/{contentHash}.
type ResultResponse struct {
	ContentHash string    `json:"content_hash"`
	Status      string    `json:"status"`
	Original    string    `json:"original"`
	Processed   *string   `json:"processed"`
	CreatedAt   time.Time `json:"created_at"`
	ProcessedAt time.Time `json:"processed_at"`
	Detail      string    `json:"detail"`
}

func FromResult(r *models.Result) ResultResponse {
	return ResultResponse{
		ContentHash: r.Hash.String(),
		Status:      string(r.Status),
		Original:    r.Original,
		Processed:   r.Processed,
		CreatedAt:   r.CreatedAt,
		ProcessedAt: r.ProcessedAt,
		Detail:      r.Detail,
	}
}
