package handler

import (
	dErrors "blurifier/pkg/domain-errors"
)

// SubmitRequest is the HTTP request body for POST /api/submit.
type SubmitRequest struct {
	Content *string `json:"content"`
}

// Validate implements httputil.Validatable. Content is hashed byte for byte,
// so it is deliberately not trimmed.
func (r *SubmitRequest) Validate() error {
	if r == nil || r.Content == nil {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if *r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content must not be empty")
	}
	return nil
}
