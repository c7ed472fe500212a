package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
	"blurifier/pkg/platform/httputil"
	"blurifier/pkg/requestcontext"
)

// Service defines the interface for submission operations.
type Service interface {
	Submit(ctx context.Context, content string) (id.ContentHash, error)
	GetResult(ctx context.Context, hash id.ContentHash) (*models.Result, error)
}

// Handler wires submission endpoints to the submission service.
type Handler struct {
	service         Service
	logger          *slog.Logger
	maxContentBytes int
}

// New constructs a submission handler. maxContentBytes <= 0 disables the
// content size check beyond the body limit.
func New(service Service, logger *slog.Logger, maxContentBytes int) *Handler {
	return &Handler{
		service:         service,
		logger:          logger,
		maxContentBytes: maxContentBytes,
	}
}

// Register mounts submission endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/submit", h.HandleSubmit)
	r.Get("/api/result/{contentHash}", h.HandleGetResult)
}

// HandleSubmit handles POST /api/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if h.maxContentBytes > 0 && len(*req.Content) > h.maxContentBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "content exceeds the maximum size"))
		return
	}

	hash, err := h.service.Submit(ctx, *req.Content)
	if err != nil {
		h.logger.ErrorContext(ctx, "submit failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "content submitted",
		"request_id", requestID,
		"content_hash", hash,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, SubmitResponse{ContentHash: hash.String()})
}

// HandleGetResult handles GET /api/result/{contentHash}.
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	hash, err := id.ParseContentHash(chi.URLParam(r, "contentHash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.GetResult(ctx, hash)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "get result failed",
				"request_id", requestID,
				"content_hash", hash,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
