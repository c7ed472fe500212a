package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"blurifier/internal/search/service"
	dErrors "blurifier/pkg/domain-errors"
	"blurifier/pkg/platform/httputil"
	"blurifier/pkg/requestcontext"
)

// Service defines the interface for search operations.
type Service interface {
	Search(ctx context.Context, text string, limit, offset int) (*service.Page, error)
}

// Handler exposes full-text search over indexed submissions.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a search handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts search endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/search", h.HandleSearch)
}

// HandleSearch handles GET /api/search?query=&limit=&offset=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.Search(ctx, q.Get("query"), limit, offset)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.ErrorContext(ctx, "search failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "search served",
		"request_id", requestID,
		"total", page.Total,
		"returned", len(page.Results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

// intParam parses an optional non-negative query integer; empty means zero.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a non-negative integer")
	}
	return n, nil
}
