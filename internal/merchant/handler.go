package merchant

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baely/bezos/internal/common/errors"
	commonHttp "github.com/baely/bezos/internal/common/http"
	"github.com/baely/bezos/internal/common/logger"
)

// Handler exposes the merchant service over HTTP
type Handler struct {
	service *Service
	router  chi.Router
	logger  *slog.Logger
}

// MarkRequest is the body of POST /mark. IsBezosRelated defaults to true.
type MarkRequest struct {
	Merchant       string `json:"merchant"`
	IsBezosRelated *bool  `json:"isBezosRelated"`
}

// NewHandler creates the merchant routes. Mount the result under /merchants.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		service: service,
		logger:  log,
	}

	r := chi.NewRouter()
	r.Get("/bezos", h.handleBezosMerchants)
	r.Post("/mark", h.handleMark)

	h.router = r
	return h
}

// Chi returns the router for this handler
func (h *Handler) Chi() chi.Router {
	return h.router
}

func (h *Handler) handleBezosMerchants(w http.ResponseWriter, r *http.Request) {
	merchants, err := h.service.BezosRelated(r.Context())
	if err != nil {
		logger.WithContext(r.Context(), h.logger).Error("Failed to list merchants", "error", err)
		commonHttp.HandleError(w, err)
		return
	}
	commonHttp.Success(w, merchants)
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	log := logger.WithContext(r.Context(), h.logger)

	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		commonHttp.HandleError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body: %v", err))
		return
	}

	related := true
	if req.IsBezosRelated != nil {
		related = *req.IsBezosRelated
	}

	m, err := h.service.MarkAsBezosRelated(r.Context(), req.Merchant, related)
	if err != nil {
		log.Warn("Failed to mark merchant", "merchant", req.Merchant, "error", err)
		commonHttp.HandleError(w, err)
		return
	}
	commonHttp.Success(w, m)
}
