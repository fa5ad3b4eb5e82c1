package transaction

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/baely/bezos/internal/common/errors"
	commonHttp "github.com/baely/bezos/internal/common/http"
	"github.com/baely/bezos/internal/common/logger"
)

// Handler exposes the monitor over HTTP
type Handler struct {
	monitor *Monitor
	router  chi.Router
	logger  *slog.Logger
}

// NewHandler creates the transaction routes. Mount the result under /transactions.
func NewHandler(monitor *Monitor, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		monitor: monitor,
		logger:  log,
	}

	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/subscribe", h.handleSubscribe)
	r.Post("/refresh", h.handleRefresh)

	h.router = r
	return h
}

// Chi returns the router for this handler
func (h *Handler) Chi() chi.Router {
	return h.router
}

// handleList returns the cached snapshot
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	commonHttp.Success(w, h.monitor.Snapshot())
}

// handleRefresh runs a fetch cycle on demand
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	log := logger.WithContext(r.Context(), h.logger)
	log.Info("Manual refresh requested")

	if err := h.monitor.RunCycle(r.Context()); err != nil {
		commonHttp.HandleError(w, err)
		return
	}
	commonHttp.Success(w, h.monitor.Snapshot())
}

// handleSubscribe streams every published snapshot as a server-sent event
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	log := logger.WithContext(r.Context(), h.logger)

	flusher, ok := w.(http.Flusher)
	if !ok {
		commonHttp.Error(w, errors.New("streaming unsupported"), http.StatusInternalServerError)
		return
	}

	sub := h.monitor.Subscribe()
	defer sub.Close()

	log.Info("Subscriber connected", "subscription", sub.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		update, err := sub.Next(r.Context())
		if err != nil {
			log.Info("Subscriber disconnected", "subscription", sub.ID(), "reason", err)
			return
		}

		data, err := json.Marshal(update)
		if err != nil {
			log.Error("Failed to marshal update", "error", err)
			continue
		}

		if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), EventTransactionsUpdated, data); err != nil {
			log.Info("Subscriber write failed", "subscription", sub.ID(), "error", err)
			return
		}
		flusher.Flush()
	}
}
