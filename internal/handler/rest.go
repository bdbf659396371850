package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

// maxBodyBytes caps request bodies for item drafts.
const maxBodyBytes = 1 << 16

// ItemsHandler exposes the item store as a REST API.
type ItemsHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewItemsHandler creates an ItemsHandler over s.
func NewItemsHandler(s store.Store, logger *zap.Logger) *ItemsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemsHandler{store: s, logger: logger}
}

// RegisterRoutes registers the REST routes on router.
func (h *ItemsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/items", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.Add).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.Edit).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{id}", h.Delete).Methods(http.MethodDelete)
}

// Health handles GET /health.
func (h *ItemsHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(HealthResponse{
		Status:  "healthy",
		Version: Version,
		Items:   len(h.store.List()),
	}))
}

// List handles GET /api/v1/items.
func (h *ItemsHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(h.store.List()))
}

// Get handles GET /api/v1/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.store.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "item not found", "")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(item))
}

// Add handles POST /api/v1/items.
func (h *ItemsHandler) Add(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	item, err := h.store.Add(draft)
	if err != nil {
		h.writeStoreError(w, err, "add")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, model.NewSuccessResponse(item))
}

// Edit handles PUT /api/v1/items/{id}.
func (h *ItemsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	item, matched, err := h.store.Edit(mux.Vars(r)["id"], draft)
	if err != nil {
		h.writeStoreError(w, err, "edit")
		return
	}
	if !matched {
		writeError(w, h.logger, http.StatusNotFound, "item not found", "")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(item))
}

// Delete handles DELETE /api/v1/items/{id}?confirm=true. Without the
// confirmation the request is refused with 428 and nothing is removed.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		writeError(w, h.logger, http.StatusPreconditionRequired,
			"Are you sure you want to delete this item? Repeat with confirm=true.", "")
		return
	}

	matched, err := h.store.Delete(mux.Vars(r)["id"])
	if err != nil {
		h.writeStoreError(w, err, "delete")
		return
	}
	if !matched {
		writeError(w, h.logger, http.StatusNotFound, "item not found", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemsHandler) decodeDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var draft model.Draft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&draft); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", "")
		return model.Draft{}, false
	}
	return draft, true
}

func (h *ItemsHandler) writeStoreError(w http.ResponseWriter, err error, operation string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, h.logger, http.StatusBadRequest, verr.UserMessage(), verr.Field)
	case errors.Is(err, store.ErrNotInitialized):
		writeError(w, h.logger, http.StatusServiceUnavailable, "inventory is still loading", "")
	case errors.Is(err, store.ErrIDSpaceExhausted):
		writeError(w, h.logger, http.StatusConflict, "no item ids are left", "")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error", "")
	}
}
