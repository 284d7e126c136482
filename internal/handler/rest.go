package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/item-management/internal/export"
	"github.com/vyrodovalexey/item-management/internal/model"
	"github.com/vyrodovalexey/item-management/internal/store"
	"github.com/vyrodovalexey/item-management/internal/validator"
)

const maxBodyBytes = 1 << 16

// RESTHandler handles the inventory REST API.
type RESTHandler struct {
	inventory Inventory
	logger    *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(inv Inventory, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		inventory: inv,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
// Literal item paths are registered before /{id}.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	h.RegisterHealthRoutes(router)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	api.HandleFunc("/items", h.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/items/export", h.ExportItems).Methods(http.MethodGet)
	api.HandleFunc("/items/validate", h.ValidateItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", h.RemoveItem).Methods(http.MethodDelete)
}

// RegisterHealthRoutes registers only /health and /ready, for the separate
// health listener.
func (h *RESTHandler) RegisterHealthRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(HealthResponse{
		Status:  "healthy",
		Version: Version,
	}))
}

// ReadyCheck handles GET /ready. The service is ready once the store answers.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.inventory.List(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "inventory not ready")
		return
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListCategories handles GET /api/v1/categories requests.
func (h *RESTHandler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.inventory.Categories()))
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	item, err := h.inventory.Get(r.Context(), id)
	if err != nil {
		h.handleInventoryError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// ValidateItem handles POST /api/v1/items/validate. It reports what adding
// the candidate would do without changing the inventory.
func (h *RESTHandler) ValidateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	reason, err := h.inventory.Validate(r.Context(), req.Candidate())
	if err != nil {
		h.handleInventoryError(w, err, "validate item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.ValidationResponse{
		Valid:  reason == "",
		Reason: reason,
	}))
}

// AddItem handles POST /api/v1/items requests.
func (h *RESTHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item, err := h.inventory.Add(r.Context(), req.Candidate())
	if err != nil {
		h.handleInventoryError(w, err, "add item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// RemoveItem handles DELETE /api/v1/items/{id}. Removing an absent id
// succeeds.
func (h *RESTHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.inventory.Remove(r.Context(), id); err != nil {
		h.handleInventoryError(w, err, "remove item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportItems handles GET /api/v1/items/export and returns the table as XLSX.
func (h *RESTHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items for export", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, items); err != nil {
		h.logger.Error("failed to render workbook", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to export items")
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="items.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write workbook", zap.Error(err))
	}
}

func (h *RESTHandler) decodeItem(w http.ResponseWriter, r *http.Request) (ItemRequest, bool) {
	var req ItemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return ItemRequest{}, false
	}
	return req, true
}

func (h *RESTHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
		return 0, false
	}
	return id, true
}

// handleInventoryError maps service errors to HTTP responses.
func (h *RESTHandler) handleInventoryError(w http.ResponseWriter, err error, operation string) {
	if rejection, ok := validator.IsRejection(err); ok {
		h.writeError(w, http.StatusUnprocessableEntity, rejection.Reason)
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
	default:
		h.logger.Error("inventory operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON encodes data before the status line goes out, so an
// unencodable body turns into a 500 instead of an empty success.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(model.ErrorResponse{
			Code:    status,
			Message: "internal server error",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
