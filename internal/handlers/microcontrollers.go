package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"microcloudlab-backend/internal/models"
	"microcloudlab-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (h *Handler) catalogEnabled(w http.ResponseWriter) bool {
	if h.catalog == nil {
		h.writeError(w, http.StatusServiceUnavailable, "microcontroller catalog is disabled")
		return false
	}
	return true
}

func (h *Handler) microcontrollerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid microcontroller id")
		return uuid.Nil, false
	}
	return id, true
}

// ListMicrocontrollers обрабатывает GET /microcontrollers/
func (h *Handler) ListMicrocontrollers(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}

	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list microcontrollers", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list microcontrollers")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   items,
		"count":  len(items),
	})
}

// GetMicrocontroller обрабатывает GET /microcontrollers/{id}/
func (h *Handler) GetMicrocontroller(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	id, ok := h.microcontrollerID(w, r)
	if !ok {
		return
	}

	mc, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "microcontroller not found")
			return
		}
		h.logger.Error("Failed to get microcontroller", zap.String("id", id.String()), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get microcontroller")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   mc,
	})
}

// CreateMicrocontroller обрабатывает POST /microcontrollers/
func (h *Handler) CreateMicrocontroller(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}

	var req models.MicrocontrollerCreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mc, err := h.catalog.Create(r.Context(), req.ToMicrocontroller())
	if err != nil {
		h.logger.Error("Failed to create microcontroller", zap.String("name", req.Name), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to create microcontroller")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   mc,
	})
}

// DeleteMicrocontroller обрабатывает DELETE /microcontrollers/{id}/
func (h *Handler) DeleteMicrocontroller(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	id, ok := h.microcontrollerID(w, r)
	if !ok {
		return
	}

	mc, err := h.catalog.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "microcontroller not found")
		return
	case errors.Is(err, repository.ErrNotDeletable):
		h.writeError(w, http.StatusConflict, "microcontroller "+mc.Name+" cannot be deleted")
		return
	case err != nil:
		h.logger.Error("Failed to delete microcontroller", zap.String("id", id.String()), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to delete microcontroller")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"data": models.DeletedMicrocontroller{
			ID:   mc.ID.String(),
			Name: mc.Name,
			Type: mc.Type,
		},
	})
}

// BulkDeleteMicrocontrollers обрабатывает POST /microcontrollers/bulk-delete/
func (h *Handler) BulkDeleteMicrocontrollers(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}

	var req models.BulkDeleteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	result, err := h.catalog.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error("Bulk delete failed", zap.Int("requested", len(req.IDs)), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "bulk delete failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
