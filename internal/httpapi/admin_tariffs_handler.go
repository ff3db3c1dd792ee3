package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"correction_pricing/internal/logging"
	"correction_pricing/internal/models"
	"correction_pricing/internal/storage"
	"correction_pricing/internal/utils"
)

// CatalogNotifier is told after every successful catalog write.
// tariffcache.Invalidator satisfies it.
type CatalogNotifier interface {
	OnCatalogWritten(ctx context.Context, reason string) error
}

// AdminTariffsHandler handles tariff catalog management endpoints
type AdminTariffsHandler struct {
	store    TariffStore
	notifier CatalogNotifier
}

// NewAdminTariffsHandler creates a new admin tariffs handler
func NewAdminTariffsHandler(store TariffStore, notifier CatalogNotifier) *AdminTariffsHandler {
	return &AdminTariffsHandler{
		store:    store,
		notifier: notifier,
	}
}

// TariffRequest is the body of create and update calls.
// On update, omitted fields keep their current value.
type TariffRequest struct {
	Name                *string `json:"name"`
	Description         *string `json:"description,omitempty"`
	UnitPriceMinorUnits *int64  `json:"unit_price_minor_units,omitempty"`
	FormattedPrice      *string `json:"formatted_price,omitempty"`
	ServiceType         *string `json:"service_type,omitempty"`
	EstimatedDuration   *string `json:"estimated_duration,omitempty"`
	Active              *bool   `json:"active,omitempty"`
	Order               *int    `json:"order,omitempty"`
}

// TariffResponse wraps a tariff with the outcome of the catalog refresh
type TariffResponse struct {
	Tariff           *models.TariffRecord `json:"tariff"`
	CatalogRefreshed bool                 `json:"catalog_refreshed"`
}

func (req *TariffRequest) validate(creating bool) string {
	if creating && (req.Name == nil || strings.TrimSpace(*req.Name) == "") {
		return "Tariff name is required"
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return "Tariff name cannot be empty"
	}
	if req.UnitPriceMinorUnits != nil && *req.UnitPriceMinorUnits < 0 {
		return "Unit price cannot be negative"
	}
	return ""
}

func (req *TariffRequest) applyTo(t *models.TariffRecord) {
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.UnitPriceMinorUnits != nil {
		t.UnitPriceMinorUnits = models.PriceMinor(*req.UnitPriceMinorUnits)
	}
	if req.FormattedPrice != nil {
		t.FormattedPrice = *req.FormattedPrice
	}
	if req.ServiceType != nil {
		t.ServiceType = *req.ServiceType
	}
	if req.EstimatedDuration != nil {
		t.EstimatedDuration = *req.EstimatedDuration
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if req.Order != nil {
		t.Order = *req.Order
	}
}

func tariffID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid tariff ID format")
		return uuid.Nil, false
	}
	return id, true
}

// refreshCatalog tells the pricing cache the catalog changed. A failed refresh
// does not undo the write; the response reports it instead.
func (h *AdminTariffsHandler) refreshCatalog(ctx context.Context, reason string) bool {
	if h.notifier == nil {
		return false
	}
	if err := h.notifier.OnCatalogWritten(ctx, reason); err != nil {
		logging.Warningf("Catalog refresh after %q failed: %v", reason, err)
		return false
	}
	return true
}

// List handles GET /admin/tariffs
func (h *AdminTariffsHandler) List(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.store.List(r.Context())
	if err != nil {
		logging.Errorf("Failed to list tariffs: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list tariffs")
		return
	}
	if tariffs == nil {
		tariffs = []models.TariffRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tariffs": tariffs,
		"total":   len(tariffs),
	})
}

// Get handles GET /admin/tariffs/{id}
func (h *AdminTariffsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := tariffID(w, r)
	if !ok {
		return
	}

	tariff, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrTariffNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Tariff not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get tariff")
		return
	}

	respondJSON(w, http.StatusOK, tariff)
}

// Create handles POST /admin/tariffs
func (h *AdminTariffsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TariffRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg := req.validate(true); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	tariff := &models.TariffRecord{ID: uuid.New(), Active: true}
	req.applyTo(tariff)

	if err := h.store.Create(r.Context(), tariff); err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			utils.RespondWithError(w, http.StatusConflict, "Tariff with this name already exists")
			return
		}
		logging.Errorf("Failed to create tariff: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create tariff")
		return
	}

	refreshed := h.refreshCatalog(r.Context(), "tariff created: "+tariff.Name)
	respondJSON(w, http.StatusCreated, TariffResponse{Tariff: tariff, CatalogRefreshed: refreshed})
}

// Update handles PUT /admin/tariffs/{id}
func (h *AdminTariffsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := tariffID(w, r)
	if !ok {
		return
	}

	var req TariffRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg := req.validate(false); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	tariff, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrTariffNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Tariff not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get tariff")
		return
	}

	req.applyTo(tariff)
	if err := h.store.Update(r.Context(), tariff); err != nil {
		if errors.Is(err, storage.ErrTariffNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Tariff not found")
			return
		}
		logging.Errorf("Failed to update tariff %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update tariff")
		return
	}

	refreshed := h.refreshCatalog(r.Context(), "tariff updated: "+tariff.Name)
	respondJSON(w, http.StatusOK, TariffResponse{Tariff: tariff, CatalogRefreshed: refreshed})
}

// Delete handles DELETE /admin/tariffs/{id}
func (h *AdminTariffsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := tariffID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrTariffNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Tariff not found")
			return
		}
		logging.Errorf("Failed to delete tariff %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete tariff")
		return
	}

	h.refreshCatalog(r.Context(), "tariff deleted: "+id.String())
	w.WriteHeader(http.StatusNoContent)
}
