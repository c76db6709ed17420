package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler serves the inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/availability", h.handleAvailability)
	r.Get("/stock-card", h.handleStockCard)
	r.Get("/batches", h.handleBatches)
	r.Post("/adjustments", h.handleAdjust)
	r.Post("/transfers", h.handleTransfer)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	variantID, warehouseID, ok := keyParams(w, r)
	if !ok {
		return
	}
	qty, err := h.service.AvailableQty(r.Context(), variantID, warehouseID)
	if err != nil {
		h.logger.Error("availability", slog.Int64("variant_id", variantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"variant_id":   variantID,
		"warehouse_id": warehouseID,
		"available":    qty,
	})
}

func (h *Handler) handleStockCard(w http.ResponseWriter, r *http.Request) {
	variantID, _ := strconv.ParseInt(r.URL.Query().Get("variant_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filter := StockCardFilter{
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Type:        EntryType(r.URL.Query().Get("type")),
		Limit:       limit,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = t
		}
	}
	entries, err := h.service.StockCard(r.Context(), filter)
	if err != nil {
		h.logger.Error("stock card", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	variantID, warehouseID, ok := keyParams(w, r)
	if !ok {
		return
	}
	batches, err := h.service.Batches(r.Context(), variantID, warehouseID)
	if err != nil {
		h.logger.Error("list batches", slog.Int64("variant_id", variantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": batches})
}

type adjustmentRequest struct {
	Code        string  `json:"code"`
	VariantID   int64   `json:"variant_id" validate:"required"`
	WarehouseID int64   `json:"warehouse_id" validate:"required"`
	Qty         float64 `json:"qty" validate:"required"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
	Note        string  `json:"note"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	adjID, err := h.service.PostAdjustment(r.Context(), AdjustmentInput{
		Code:        req.Code,
		VariantID:   req.VariantID,
		WarehouseID: req.WarehouseID,
		Qty:         req.Qty,
		UnitCost:    req.UnitCost,
		Note:        req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrOutOfStock):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Out Of Stock", err.Error())
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidReceipt):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, shared.ErrIdempotencyConflict):
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		default:
			h.logger.Error("post adjustment", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"adjustment_id": adjID})
}

type transferRequest struct {
	Code         string  `json:"code"`
	VariantID    int64   `json:"variant_id" validate:"required"`
	SrcWarehouse int64   `json:"src_warehouse_id" validate:"required"`
	DstWarehouse int64   `json:"dst_warehouse_id" validate:"required"`
	Qty          float64 `json:"qty" validate:"gt=0"`
	Note         string  `json:"note"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	draws, err := h.service.PostTransfer(r.Context(), TransferInput{
		Code:         req.Code,
		VariantID:    req.VariantID,
		SrcWarehouse: req.SrcWarehouse,
		DstWarehouse: req.DstWarehouse,
		Qty:          req.Qty,
		Note:         req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrOutOfStock):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Out Of Stock", err.Error())
		case errors.Is(err, ErrInvalidQuantity):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, shared.ErrIdempotencyConflict):
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		default:
			h.logger.Error("post transfer", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"draws": draws})
}

func keyParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	variantID, _ := strconv.ParseInt(r.URL.Query().Get("variant_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if variantID <= 0 || warehouseID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "variant_id and warehouse_id required")
		return 0, 0, false
	}
	return variantID, warehouseID, true
}
