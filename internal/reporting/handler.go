package reporting

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler serves the report endpoints. Exports are rate limited, they scan
// whole tables.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock-summary", h.handleStockSummary)
	r.Get("/trial-balance", h.handleTrialBalance)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/stock-card.csv", h.handleStockCardCSV)
		r.Get("/trial-balance.csv", h.handleTrialBalanceCSV)
	})
}

func (h *Handler) handleStockSummary(w http.ResponseWriter, r *http.Request) {
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	rows, err := h.service.StockSummary(r.Context(), warehouseID)
	if err != nil {
		h.logger.Error("stock summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.TrialBalance(r.Context(), parsePeriod(r))
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) handleStockCardCSV(w http.ResponseWriter, r *http.Request) {
	variantID, _ := strconv.ParseInt(r.URL.Query().Get("variant_id"), 10, 64)
	if variantID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "variant_id required")
		return
	}
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	rows, err := h.service.StockCard(r.Context(), variantID, warehouseID, parsePeriod(r))
	if err != nil {
		h.logger.Error("stock card export", slog.Int64("variant_id", variantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="stock_card.csv"`)
	if err := WriteStockCardCSV(w, rows); err != nil {
		h.logger.Error("write stock card csv", slog.Any("error", err))
	}
}

func (h *Handler) handleTrialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.TrialBalance(r.Context(), parsePeriod(r))
	if err != nil {
		h.logger.Error("trial balance export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trial_balance.csv"`)
	if err := WriteTrialBalanceCSV(w, rows); err != nil {
		h.logger.Error("write trial balance csv", slog.Any("error", err))
	}
}

func parsePeriod(r *http.Request) Period {
	var period Period
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			period.From = t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			period.To = t
		}
	}
	return period
}
