package pricing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler serves the pricing endpoints.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	cache    *Cache
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, resolver *Resolver, cache *Cache) *Handler {
	return &Handler{logger: logger, resolver: resolver, cache: cache}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quote", h.handleQuote)
	r.Post("/invalidate", h.handleInvalidate)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	variantID, _ := strconv.ParseInt(r.URL.Query().Get("variant_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	channel := Channel(r.URL.Query().Get("channel"))
	if variantID <= 0 || warehouseID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "variant_id and warehouse_id required")
		return
	}

	quote, err := h.resolver.Quote(r.Context(), variantID, warehouseID, channel)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownChannel):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrNoCost):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unavailable", err.Error())
		default:
			h.logger.Error("resolve quote", slog.Int64("variant_id", variantID), slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"invalidated": false})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate pricing cache", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invalidated": true})
}
