package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tlnguyen/price-radar/internal/catalog"
	"github.com/tlnguyen/price-radar/internal/models"
	"github.com/tlnguyen/price-radar/internal/refresher"
	"github.com/tlnguyen/price-radar/internal/scraper"
)

type Handlers struct {
	scraper   *scraper.Service
	catalog   catalog.Repository
	refresher *refresher.Refresher
	logger    *slog.Logger
}

func NewHandlers(scraperSvc *scraper.Service, catalogRepo catalog.Repository, refresherSvc *refresher.Refresher, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper:   scraperSvc,
		catalog:   catalogRepo,
		refresher: refresherSvc,
		logger:    logger,
	}
}

// PricesResponse wraps a snapshot for the UI.
type PricesResponse struct {
	ProductID string               `json:"product_id"`
	Prices    models.PriceSnapshot `json:"prices"`
	AllLive   bool                 `json:"all_live"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// RefreshPrices runs a full synchronous fetch cycle and returns the merged
// snapshot. Partial failure is normal: stale entries come back with
// is_live=false rather than an error.
func (h *Handlers) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	brand, model, ok := h.resolveProduct(w, r, productID)
	if !ok {
		return
	}

	snapshot, err := h.scraper.FetchCompetitorPrices(r.Context(), productID, model, brand)
	if err != nil {
		h.logger.Error("refresh failed", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	h.respondJSON(w, http.StatusOK, PricesResponse{
		ProductID: productID,
		Prices:    snapshot,
		AllLive:   snapshot.AllLive(),
		FetchedAt: time.Now(),
	})
}

// RefreshPricesAsyncResponse acknowledges a queued refresh.
type RefreshPricesAsyncResponse struct {
	ProductID string `json:"product_id"`
	Queued    bool   `json:"queued"`
	QueueSize int    `json:"queue_size"`
}

// RefreshPricesAsync enqueues a background refresh and returns immediately.
// The UI then polls GetPrices to watch the snapshot go live.
func (h *Handlers) RefreshPricesAsync(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	brand, model, ok := h.resolveProduct(w, r, productID)
	if !ok {
		return
	}

	if err := h.refresher.Enqueue(productID, brand, model); err != nil {
		h.logger.Error("failed to enqueue refresh", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to enqueue refresh")
		return
	}

	h.respondJSON(w, http.StatusAccepted, RefreshPricesAsyncResponse{
		ProductID: productID,
		Queued:    true,
		QueueSize: h.refresher.QueueSize(),
	})
}

// GetPrices is the cheap cache peek: no network I/O, safe to poll.
func (h *Handlers) GetPrices(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	snapshot, err := h.scraper.LastFetchedPrices(r.Context(), productID)
	if err != nil {
		h.logger.Error("cache peek failed", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "cache read failed")
		return
	}

	if snapshot == nil {
		h.respondError(w, http.StatusNotFound, "no prices cached for product")
		return
	}

	h.respondJSON(w, http.StatusOK, PricesResponse{
		ProductID: productID,
		Prices:    snapshot,
		AllLive:   snapshot.AllLive(),
		FetchedAt: time.Now(),
	})
}

// ClearPrices drops one product's cached snapshot.
func (h *Handlers) ClearPrices(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	if err := h.scraper.ClearPrices(r.Context(), productID); err != nil {
		h.logger.Error("failed to clear prices", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to clear prices")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearAllPrices drops every cached snapshot.
func (h *Handlers) ClearAllPrices(w http.ResponseWriter, r *http.Request) {
	if err := h.scraper.ClearAllPrices(r.Context()); err != nil {
		h.logger.Error("failed to clear price cache", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to clear price cache")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats reports refresh queue depth.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"refresh_queue_size": h.refresher.QueueSize(),
	})
}

// resolveProduct looks the product up in the catalog for brand/model. An
// unknown product is a client error; a transient catalog failure degrades to
// an id-only refresh because the URL repository is keyed by id.
func (h *Handlers) resolveProduct(w http.ResponseWriter, r *http.Request, productID string) (brand, model string, ok bool) {
	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return "", "", false
		}
		h.logger.Warn("catalog lookup failed, refreshing by id only",
			"product_id", productID, "error", err)
		return "", "", true
	}
	return product.Brand, product.Name, true
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
