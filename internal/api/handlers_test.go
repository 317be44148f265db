package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlnguyen/price-radar/internal/cache"
	"github.com/tlnguyen/price-radar/internal/catalog"
	"github.com/tlnguyen/price-radar/internal/models"
	"github.com/tlnguyen/price-radar/internal/refresher"
	"github.com/tlnguyen/price-radar/internal/scraper"
	"github.com/tlnguyen/price-radar/internal/strategy"
	"github.com/tlnguyen/price-radar/internal/urls"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cannedStrategy matches URLs by substring and returns a fixed raw price.
type cannedStrategy struct {
	host string
	raw  string
}

func (s *cannedStrategy) Name() string              { return "Canned" }
func (s *cannedStrategy) CanHandle(url string) bool { return strings.Contains(url, s.host) }
func (s *cannedStrategy) ExtractPrice(context.Context, string) (string, error) {
	return s.raw, nil
}

type testServer struct {
	router    *chi.Mux
	cache     *cache.PriceCache
	urls      *urls.StaticRepository
	refresher *refresher.Refresher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()

	storage, err := cache.NewFileStorage(filepath.Join(t.TempDir(), "prices.json"))
	require.NoError(t, err)
	priceCache := cache.NewPriceCache(storage, "prices:", logger)

	registry := strategy.NewRegistry(logger)
	registry.Register(&cannedStrategy{host: "alphamart", raw: "$620.00"})

	urlRepo := urls.NewStaticRepository(map[string]map[string]string{
		"pw-mk19": {"AlphaMart": "https://alphamart.example.com/mk19"},
	})

	catalogRepo := catalog.NewStaticRepository(map[string]models.Product{
		"pw-mk19": {ID: "pw-mk19", Name: "MK19 EVO", Brand: "PowerWash", Price: 699, Type: "pressure-washer"},
	})

	scraperSvc := scraper.NewService(registry, urlRepo, priceCache, nil, logger, scraper.Options{FetchTimeout: time.Second})
	refresherSvc := refresher.New(scraperSvc, catalogRepo, urlRepo, refresher.Config{}, logger)

	handlers := NewHandlers(scraperSvc, catalogRepo, refresherSvc, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Route("/products/{productID}/prices", func(r chi.Router) {
			r.Get("/", handlers.GetPrices)
			r.Post("/refresh", handlers.RefreshPrices)
			r.Post("/refresh-async", handlers.RefreshPricesAsync)
			r.Delete("/", handlers.ClearPrices)
		})
		r.Delete("/prices", handlers.ClearAllPrices)
		r.Get("/stats", handlers.GetStats)
	})

	return &testServer{
		router:    router,
		cache:     priceCache,
		urls:      urlRepo,
		refresher: refresherSvc,
	}
}

func (s *testServer) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRefreshPrices(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/products/pw-mk19/prices/refresh")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PricesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "pw-mk19", resp.ProductID)
	assert.True(t, resp.AllLive)
	require.Contains(t, resp.Prices, "AlphaMart")
	assert.InDelta(t, 620.0, resp.Prices["AlphaMart"].Price, 0.001)
	assert.True(t, resp.Prices["AlphaMart"].IsLive)
}

func TestRefreshPrices_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/products/ghost/prices/refresh")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "product not found")
}

func TestGetPrices(t *testing.T) {
	s := newTestServer(t)

	t.Run("404 before any fetch", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/products/pw-mk19/prices")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns cached snapshot after refresh", func(t *testing.T) {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/products/pw-mk19/prices/refresh").Code)

		rec := s.do(http.MethodGet, "/api/products/pw-mk19/prices")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp PricesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.InDelta(t, 620.0, resp.Prices["AlphaMart"].Price, 0.001)
	})
}

func TestRefreshPricesAsync(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/products/pw-mk19/prices/refresh-async")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp RefreshPricesAsyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "pw-mk19", resp.ProductID)
	assert.True(t, resp.Queued)
	assert.Equal(t, 1, resp.QueueSize)

	// Repeated requests for the same product coalesce into one pending task.
	rec = s.do(http.MethodPost, "/api/products/pw-mk19/prices/refresh-async")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.QueueSize)
}

func TestClearPrices(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/products/pw-mk19/prices/refresh").Code)

	rec := s.do(http.MethodDelete, "/api/products/pw-mk19/prices")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/products/pw-mk19/prices")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearAllPrices(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/products/pw-mk19/prices/refresh").Code)

	rec := s.do(http.MethodDelete, "/api/prices")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/products/pw-mk19/prices")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats["refresh_queue_size"])
}
