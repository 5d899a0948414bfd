package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/market"
)

type stubMarket struct {
	down bool
}

func (s *stubMarket) Listing(context.Context) ([]domain.Quote, error) {
	if s.down {
		return nil, &domain.BackendError{Op: "listing", Status: 503}
	}
	return []domain.Quote{{Symbol: "EC"}, {Symbol: "CIB"}}, nil
}

func (s *stubMarket) Quote(_ context.Context, inst domain.Instrument) (*domain.Quote, error) {
	if s.down {
		return nil, &domain.BackendError{Op: "quote", Status: 503}
	}
	return &domain.Quote{Symbol: inst.Symbol, CompanyName: inst.Name, Price: decimal.NewFromInt(2450)}, nil
}

func (s *stubMarket) PriceHistory(_ context.Context, symbol string) (*domain.PriceHistory, error) {
	if s.down {
		return nil, &domain.BackendError{Op: "history", Status: 503}
	}
	return &domain.PriceHistory{Symbol: symbol, Points: []domain.PricePoint{
		{Close: decimal.NewFromInt(100)},
		{Close: decimal.NewFromInt(110)},
		{Close: decimal.NewFromInt(99)},
	}}, nil
}

// noCache never holds anything
type noCache struct{}

func (noCache) Store(string, string, interface{}, time.Duration) error { return nil }
func (noCache) GetIfFresh(string, string, interface{}) (bool, error)   { return false, nil }
func (noCache) Get(string, string, interface{}) (bool, error)          { return false, nil }

func setupRouter(t *testing.T, backend *stubMarket) http.Handler {
	t.Helper()
	catalogue, err := config.LoadCatalogue("")
	require.NoError(t, err)

	service := market.NewService(backend, noCache{}, catalogue, nil, zerolog.Nop())
	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleGetCatalogue(t *testing.T) {
	rec := get(setupRouter(t, &stubMarket{}), "/market/catalogue")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Markets []domain.Market `json:"markets"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, len(body.Markets), body.Count)
	assert.NotZero(t, body.Count)
}

func TestHandleGetQuote(t *testing.T) {
	rec := get(setupRouter(t, &stubMarket{}), "/market/quotes/ec")
	require.Equal(t, http.StatusOK, rec.Code)

	var quote domain.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "EC", quote.Symbol)
	assert.Equal(t, "Ecopetrol", quote.CompanyName)
}

func TestHandleGetAnalysis(t *testing.T) {
	rec := get(setupRouter(t, &stubMarket{}), "/market/analysis/ec")
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, float64(3), analysis["points"])
	assert.NotContains(t, analysis, "sma_20")
	assert.Contains(t, analysis, "daily_volatility")
}

func TestBackendDown_NoCache(t *testing.T) {
	router := setupRouter(t, &stubMarket{down: true})

	for _, path := range []string{"/market/listing", "/market/quotes/EC", "/market/history/EC", "/market/analysis/EC"} {
		t.Run(path, func(t *testing.T) {
			rec := get(router, path)
			assert.Equal(t, http.StatusBadGateway, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRoutesRegistered(t *testing.T) {
	router := setupRouter(t, &stubMarket{})
	for _, path := range []string{
		"/market/catalogue",
		"/market/listing",
		"/market/quotes/EC",
		"/market/history/EC",
		"/market/analysis/EC",
	} {
		rec := get(router, path)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
	}
}
