package clientdata

import (
	"testing"
	"time"

	"github.com/aristath/paperdesk/internal/database"
	"github.com/aristath/paperdesk/internal/domain"
	testingpkg "github.com/aristath/paperdesk/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) (*Repository, *database.DB) {
	t.Helper()
	db := testingpkg.NewTestDB(t, "market_cache")

	return NewRepository(db.Conn()), db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo, _ := setupTestRepo(t)

	quote := domain.Quote{
		Symbol:      "EC",
		CompanyName: "Ecopetrol",
		Price:       decimal.RequireFromString("2450.50"),
		Volume:      120000,
		UpdatedAt:   time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Store(TableQuotes, "EC", quote, TTLQuote))

	var got domain.Quote
	found, err := repo.GetIfFresh(TableQuotes, "EC", &got)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "Ecopetrol", got.CompanyName)
	assert.True(t, quote.Price.Equal(got.Price))
	assert.Equal(t, int64(120000), got.Volume)
	assert.True(t, quote.UpdatedAt.Equal(got.UpdatedAt))
}

func TestGetIfFresh_Missing(t *testing.T) {
	repo, _ := setupTestRepo(t)

	var got domain.Quote
	found, err := repo.GetIfFresh(TableQuotes, "NOPE", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIfFresh_ExpiredButGetReturnsStale(t *testing.T) {
	repo, _ := setupTestRepo(t)
	require.NoError(t, repo.Store(TableQuotes, "CIB", domain.Quote{Symbol: "CIB"}, -time.Minute))

	var fresh domain.Quote
	found, err := repo.GetIfFresh(TableQuotes, "CIB", &fresh)
	require.NoError(t, err)
	assert.False(t, found)

	var stale domain.Quote
	found, err = repo.Get(TableQuotes, "CIB", &stale)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "CIB", stale.Symbol)
}

func TestStore_ReplacesExisting(t *testing.T) {
	repo, db := setupTestRepo(t)

	require.NoError(t, repo.Store(TableListing, "all", []domain.Quote{{Symbol: "EC"}}, TTLListing))
	require.NoError(t, repo.Store(TableListing, "all", []domain.Quote{{Symbol: "EC"}, {Symbol: "CIB"}}, TTLListing))

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM listing").Scan(&count))
	assert.Equal(t, 1, count)

	var got []domain.Quote
	found, err := repo.Get(TableListing, "all", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 2)
}

func TestInvalidTableRejected(t *testing.T) {
	repo, _ := setupTestRepo(t)

	err := repo.Store("quotes; DROP TABLE quotes", "x", 1, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	_, err = repo.Get("users", "x", new(int))
	assert.Error(t, err)

	_, err = repo.DeleteExpired("users")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo, _ := setupTestRepo(t)
	require.NoError(t, repo.Store(TablePriceHistory, "EC", domain.PriceHistory{Symbol: "EC"}, TTLPriceHistory))
	require.NoError(t, repo.Delete(TablePriceHistory, "EC"))

	var got domain.PriceHistory
	found, err := repo.Get(TablePriceHistory, "EC", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	repo, _ := setupTestRepo(t)

	require.NoError(t, repo.Store(TableQuotes, "EC", domain.Quote{Symbol: "EC"}, -time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "CIB", domain.Quote{Symbol: "CIB"}, time.Hour))
	require.NoError(t, repo.Store(TablePriceHistory, "EC", domain.PriceHistory{Symbol: "EC"}, -time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TableQuotes])
	assert.Equal(t, int64(1), results[TablePriceHistory])
	assert.Equal(t, int64(0), results[TableListing])

	var got domain.Quote
	found, err := repo.Get(TableQuotes, "CIB", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCleanupJob(t *testing.T) {
	repo, _ := setupTestRepo(t)
	require.NoError(t, repo.Store(TableQuotes, "EC", domain.Quote{Symbol: "EC"}, -time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "market_cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	var got domain.Quote
	found, err := repo.Get(TableQuotes, "EC", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOrderDrafts(t *testing.T) {
	repo, _ := setupTestRepo(t)

	draft, err := repo.OrderDraft(3)
	require.NoError(t, err)
	assert.Nil(t, draft)

	limit := decimal.RequireFromString("2450.5")
	require.NoError(t, repo.SaveOrderDraft(3, domain.OrderDraft{
		RecipientID: 7,
		Symbol:      "EC",
		Quantity:    10,
		LimitPrice:  &limit,
		Message:     "antes del cierre",
	}))

	draft, err = repo.OrderDraft(3)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, int64(7), draft.RecipientID)
	assert.Equal(t, "antes del cierre", draft.Message)
	require.NotNil(t, draft.LimitPrice)
	assert.True(t, limit.Equal(*draft.LimitPrice))

	other, err := repo.OrderDraft(4)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, repo.ClearOrderDraft(3))
	draft, err = repo.OrderDraft(3)
	require.NoError(t, err)
	assert.Nil(t, draft)
}
