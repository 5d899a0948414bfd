// Package clientdata caches backend market data responses and unsent order
// drafts in SQLite.
// Values are stored as msgpack blobs with an expiration timestamp so reads can be
// cache-first, with stale rows kept around as a fallback when the backend is down.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache tables
const (
	TableQuotes       = "quotes"
	TablePriceHistory = "price_history"
	TableListing      = "listing"
	TableOrderDrafts  = "order_drafts"
)

// AllTables lists every cache table for cleanup operations.
var AllTables = []string{
	TableQuotes,
	TablePriceHistory,
	TableListing,
	TableOrderDrafts,
}

var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for market data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable guards the table names interpolated into queries.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

func keyColumn(table string) string {
	switch table {
	case TableListing:
		return "market"
	case TableOrderDrafts:
		return "issuer"
	}
	return "symbol"
}

// Store saves value with expiration = now + ttl, replacing any previous row.
func (r *Repository) Store(table, key string, value interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", table, key, err)
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)",
		table, keyColumn(table),
	)
	if _, err := r.db.Exec(query, key, blob, r.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh decodes the row into out only if it has not expired.
// Returns false when the key is missing or stale.
func (r *Repository) GetIfFresh(table, key string, out interface{}) (bool, error) {
	return r.load(table, key, out, true)
}

// Get decodes the row into out regardless of expiration.
// Use it as a fallback when the backend fails: stale data beats no data.
func (r *Repository) Get(table, key string, out interface{}) (bool, error) {
	return r.load(table, key, out, false)
}

func (r *Repository) load(table, key string, out interface{}, freshOnly bool) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE %s = ?", table, keyColumn(table))
	args := []interface{}{key}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, r.now().Unix())
	}

	var blob []byte
	err := r.db.QueryRow(query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", table, key, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, keyColumn(table))
	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	result, err := r.db.Exec(query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from every table.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}

	return results, nil
}
