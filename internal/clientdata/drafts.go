package clientdata

import (
	"strconv"

	"github.com/aristath/paperdesk/internal/domain"
)

// SaveOrderDraft keeps the agent's unsent order so it survives a restart.
func (r *Repository) SaveOrderDraft(issuerID int64, draft domain.OrderDraft) error {
	return r.Store(TableOrderDrafts, strconv.FormatInt(issuerID, 10), draft, TTLOrderDraft)
}

// OrderDraft returns the saved draft, or nil when there is none.
func (r *Repository) OrderDraft(issuerID int64) (*domain.OrderDraft, error) {
	var draft domain.OrderDraft
	found, err := r.GetIfFresh(TableOrderDrafts, strconv.FormatInt(issuerID, 10), &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

// ClearOrderDraft drops the saved draft after a successful submission.
func (r *Repository) ClearOrderDraft(issuerID int64) error {
	return r.Delete(TableOrderDrafts, strconv.FormatInt(issuerID, 10))
}
