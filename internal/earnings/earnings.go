// Package earnings is the ledger of money owed to an entrepreneur per
// order: one record per (order, earning type). Amounts are fixed at order
// creation; only the status ever changes, and only through the order
// lifecycle or payment reconciliation.
package earnings

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"gorm.io/gorm"
)

// CreatePending writes one pending ledger entry inside the caller's
// transaction. Called at order creation for both earning types, even when
// the amount is zero.
func CreatePending(tx *gorm.DB, entrepreneurID uint, orderRef, earningType string, amount decimal.Decimal) error {
	entry := &types.Earning{
		EntrepreneurID: entrepreneurID,
		OrderRef:       orderRef,
		EarningType:    earningType,
		Amount:         amount,
		Status:         types.EarningStatusPending,
	}
	return tx.Create(entry).Error
}

// MarkPaid moves every pending entry for the order to paid, stamping the
// payout date, and returns the affected entries so the caller can credit
// the wallet by their sum. Entries already paid or cancelled are left
// alone.
func MarkPaid(tx *gorm.DB, orderRef string, paidAt time.Time) ([]types.Earning, error) {
	var entries []types.Earning
	if err := tx.Where("order_ref = ? AND status = ?", orderRef, types.EarningStatusPending).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	result := tx.Model(&types.Earning{}).
		Where("order_ref = ? AND status = ?", orderRef, types.EarningStatusPending).
		Updates(map[string]interface{}{
			"status":      types.EarningStatusPaid,
			"payout_date": paidAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != int64(len(entries)) {
		return nil, types.ErrConcurrencyConflict
	}

	for i := range entries {
		entries[i].Status = types.EarningStatusPaid
		entries[i].PayoutDate = &paidAt
	}
	return entries, nil
}

// MarkCancelled voids every pending entry for the order. Paid entries are
// never cancelled through this path.
func MarkCancelled(tx *gorm.DB, orderRef string) error {
	return tx.Model(&types.Earning{}).
		Where("order_ref = ? AND status = ?", orderRef, types.EarningStatusPending).
		Update("status", types.EarningStatusCancelled).Error
}

// Sum adds up the amounts of the given entries.
func Sum(entries []types.Earning) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}
	return total
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) ListByEntrepreneur(entrepreneurID uint) ([]types.Earning, error) {
	var entries []types.Earning
	if err := d.db.Where("entrepreneur_id = ?", entrepreneurID).
		Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *Database) ListByOrder(orderRef string) ([]types.Earning, error) {
	var entries []types.Earning
	if err := d.db.Where("order_ref = ?", orderRef).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Summary aggregates an entrepreneur's ledger for the earnings endpoint.
type Summary struct {
	TotalMarkup     decimal.Decimal `json:"total_markup"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	PendingEarnings decimal.Decimal `json:"pending_earnings"`
}

func (d *Database) Summarize(entrepreneurID uint) (*Summary, error) {
	entries, err := d.ListByEntrepreneur(entrepreneurID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalMarkup:     decimal.Zero,
		TotalCommission: decimal.Zero,
		PendingEarnings: decimal.Zero,
	}
	for _, entry := range entries {
		switch entry.Status {
		case types.EarningStatusPaid:
			if entry.EarningType == types.EarningTypeMarkup {
				summary.TotalMarkup = summary.TotalMarkup.Add(entry.Amount)
			} else {
				summary.TotalCommission = summary.TotalCommission.Add(entry.Amount)
			}
		case types.EarningStatusPending:
			summary.PendingEarnings = summary.PendingEarnings.Add(entry.Amount)
		}
	}
	return summary, nil
}
