package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) DB() *gorm.DB {
	return d.db
}

// Ensure returns the entrepreneur's wallet, creating it on first use.
// Idempotent; called explicitly at the start of any wallet-touching
// operation rather than silently inside read paths.
func Ensure(tx *gorm.DB, entrepreneurID uint) (*types.Wallet, error) {
	var wallet types.Wallet
	err := tx.Where("entrepreneur_id = ?", entrepreneurID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = types.Wallet{
		EntrepreneurID: entrepreneurID,
		Balance:        decimal.Zero,
		PendingBalance: decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		Currency:       "NGN",
	}
	if err := tx.Create(&wallet).Error; err != nil {
		// A concurrent Ensure may have won the unique-index race.
		var existing types.Wallet
		if lookupErr := tx.Where("entrepreneur_id = ?", entrepreneurID).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// Credit adds a paid-out earnings sum to the spendable balance and the
// lifetime earned counter in one guarded update. Only the payment
// reconciliation path calls this.
func Credit(tx *gorm.DB, entrepreneurID uint, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return types.NewValidationError("credit amount cannot be negative")
	}
	if _, err := Ensure(tx, entrepreneurID); err != nil {
		return err
	}

	result := tx.Model(&types.Wallet{}).
		Where("entrepreneur_id = ?", entrepreneurID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrConcurrencyConflict
	}
	return nil
}

// freeze moves amount from balance to pending_balance. The balance check
// lives in the UPDATE predicate so two concurrent withdrawals can never
// both spend the same funds.
func freeze(tx *gorm.DB, entrepreneurID uint, amount decimal.Decimal) error {
	result := tx.Model(&types.Wallet{}).
		Where("entrepreneur_id = ? AND balance >= ?", entrepreneurID, amount).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance - ?", amount),
			"pending_balance": gorm.Expr("pending_balance + ?", amount),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrInsufficientBalance
	}
	return nil
}

// settleFrozen resolves a frozen amount after the payout rail reports.
// On success the amount leaves pending_balance for total_withdrawn; on
// failure it returns to the spendable balance.
func settleFrozen(tx *gorm.DB, entrepreneurID uint, amount decimal.Decimal, success bool) error {
	updates := map[string]interface{}{
		"pending_balance": gorm.Expr("pending_balance - ?", amount),
		"updated_at":      time.Now(),
	}
	if success {
		updates["total_withdrawn"] = gorm.Expr("total_withdrawn + ?", amount)
	} else {
		updates["balance"] = gorm.Expr("balance + ?", amount)
	}

	result := tx.Model(&types.Wallet{}).
		Where("entrepreneur_id = ? AND pending_balance >= ?", entrepreneurID, amount).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrConcurrencyConflict
	}
	return nil
}

func (d *Database) GetWallet(entrepreneurID uint) (*types.Wallet, error) {
	var wallet types.Wallet
	if err := d.db.Where("entrepreneur_id = ?", entrepreneurID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (d *Database) GetWithdrawalByReference(referenceID string) (*types.WithdrawalRequest, error) {
	var request types.WithdrawalRequest
	if err := d.db.Where("reference_id = ?", referenceID).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (d *Database) ListWithdrawals(entrepreneurID uint) ([]types.WithdrawalRequest, error) {
	var requests []types.WithdrawalRequest
	if err := d.db.Where("entrepreneur_id = ?", entrepreneurID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (d *Database) GetPendingWithdrawals() ([]types.WithdrawalRequest, error) {
	var requests []types.WithdrawalRequest
	if err := d.db.Where("status = ?", types.WithdrawalStatusPending).Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (d *Database) GetEntrepreneur(entrepreneurID uint) (*types.EntrepreneurProfile, error) {
	var profile types.EntrepreneurProfile
	if err := d.db.Where("id = ?", entrepreneurID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
