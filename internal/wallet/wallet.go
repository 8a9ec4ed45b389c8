// Package wallet holds the per-entrepreneur running balance and the
// withdrawal pipeline against it. Balances move only through the payment
// reconciliation credit path and the withdrawal request/finalize path.
package wallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/auth"
	"github.com/templeobijnr/payjaro-backend/internal/earnings"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"github.com/templeobijnr/payjaro-backend/pkg/response"
	"gorm.io/gorm"
)

// Policy carries the platform withdrawal rules. Passed in explicitly so
// tests can vary it without process-wide state.
type Policy struct {
	MinimumWithdrawal decimal.Decimal
	FeeRate           decimal.Decimal // fraction of amount, e.g. 0.02
	FeeFloor          decimal.Decimal
}

// DefaultPolicy mirrors production: NGN 1,000 minimum, 2% fee with a
// NGN 50 floor.
func DefaultPolicy() Policy {
	return Policy{
		MinimumWithdrawal: decimal.NewFromInt(1000),
		FeeRate:           decimal.NewFromFloat(0.02),
		FeeFloor:          decimal.NewFromInt(50),
	}
}

// Fee computes the processing fee for a withdrawal amount.
func (p Policy) Fee(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(p.FeeRate).Round(2)
	if fee.LessThan(p.FeeFloor) {
		return p.FeeFloor
	}
	return fee
}

// Service handles wallet reads, withdrawal requests and payout
// finalization.
type Service struct {
	db       *Database
	earnings *earnings.Database
	policy   Policy
}

func NewService(gormDB *gorm.DB, policy Policy) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		earnings: earnings.NewDatabase(gormDB),
		policy:   policy,
	}
}

func (s *Service) GetDB() *Database {
	return s.db
}

// EnsureWallet creates the entrepreneur's wallet on first use.
func (s *Service) EnsureWallet(entrepreneurID uint) (*types.Wallet, error) {
	var wallet *types.Wallet
	err := s.db.DB().Transaction(func(tx *gorm.DB) error {
		var txErr error
		wallet, txErr = Ensure(tx, entrepreneurID)
		return txErr
	})
	return wallet, err
}

// RequestWithdrawal validates the amount against policy and balance,
// computes the processing fee, freezes the funds and records the request,
// all in one transaction. The frozen amount sits in pending_balance until
// the payout rail reports back.
func (s *Service) RequestWithdrawal(entrepreneurID uint, amount decimal.Decimal, method string, destination map[string]any) (*types.WithdrawalRequest, error) {
	logger := log.With().
		Uint("entrepreneur_id", entrepreneurID).
		Str("service", "wallet").
		Logger()

	if !amount.IsPositive() {
		return nil, types.NewValidationError("withdrawal amount must be greater than zero")
	}
	if method == "" {
		return nil, types.NewValidationError("withdrawal method is required")
	}
	if amount.LessThan(s.policy.MinimumWithdrawal) {
		return nil, types.ErrBelowMinimum
	}

	request := &types.WithdrawalRequest{
		ReferenceID:        newWithdrawalReference(entrepreneurID),
		EntrepreneurID:     entrepreneurID,
		Amount:             amount,
		WithdrawalMethod:   method,
		DestinationDetails: destination,
		Status:             types.WithdrawalStatusPending,
		ProcessingFee:      s.policy.Fee(amount),
	}

	err := s.db.DB().Transaction(func(tx *gorm.DB) error {
		if _, err := Ensure(tx, entrepreneurID); err != nil {
			return err
		}
		if err := freeze(tx, entrepreneurID, amount); err != nil {
			return err
		}
		return tx.Create(request).Error
	})
	if err != nil {
		logger.Warn().Err(err).Str("amount", amount.String()).Msg("withdrawal request rejected")
		return nil, err
	}

	logger.Info().
		Str("reference_id", request.ReferenceID).
		Str("amount", amount.String()).
		Str("processing_fee", request.ProcessingFee.String()).
		Msg("withdrawal request created")
	return request, nil
}

// FinalizePayout applies the payout rail's verdict for one withdrawal.
// Success moves the frozen amount into total_withdrawn; failure returns
// it to the spendable balance and rejects the request. A request that has
// already been finalized is left untouched and reported as a no-op.
func (s *Service) FinalizePayout(referenceID string, success bool) error {
	logger := log.With().
		Str("reference_id", referenceID).
		Bool("success", success).
		Str("service", "wallet").
		Logger()

	return s.db.DB().Transaction(func(tx *gorm.DB) error {
		var request types.WithdrawalRequest
		if err := tx.Where("reference_id = ?", referenceID).First(&request).Error; err != nil {
			return err
		}

		if request.Status == types.WithdrawalStatusCompleted || request.Status == types.WithdrawalStatusRejected {
			logger.Info().Str("status", request.Status).Msg("withdrawal already finalized, skipping")
			return nil
		}

		newStatus := types.WithdrawalStatusCompleted
		if !success {
			newStatus = types.WithdrawalStatusRejected
		}

		now := time.Now()
		result := tx.Model(&types.WithdrawalRequest{}).
			Where("reference_id = ? AND status IN ?", referenceID,
				[]string{types.WithdrawalStatusPending, types.WithdrawalStatusProcessing}).
			Updates(map[string]interface{}{
				"status":       newStatus,
				"processed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrConcurrencyConflict
		}

		if err := settleFrozen(tx, request.EntrepreneurID, request.Amount, success); err != nil {
			return err
		}

		logger.Info().Str("status", newStatus).Msg("withdrawal finalized")
		return nil
	})
}

func (s *Service) ListWithdrawals(entrepreneurID uint) ([]types.WithdrawalRequest, error) {
	return s.db.ListWithdrawals(entrepreneurID)
}

// SummaryResponse is the entrepreneur-facing earnings overview.
type SummaryResponse struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	TotalMarkup      decimal.Decimal `json:"total_markup"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	PendingEarnings  decimal.Decimal `json:"pending_earnings"`
	TotalSales       decimal.Decimal `json:"total_sales"`
}

func (s *Service) Summary(entrepreneurID uint) (*SummaryResponse, error) {
	wallet, err := s.EnsureWallet(entrepreneurID)
	if err != nil {
		return nil, err
	}

	ledger, err := s.earnings.Summarize(entrepreneurID)
	if err != nil {
		return nil, err
	}

	totalSales := decimal.Zero
	if profile, err := s.db.GetEntrepreneur(entrepreneurID); err == nil {
		totalSales = profile.TotalSales
	}

	return &SummaryResponse{
		AvailableBalance: wallet.Balance,
		PendingBalance:   wallet.PendingBalance,
		TotalEarned:      wallet.TotalEarned,
		TotalWithdrawn:   wallet.TotalWithdrawn,
		TotalMarkup:      ledger.TotalMarkup,
		TotalCommission:  ledger.TotalCommission,
		PendingEarnings:  ledger.PendingEarnings,
		TotalSales:       totalSales,
	}, nil
}

// newWithdrawalReference builds a globally unique reference. The uuid
// suffix replaces the old per-entrepreneur counter, which raced under
// concurrent requests.
func newWithdrawalReference(entrepreneurID uint) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("WD%d%s", entrepreneurID, suffix)
}

// GinHandlers contains HTTP handlers for wallet and withdrawal endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type withdrawalRequestBody struct {
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	WithdrawalMethod   string          `json:"withdrawal_method" binding:"required"`
	DestinationDetails map[string]any  `json:"destination_details"`
}

// RequestWithdrawalHandler handles POST requests to create withdrawals.
// The entrepreneur is taken from the authenticated claims, never the body.
func (h *GinHandlers) RequestWithdrawalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		entrepreneurID := auth.GetEntrepreneurID(claims)
		if entrepreneurID == 0 {
			response.Forbidden(c, "Only entrepreneurs can request withdrawals")
			return
		}

		var body withdrawalRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		request, err := h.service.RequestWithdrawal(entrepreneurID, body.Amount, body.WithdrawalMethod, body.DestinationDetails)
		response.Handle(c, request, err)
	}
}

func (h *GinHandlers) ListWithdrawalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		entrepreneurID := auth.GetEntrepreneurID(claims)
		if entrepreneurID == 0 {
			response.Forbidden(c, "Only entrepreneurs can view withdrawals")
			return
		}

		requests, err := h.service.ListWithdrawals(entrepreneurID)
		response.Handle(c, requests, err)
	}
}

func (h *GinHandlers) SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		entrepreneurID := auth.GetEntrepreneurID(claims)
		if entrepreneurID == 0 {
			response.Forbidden(c, "Only entrepreneurs can view earnings")
			return
		}

		summary, err := h.service.Summary(entrepreneurID)
		response.Handle(c, summary, err)
	}
}

// FinalizePayoutHandler handles payout-rail callbacks. Internal only.
func (h *GinHandlers) FinalizePayoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceID := c.Param("reference_id")
		var body struct {
			Success bool `json:"success"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.FinalizePayout(referenceID, body.Success); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"message": "payout finalized"})
	}
}
