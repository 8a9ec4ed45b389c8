package wallet

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

// PayoutRail submits an accepted withdrawal to the external payout
// provider. The rail later reports the outcome through FinalizePayout.
type PayoutRail interface {
	Submit(request *types.WithdrawalRequest) error
}

// Processor hands pending withdrawal requests to the payout rail on an
// interval and marks them processing. Finalization happens separately,
// driven by the rail's callback.
type Processor struct {
	db           *Database
	rail         PayoutRail
	processDelay time.Duration
}

func NewProcessor(db *Database, rail PayoutRail) *Processor {
	return &Processor{
		db:           db,
		rail:         rail,
		processDelay: time.Minute,
	}
}

// Start begins the payout processing loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "payout_processor").Logger()
	logger.Info().Msg("starting payout processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down payout processor")
			return
		case <-ticker.C:
			if err := p.processPendingWithdrawals(); err != nil {
				logger.Error().Err(err).Msg("failed to process pending withdrawals")
			}
		}
	}
}

// LoggingRail is a payout rail that accepts every submission and logs
// it. Used until a bank transfer provider is wired in, and by the
// simulation. TODO: replace with the Paystack transfer API rail.
type LoggingRail struct{}

func (LoggingRail) Submit(request *types.WithdrawalRequest) error {
	log.Info().
		Str("reference_id", request.ReferenceID).
		Str("amount", request.Amount.String()).
		Str("method", request.WithdrawalMethod).
		Msg("submitting withdrawal to payout rail")
	return nil
}

func (p *Processor) processPendingWithdrawals() error {
	logger := log.With().Str("component", "payout_processor").Logger()

	requests, err := p.db.GetPendingWithdrawals()
	if err != nil {
		return err
	}

	logger.Info().Int("pending_count", len(requests)).Msg("processing pending withdrawals")

	for i := range requests {
		request := &requests[i]

		if err := p.rail.Submit(request); err != nil {
			logger.Error().
				Err(err).
				Str("reference_id", request.ReferenceID).
				Msg("payout rail rejected submission, leaving request pending")
			continue
		}

		// Move to processing only for requests still pending, so a
		// concurrent finalization is never overwritten.
		result := p.db.DB().Model(&types.WithdrawalRequest{}).
			Where("reference_id = ? AND status = ?", request.ReferenceID, types.WithdrawalStatusPending).
			Update("status", types.WithdrawalStatusProcessing)
		if result.Error != nil {
			logger.Error().
				Err(result.Error).
				Str("reference_id", request.ReferenceID).
				Msg("failed to mark withdrawal processing")
			continue
		}
		if result.RowsAffected > 0 {
			logger.Info().
				Str("reference_id", request.ReferenceID).
				Msg("withdrawal handed to payout rail")
		}
	}

	return nil
}
