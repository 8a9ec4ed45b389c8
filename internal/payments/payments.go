// Package payments records payment attempts and reconciles provider
// confirmation events against internal state. Reconciliation is the only
// path that marks orders paid, settles the earnings ledger and credits
// wallets, and it applies each provider reference exactly once no matter
// how many times the webhook is delivered.
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/earnings"
	"github.com/templeobijnr/payjaro-backend/internal/orders"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"github.com/templeobijnr/payjaro-backend/internal/wallet"
	"github.com/templeobijnr/payjaro-backend/pkg/response"
	"gorm.io/gorm"
)

// ConfirmationEvent is one authenticated provider confirmation. The
// caller (webhook handler) verifies the signature before the event gets
// here.
type ConfirmationEvent struct {
	ExternalReference string          `json:"external_reference"`
	Success           bool            `json:"success"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
}

// Service handles payment initiation and reconciliation
type Service struct {
	db        *Database
	providers map[string]Provider
}

func NewService(gormDB *gorm.DB, providers ...Provider) *Service {
	registry := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		registry[provider.Name()] = provider
	}
	return &Service{
		db:        NewDatabase(gormDB),
		providers: registry,
	}
}

func (s *Service) GetDB() *Database {
	return s.db
}

// InitiationResult is returned to the customer to complete payment.
type InitiationResult struct {
	PaymentURL    string `json:"payment_url"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
}

// InitiatePayment opens a payment with the named provider and records
// the transaction. The provider call happens before the write; nothing
// here blocks on the network while holding a database transaction.
func (s *Service) InitiatePayment(orderRef, providerName, customerEmail, callbackURL string) (*InitiationResult, error) {
	logger := log.With().
		Str("order_id", orderRef).
		Str("provider", providerName).
		Str("service", "payments").
		Logger()

	provider, ok := s.providers[providerName]
	if !ok {
		return nil, types.NewValidationError("unsupported payment provider %q", providerName)
	}

	order, err := s.db.GetOrder(orderRef)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, types.NewValidationError("order %s not found", orderRef)
	}
	if order.PaymentStatus == types.PaymentStatusPaid {
		return nil, types.NewValidationError("order %s has already been paid", orderRef)
	}

	initResult, err := provider.Initialize(order, customerEmail, callbackURL)
	if err != nil {
		logger.Error().Err(err).Msg("provider initialization failed")
		return nil, fmt.Errorf("payment initialization failed: %w", err)
	}

	transaction := &types.Transaction{
		TransactionID: initResult.Reference,
		OrderRef:      order.OrderID,
		Provider:      providerName,
		Amount:        order.TotalAmount,
		Currency:      "NGN",
		Status:        types.TransactionStatusPending,
		Metadata: map[string]any{
			"callback_url": callbackURL,
		},
	}
	if err := s.db.CreateTransaction(transaction); err != nil {
		return nil, err
	}

	logger.Info().
		Str("reference", initResult.Reference).
		Str("amount", order.TotalAmount.String()).
		Msg("payment initiated")

	return &InitiationResult{
		PaymentURL:    initResult.PaymentURL,
		Reference:     initResult.Reference,
		TransactionID: transaction.TransactionID,
	}, nil
}

// HandleConfirmation reconciles one provider event. The whole contract
// runs inside a single transaction: the duplicate check, the order
// transition, the ledger settlement and the wallet credit all commit or
// roll back together, so a retried delivery either sees a completed
// transaction (no-op) or a pending one (full replay).
func (s *Service) HandleConfirmation(event ConfirmationEvent) error {
	logger := log.With().
		Str("external_reference", event.ExternalReference).
		Bool("success", event.Success).
		Str("service", "payments").
		Logger()

	err := s.db.DB().Transaction(func(tx *gorm.DB) error {
		var transaction types.Transaction
		err := tx.Where("transaction_id = ?", event.ExternalReference).First(&transaction).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrUnknownTransaction
			}
			return err
		}

		// Duplicate delivery is a successful no-op, not an error.
		if transaction.Status != types.TransactionStatusPending {
			logger.Info().
				Str("status", transaction.Status).
				Msg("transaction already reconciled, skipping duplicate delivery")
			return nil
		}

		if !event.Success {
			return s.applyFailure(tx, &transaction, event)
		}
		return s.applySuccess(tx, &transaction, event, logger)
	})

	if err != nil {
		if errors.Is(err, types.ErrUnknownTransaction) {
			logger.Error().Msg("confirmation references unknown transaction, flagging for manual reconciliation")
		} else {
			logger.Error().Err(err).Msg("reconciliation failed, transaction left pending for retry")
		}
		return err
	}
	return nil
}

func (s *Service) applySuccess(tx *gorm.DB, transaction *types.Transaction, event ConfirmationEvent, logger zerolog.Logger) error {
	result := tx.Model(&types.Transaction{}).
		Where("transaction_id = ? AND status = ?", transaction.TransactionID, types.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":     types.TransactionStatusCompleted,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrConcurrencyConflict
	}

	order, err := orders.MarkPaid(tx, transaction.OrderRef, transaction.Provider)
	if err != nil {
		return err
	}

	paidAt := time.Now()
	entries, err := earnings.MarkPaid(tx, order.OrderID, paidAt)
	if err != nil {
		return err
	}

	total := earnings.Sum(entries)
	if err := wallet.Credit(tx, order.EntrepreneurID, total); err != nil {
		return err
	}

	// Lifetime sales counter on the entrepreneur profile.
	if err := tx.Model(&types.EntrepreneurProfile{}).
		Where("id = ?", order.EntrepreneurID).
		Updates(map[string]interface{}{
			"total_sales":    gorm.Expr("total_sales + ?", order.TotalAmount),
			"total_earnings": gorm.Expr("total_earnings + ?", total),
		}).Error; err != nil {
		return err
	}

	logger.Info().
		Str("order_id", order.OrderID).
		Str("credited", total.String()).
		Msg("payment reconciled and wallet credited")
	return nil
}

func (s *Service) applyFailure(tx *gorm.DB, transaction *types.Transaction, event ConfirmationEvent) error {
	// A failed attempt touches only the transaction; the order stays
	// pending and eligible for another attempt or cancellation.
	result := tx.Model(&types.Transaction{}).
		Where("transaction_id = ? AND status = ?", transaction.TransactionID, types.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":         types.TransactionStatusFailed,
			"failure_reason": event.FailureReason,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrConcurrencyConflict
	}
	return nil
}

// GinHandlers contains HTTP handlers for payment endpoints
type GinHandlers struct {
	service     *Service
	paystack    *Paystack
	flutterwave *Flutterwave
}

func NewGinHandlers(service *Service, paystack *Paystack, flutterwave *Flutterwave) *GinHandlers {
	return &GinHandlers{
		service:     service,
		paystack:    paystack,
		flutterwave: flutterwave,
	}
}

type initiatePaymentBody struct {
	OrderID     string `json:"order_id" binding:"required"`
	Provider    string `json:"provider" binding:"required"`
	Email       string `json:"email" binding:"required"`
	CallbackURL string `json:"callback_url"`
}

// InitiatePaymentHandler handles POST requests to open a payment with a
// provider.
func (h *GinHandlers) InitiatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body initiatePaymentBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.InitiatePayment(body.OrderID, body.Provider, body.Email, body.CallbackURL)
		response.Handle(c, result, err)
	}
}

// PaystackWebhookHandler verifies the HMAC signature and feeds the
// charge event into reconciliation. Signature verification is the edge's
// job; the reconciliation unit assumes authenticated events.
func (h *GinHandlers) PaystackWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "unreadable payload")
			return
		}

		signature := c.GetHeader("x-paystack-signature")
		if !h.paystack.VerifyWebhookSignature(payload, signature) {
			log.Warn().Str("service", "payments").Msg("invalid paystack webhook signature")
			response.Unauthorized(c, "invalid signature")
			return
		}

		var webhook struct {
			Event string `json:"event"`
			Data  struct {
				Reference       string         `json:"reference"`
				Amount          int64          `json:"amount"`
				Currency        string         `json:"currency"`
				GatewayResponse string         `json:"gateway_response"`
				Metadata        map[string]any `json:"metadata"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &webhook); err != nil {
			response.BadRequest(c, "malformed payload")
			return
		}

		switch webhook.Event {
		case "charge.success", "charge.failed":
		default:
			// Unhandled event types are acknowledged so the provider
			// stops redelivering them.
			response.Success(c, gin.H{"status": "ignored"})
			return
		}

		event := ConfirmationEvent{
			ExternalReference: webhook.Data.Reference,
			Success:           webhook.Event == "charge.success",
			Amount:            decimal.NewFromInt(webhook.Data.Amount).Div(kobo),
			Currency:          webhook.Data.Currency,
			FailureReason:     webhook.Data.GatewayResponse,
			Metadata:          webhook.Data.Metadata,
		}

		if err := h.service.HandleConfirmation(event); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"status": "success"})
	}
}

// FlutterwaveWebhookHandler verifies the verif-hash header and feeds the
// event into reconciliation.
func (h *GinHandlers) FlutterwaveWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.flutterwave.VerifyWebhookSignature(c.GetHeader("verif-hash")) {
			log.Warn().Str("service", "payments").Msg("invalid flutterwave webhook signature")
			response.Unauthorized(c, "invalid signature")
			return
		}

		var webhook struct {
			Event string `json:"event"`
			Data  struct {
				TxRef    string          `json:"tx_ref"`
				Status   string          `json:"status"`
				Amount   decimal.Decimal `json:"amount"`
				Currency string          `json:"currency"`
			} `json:"data"`
		}
		if err := c.ShouldBindJSON(&webhook); err != nil {
			response.BadRequest(c, "malformed payload")
			return
		}

		if webhook.Event != "charge.completed" {
			response.Success(c, gin.H{"status": "ignored"})
			return
		}

		event := ConfirmationEvent{
			ExternalReference: webhook.Data.TxRef,
			Success:           webhook.Data.Status == "successful",
			Amount:            webhook.Data.Amount,
			Currency:          webhook.Data.Currency,
			FailureReason:     webhook.Data.Status,
		}

		if err := h.service.HandleConfirmation(event); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"status": "success"})
	}
}

// GetTransactionHandler returns one transaction by reference.
func (h *GinHandlers) GetTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		transactionID := c.Param("transaction_id")

		transaction, err := h.service.GetDB().GetTransaction(transactionID)
		if err != nil || transaction == nil {
			response.NotFound(c, "Transaction not found")
			return
		}
		response.Success(c, transaction)
	}
}
