// Package orders owns order creation and the status lifecycle. Creation
// reserves stock, snapshots prices and seeds the earnings ledger in one
// transaction; transitions run through the state machine with their side
// effects applied atomically.
package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/auth"
	"github.com/templeobijnr/payjaro-backend/internal/catalog"
	"github.com/templeobijnr/payjaro-backend/internal/earnings"
	"github.com/templeobijnr/payjaro-backend/internal/pricing"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"github.com/templeobijnr/payjaro-backend/pkg/response"
	"gorm.io/gorm"
)

// Service handles order creation and lifecycle operations
type Service struct {
	db          *Database
	catalog     *catalog.Database
	shippingFee decimal.Decimal
}

// NewService creates a new order service. The flat shipping fee is policy
// injected by the caller, not read from globals.
func NewService(gormDB *gorm.DB, shippingFee decimal.Decimal) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		catalog:     catalog.NewDatabase(gormDB),
		shippingFee: shippingFee,
	}
}

func (s *Service) GetDB() *Database {
	return s.db
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID   uint            `json:"product_id" binding:"required"`
	VariationID *uint           `json:"variation_id"`
	Quantity    int             `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateOrderInput is the full order creation request.
type CreateOrderInput struct {
	CustomerID       uint
	EntrepreneurSlug string
	Items            []ItemInput
	ShippingAddress  types.ShippingAddress
	Notes            string
}

// CreateOrder validates the request, prices it, reserves stock and writes
// the order with its items, initial history record and pending earnings
// in one transaction. Any failure rolls everything back, including the
// stock reservation.
func (s *Service) CreateOrder(input CreateOrderInput) (*types.Order, error) {
	logger := log.With().
		Str("entrepreneur_slug", input.EntrepreneurSlug).
		Str("service", "orders").
		Logger()

	if err := validateShippingAddress(input.ShippingAddress); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, types.NewValidationError("order must contain at least one item")
	}

	entrepreneur, err := s.db.GetEntrepreneurBySlug(input.EntrepreneurSlug)
	if err != nil {
		return nil, err
	}
	if entrepreneur == nil || !entrepreneur.IsActive {
		return nil, types.NewValidationError("entrepreneur %q not found", input.EntrepreneurSlug)
	}

	var order *types.Order
	err = s.db.DB().Transaction(func(tx *gorm.DB) error {
		pricingInputs := make([]pricing.ItemInput, 0, len(input.Items))
		lines := make([]catalog.Line, 0, len(input.Items))
		var supplierID uint

		for i, item := range input.Items {
			var product types.Product
			if err := tx.Where("id = ?", item.ProductID).First(&product).Error; err != nil {
				return types.NewValidationError("item %d: product %d not found", i, item.ProductID)
			}
			if !product.IsActive {
				return types.NewValidationError("item %d: product %d is inactive", i, item.ProductID)
			}

			// All lines must resolve to one supplier. Multi-supplier
			// checkout fails validation instead of silently picking the
			// first item's supplier.
			if supplierID == 0 {
				supplierID = product.SupplierID
			} else if supplierID != product.SupplierID {
				return types.NewValidationError("all items must belong to a single supplier")
			}

			modifier := decimal.Zero
			if item.VariationID != nil {
				var variation types.ProductVariation
				if err := tx.Where("id = ? AND product_id = ?", *item.VariationID, item.ProductID).
					First(&variation).Error; err != nil {
					return types.NewValidationError("item %d: variation %d not found for product %d", i, *item.VariationID, item.ProductID)
				}
				modifier = variation.PriceModifier
			}

			pricingInputs = append(pricingInputs, pricing.ItemInput{
				BasePrice:         product.BasePrice,
				VariationModifier: modifier,
				Quantity:          item.Quantity,
				UnitPrice:         item.UnitPrice,
			})
			lines = append(lines, catalog.Line{
				ProductID:   item.ProductID,
				VariationID: item.VariationID,
				Quantity:    item.Quantity,
			})
		}

		quote, err := pricing.Calculate(pricingInputs, entrepreneur.CommissionRate, s.shippingFee)
		if err != nil {
			return err
		}

		if err := catalog.Reserve(tx, lines); err != nil {
			return err
		}

		order = &types.Order{
			OrderID:          newOrderReference(),
			CustomerID:       input.CustomerID,
			EntrepreneurID:   entrepreneur.ID,
			SupplierID:       supplierID,
			Status:           types.OrderStatusPending,
			PaymentStatus:    types.PaymentStatusPending,
			Subtotal:         quote.Subtotal,
			MarkupAmount:     quote.MarkupAmount,
			CommissionAmount: quote.CommissionAmount,
			ShippingFee:      quote.ShippingFee,
			TotalAmount:      quote.TotalAmount,
			ShippingAddress:  input.ShippingAddress,
			Notes:            input.Notes,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for i, item := range input.Items {
			orderItem := &types.OrderItem{
				OrderRef:     order.OrderID,
				ProductID:    item.ProductID,
				VariationID:  item.VariationID,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice,
				BasePrice:    quote.Items[i].EffectiveBase,
				MarkupAmount: quote.Items[i].MarkupAmount,
				TotalPrice:   quote.Items[i].TotalPrice,
			}
			if err := tx.Create(orderItem).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, *orderItem)
		}

		if err := appendHistory(tx, order.OrderID, types.OrderStatusPending, "Order created", fmt.Sprintf("customer:%d", input.CustomerID)); err != nil {
			return err
		}

		// Both ledger entries are written even when an amount is zero, so
		// every order has exactly one record per earning type.
		if err := earnings.CreatePending(tx, entrepreneur.ID, order.OrderID, types.EarningTypeMarkup, quote.MarkupAmount); err != nil {
			return err
		}
		return earnings.CreatePending(tx, entrepreneur.ID, order.OrderID, types.EarningTypeCommission, quote.CommissionAmount)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("order creation failed")
		return nil, err
	}

	logger.Info().
		Str("order_id", order.OrderID).
		Str("total_amount", order.TotalAmount.String()).
		Str("commission_amount", order.CommissionAmount.String()).
		Msg("order created")
	return order, nil
}

// UpdateStatus drives the state machine for fulfillment transitions. The
// paid status is reachable only through payment reconciliation and is
// rejected here so payment confirmation cannot be forged through the
// generic status endpoint.
func (s *Service) UpdateStatus(orderRef, newStatus, actor, notes string) (*types.Order, error) {
	logger := log.With().
		Str("order_id", orderRef).
		Str("new_status", newStatus).
		Str("service", "orders").
		Logger()

	if !IsKnownStatus(newStatus) {
		return nil, types.NewValidationError("unknown order status %q", newStatus)
	}
	if newStatus == types.OrderStatusPaid {
		return nil, types.NewValidationError("paid status is set by payment confirmation, not status updates")
	}

	var order types.Order
	err := s.db.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("order_id = ?", orderRef).First(&order).Error; err != nil {
			return err
		}

		if err := checkTransition(order.Status, newStatus); err != nil {
			return err
		}
		previous := order.Status

		result := tx.Model(&types.Order{}).
			Where("order_id = ? AND status = ?", orderRef, previous).
			Updates(map[string]interface{}{
				"status":     newStatus,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrConcurrencyConflict
		}
		order.Status = newStatus

		if err := appendHistory(tx, orderRef, newStatus, notes, actor); err != nil {
			return err
		}

		// Cancelling an unpaid order puts the reserved stock back and
		// voids the pending ledger entries. Later cancellations (paid,
		// processing) are refund territory handled outside this core.
		if newStatus == types.OrderStatusCancelled && previous == types.OrderStatusPending {
			lines := make([]catalog.Line, 0, len(order.Items))
			for _, item := range order.Items {
				lines = append(lines, catalog.Line{
					ProductID:   item.ProductID,
					VariationID: item.VariationID,
					Quantity:    item.Quantity,
				})
			}
			if err := catalog.Release(tx, lines); err != nil {
				return err
			}
			if err := earnings.MarkCancelled(tx, orderRef); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("status update rejected")
		return nil, err
	}

	logger.Info().Msg("order status updated")
	return &order, nil
}

// MarkPaid advances a pending order to paid inside the caller's
// transaction. Only the payment reconciliation unit calls this; the
// status guard in the UPDATE keeps a concurrent duplicate from applying
// twice.
func MarkPaid(tx *gorm.DB, orderRef, provider string) (*types.Order, error) {
	var order types.Order
	if err := tx.Where("order_id = ?", orderRef).First(&order).Error; err != nil {
		return nil, err
	}

	if err := checkTransition(order.Status, types.OrderStatusPaid); err != nil {
		return nil, err
	}

	result := tx.Model(&types.Order{}).
		Where("order_id = ? AND status = ?", orderRef, types.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":         types.OrderStatusPaid,
			"payment_status": types.PaymentStatusPaid,
			"payment_method": provider,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, types.ErrConcurrencyConflict
	}

	if err := appendHistory(tx, orderRef, types.OrderStatusPaid, "Payment confirmed via "+provider, "system:"+provider); err != nil {
		return nil, err
	}

	order.Status = types.OrderStatusPaid
	order.PaymentStatus = types.PaymentStatusPaid
	order.PaymentMethod = provider
	return &order, nil
}

func validateShippingAddress(addr types.ShippingAddress) error {
	missing := make([]string, 0, 5)
	if addr.FullName == "" {
		missing = append(missing, "full_name")
	}
	if addr.Phone == "" {
		missing = append(missing, "phone")
	}
	if addr.Street == "" {
		missing = append(missing, "street")
	}
	if addr.City == "" {
		missing = append(missing, "city")
	}
	if addr.State == "" {
		missing = append(missing, "state")
	}
	if len(missing) > 0 {
		return types.NewValidationError("shipping address missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// newOrderReference builds a human-readable globally unique reference,
// e.g. PAY20250901A1B2C3D4.
func newOrderReference() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return "PAY" + time.Now().Format("20060102") + suffix
}

// GinHandlers contains HTTP handlers for order endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type createOrderBody struct {
	EntrepreneurSlug string                `json:"entrepreneur_custom_url" binding:"required"`
	Items            []ItemInput           `json:"items" binding:"required"`
	ShippingAddress  types.ShippingAddress `json:"shipping_address"`
	Notes            string                `json:"notes"`
}

// CreateOrderHandler handles POST requests to create orders. The
// customer comes from the authenticated claims.
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		customerID := auth.GetUserID(claims)
		if customerID == 0 {
			response.Unauthorized(c, "Invalid user in token")
			return
		}

		var body createOrderBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.CreateOrder(CreateOrderInput{
			CustomerID:       customerID,
			EntrepreneurSlug: body.EntrepreneurSlug,
			Items:            body.Items,
			ShippingAddress:  body.ShippingAddress,
			Notes:            body.Notes,
		})
		response.Handle(c, order, err)
	}
}

// GetOrderHandler handles GET requests for a single order scoped to the
// requesting customer.
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		customerID := auth.GetUserID(claims)

		orderRef := c.Param("order_id")
		order, err := h.service.GetDB().GetOrderByRefAndCustomer(orderRef, customerID)
		if err != nil || order == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, order)
	}
}

// GetOrderHistoryHandler returns the append-only transition log.
func (h *GinHandlers) GetOrderHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef := c.Param("order_id")

		history, err := h.service.GetDB().GetHistory(orderRef)
		response.Handle(c, history, err)
	}
}

// ListCustomerOrdersHandler returns the authenticated customer's own
// orders, newest first.
func (h *GinHandlers) ListCustomerOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		customerID := auth.GetUserID(claims)
		if customerID == 0 {
			response.Unauthorized(c, "Invalid user in token")
			return
		}

		orders, err := h.service.GetDB().ListByCustomer(customerID)
		response.Handle(c, orders, err)
	}
}

// ListSupplierOrdersHandler returns orders to be fulfilled by the
// authenticated supplier.
func (h *GinHandlers) ListSupplierOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		supplierID := auth.GetSupplierID(claims)
		if supplierID == 0 {
			response.Forbidden(c, "Only suppliers can access this endpoint")
			return
		}

		orders, err := h.service.GetDB().ListBySupplier(supplierID)
		response.Handle(c, orders, err)
	}
}

// ListEntrepreneurOrdersHandler returns orders resold by the
// authenticated entrepreneur.
func (h *GinHandlers) ListEntrepreneurOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		entrepreneurID := auth.GetEntrepreneurID(claims)
		if entrepreneurID == 0 {
			response.Forbidden(c, "Only entrepreneurs can access this endpoint")
			return
		}

		orders, err := h.service.GetDB().ListByEntrepreneur(entrepreneurID)
		response.Handle(c, orders, err)
	}
}

type updateStatusBody struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateStatusHandler handles fulfillment status transitions. Internal
// only; the paid transition is rejected by the service regardless.
func (h *GinHandlers) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef := c.Param("order_id")

		var body updateStatusBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.UpdateStatus(orderRef, body.Status, "internal", body.Notes)
		response.Handle(c, order, err)
	}
}
