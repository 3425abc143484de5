package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrExternalIDAlreadyAssigned is returned when a different ERP id is already recorded
var ErrExternalIDAlreadyAssigned = errors.New("order: external order id already assigned")

// StockEffect is the inventory consequence of a transition
type StockEffect int

const (
	StockEffectNone StockEffect = iota
	// StockEffectReserve holds stock at checkout: reserved += q
	StockEffectReserve
	// StockEffectCommit consumes held stock at shipment: quantity -= q, reserved -= q
	StockEffectCommit
	// StockEffectRelease drops the hold of an unshipped order: reserved -= q
	StockEffectRelease
	// StockEffectRestore returns shipped goods to stock: quantity += q
	StockEffectRestore
)

// String returns a readable name for logs
func (e StockEffect) String() string {
	switch e {
	case StockEffectReserve:
		return "reserve"
	case StockEffectCommit:
		return "commit"
	case StockEffectRelease:
		return "release"
	case StockEffectRestore:
		return "restore"
	default:
		return "none"
	}
}

// Customer is the buyer contact
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Address is a delivery address
type Address struct {
	Street      string
	City        string
	PostalCode  string
	CountryCode string
}

// StatusHistoryEntry is an immutable record of one transition
type StatusHistoryEntry struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	FromStatus    OrderStatus
	ToStatus      OrderStatus
	PaymentStatus PaymentStatus
	Source        HistorySource
	Note          string
	At            time.Time
}

// Order is the local order aggregate root
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	Customer        Customer
	ShippingAddress Address
	Currency        string
	PaymentMethod   string
	ShippingCost    decimal.Decimal
	Lines           []OrderLine
	PaymentStatus   PaymentStatus
	Status          OrderStatus
	// ExternalOrderID is the ERP order id. Set at most once, never overwritten.
	ExternalOrderID  *string
	ExternalSyncedAt *time.Time
	// PaidSyncedAt is set once the ERP has been told about the payment
	PaidSyncedAt *time.Time
	// SyncError is the last push failure, shown to admins
	SyncError   string
	PaidAt      *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	RefundedAt  *time.Time
	History     []StatusHistoryEntry
}

// NewOrderInput holds the checkout data
type NewOrderInput struct {
	OrderNumber     string
	Customer        Customer
	ShippingAddress Address
	Currency        string
	PaymentMethod   string
	ShippingCost    decimal.Decimal
	Lines           []LineInput
}

// NewOrder creates an OPEN order awaiting payment
func NewOrder(in NewOrderInput) (*Order, error) {
	if strings.TrimSpace(in.OrderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(in.OrderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if len(in.Lines) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must have at least one line")
	}
	if in.ShippingCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_COST", "Shipping cost cannot be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if len(currency) != 3 {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter code")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       strings.TrimSpace(in.OrderNumber),
		Customer:          in.Customer,
		ShippingAddress:   in.ShippingAddress,
		Currency:          currency,
		PaymentMethod:     in.PaymentMethod,
		ShippingCost:      in.ShippingCost,
		PaymentStatus:     PaymentStatusPending,
		Status:            OrderStatusOpen,
	}
	for _, li := range in.Lines {
		line, err := NewOrderLine(o.ID, li)
		if err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}
	o.appendHistory("", OrderStatusOpen, HistorySourceLocal, "Order placed", o.CreatedAt)
	return o, nil
}

// ---------------------------------------------------------------------------
// Totals
// ---------------------------------------------------------------------------

// Subtotal returns the sum of line totals
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// Total returns the amount the customer pays
func (o *Order) Total() decimal.Decimal {
	return o.Subtotal().Add(o.ShippingCost)
}

// ---------------------------------------------------------------------------
// ERP sync state
// ---------------------------------------------------------------------------

// IsSynced returns true once the ERP order exists
func (o *Order) IsSynced() bool {
	return o.ExternalOrderID != nil && *o.ExternalOrderID != ""
}

// AssignExternalID records the ERP id. The same id again is a no-op; a different id fails.
func (o *Order) AssignExternalID(externalID string, at time.Time) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return shared.NewDomainError("INVALID_EXTERNAL_ID", "External order ID cannot be empty")
	}
	if o.IsSynced() {
		if *o.ExternalOrderID == externalID {
			return nil
		}
		return fmt.Errorf("%w: order %s already has %s", ErrExternalIDAlreadyAssigned, o.OrderNumber, *o.ExternalOrderID)
	}
	o.ExternalOrderID = &externalID
	o.ExternalSyncedAt = &at
	o.SyncError = ""
	o.UpdatedAt = at
	return nil
}

// NeedsPaidSync returns true when a paid order's payment has not reached the ERP
func (o *Order) NeedsPaidSync() bool {
	return o.PaymentStatus == PaymentStatusPaid && o.IsSynced() && o.PaidSyncedAt == nil
}

// ---------------------------------------------------------------------------
// Payment
// ---------------------------------------------------------------------------

// MarkPaid confirms payment and moves an OPEN order to CONFIRMED
func (o *Order) MarkPaid(at time.Time) error {
	if o.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	if o.PaymentStatus != PaymentStatusPending && o.PaymentStatus != PaymentStatusFailed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order paid with payment status %s", o.PaymentStatus))
	}
	if o.Status != OrderStatusOpen && o.Status != OrderStatusConfirmed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order paid in %s status", o.Status))
	}

	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = &at
	if o.Status == OrderStatusOpen {
		o.setStatus(OrderStatusConfirmed, HistorySourcePayment, "Payment confirmed", at)
	} else {
		o.appendHistory(o.Status, o.Status, HistorySourcePayment, "Payment confirmed", at)
		o.UpdatedAt = at
	}
	return nil
}

// MarkPaymentFailed records a failed payment attempt; the reservation stays until cancel
func (o *Order) MarkPaymentFailed(reason string, at time.Time) error {
	if o.PaymentStatus == PaymentStatusFailed {
		return nil
	}
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment with payment status %s", o.PaymentStatus))
	}
	o.PaymentStatus = PaymentStatusFailed
	o.appendHistory(o.Status, o.Status, HistorySourcePayment, "Payment failed: "+reason, at)
	o.UpdatedAt = at
	return nil
}

// ---------------------------------------------------------------------------
// Fulfilment
// ---------------------------------------------------------------------------

// StartProcessing moves a confirmed order into processing
func (o *Order) StartProcessing(source HistorySource, at time.Time) (StockEffect, error) {
	if err := o.checkTransition(OrderStatusProcessing); err != nil {
		return StockEffectNone, err
	}
	o.setStatus(OrderStatusProcessing, source, "", at)
	return StockEffectNone, nil
}

// Ship marks goods as left; the reservation becomes a stock decrement
func (o *Order) Ship(source HistorySource, at time.Time) (StockEffect, error) {
	if err := o.checkTransition(OrderStatusShipped); err != nil {
		return StockEffectNone, err
	}
	o.ShippedAt = &at
	o.setStatus(OrderStatusShipped, source, "", at)
	return StockEffectCommit, nil
}

// Deliver marks the order delivered. Skipping SHIPPED commits stock here.
func (o *Order) Deliver(source HistorySource, at time.Time) (StockEffect, error) {
	if err := o.checkTransition(OrderStatusDelivered); err != nil {
		return StockEffectNone, err
	}
	effect := StockEffectNone
	if o.ShippedAt == nil {
		o.ShippedAt = &at
		effect = StockEffectCommit
	}
	o.DeliveredAt = &at
	o.setStatus(OrderStatusDelivered, source, "", at)
	return effect, nil
}

// Cancel cancels an unshipped order and releases its reservation.
// A paid order keeps PAID until it is refunded.
func (o *Order) Cancel(reason string, source HistorySource, at time.Time) (StockEffect, error) {
	if err := o.checkTransition(OrderStatusCancelled); err != nil {
		return StockEffectNone, err
	}
	if o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed {
		o.PaymentStatus = PaymentStatusCancelled
	}
	o.CancelledAt = &at
	o.setStatus(OrderStatusCancelled, source, reason, at)
	return StockEffectRelease, nil
}

// Refund refunds a paid order. Unshipped stock is released, shipped stock restored,
// and a cancelled order has nothing left to return.
func (o *Order) Refund(reason string, source HistorySource, at time.Time) (StockEffect, error) {
	if o.Status == OrderStatusRefunded {
		return StockEffectNone, shared.NewDomainError("INVALID_STATE", "Order is already refunded")
	}
	if o.PaymentStatus != PaymentStatusPaid {
		return StockEffectNone, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund order with payment status %s", o.PaymentStatus))
	}
	if err := o.checkTransition(OrderStatusRefunded); err != nil {
		return StockEffectNone, err
	}

	var effect StockEffect
	switch {
	case o.ShippedAt != nil:
		effect = StockEffectRestore
	case o.Status == OrderStatusCancelled:
		effect = StockEffectNone
	default:
		effect = StockEffectRelease
	}

	o.PaymentStatus = PaymentStatusRefunded
	o.RefundedAt = &at
	o.setStatus(OrderStatusRefunded, source, reason, at)
	return effect, nil
}

// ApplyErpStatus moves the order to a status reported by the ERP (last writer wins).
// Returns changed=false when the order is already in that status.
func (o *Order) ApplyErpStatus(target OrderStatus, at time.Time) (StockEffect, bool, error) {
	if !target.IsValid() {
		return StockEffectNone, false, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if target == o.Status {
		return StockEffectNone, false, nil
	}

	var (
		effect StockEffect
		err    error
	)
	switch target {
	case OrderStatusProcessing:
		effect, err = o.StartProcessing(HistorySourceErp, at)
	case OrderStatusShipped:
		effect, err = o.Ship(HistorySourceErp, at)
	case OrderStatusDelivered:
		effect, err = o.Deliver(HistorySourceErp, at)
	case OrderStatusCancelled:
		effect, err = o.Cancel("Cancelled in ERP", HistorySourceErp, at)
	case OrderStatusRefunded:
		effect, err = o.Refund("Refunded in ERP", HistorySourceErp, at)
	default:
		if err = o.checkTransition(target); err == nil {
			o.setStatus(target, HistorySourceErp, "", at)
		}
	}
	if err != nil {
		return StockEffectNone, false, err
	}
	return effect, true, nil
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// Adjustments converts a stock effect into per-line inventory changes
func (o *Order) Adjustments(effect StockEffect) []inventory.Adjustment {
	if effect == StockEffectNone {
		return nil
	}
	adjustments := make([]inventory.Adjustment, 0, len(o.Lines))
	for _, l := range o.Lines {
		a := inventory.Adjustment{ProductID: l.ProductID, VariantID: l.VariantID}
		switch effect {
		case StockEffectReserve:
			a.ReservedDelta = l.Quantity
		case StockEffectCommit:
			a.QuantityDelta = -l.Quantity
			a.ReservedDelta = -l.Quantity
		case StockEffectRelease:
			a.ReservedDelta = -l.Quantity
		case StockEffectRestore:
			a.QuantityDelta = l.Quantity
		}
		adjustments = append(adjustments, a)
	}
	return adjustments
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (o *Order) checkTransition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	return nil
}

func (o *Order) setStatus(target OrderStatus, source HistorySource, note string, at time.Time) {
	from := o.Status
	o.Status = target
	o.UpdatedAt = at
	o.appendHistory(from, target, source, note, at)
}

func (o *Order) appendHistory(from, to OrderStatus, source HistorySource, note string, at time.Time) {
	o.History = append(o.History, StatusHistoryEntry{
		ID:            uuid.New(),
		OrderID:       o.ID,
		FromStatus:    from,
		ToStatus:      to,
		PaymentStatus: o.PaymentStatus,
		Source:        source,
		Note:          note,
		At:            at,
	})
}
