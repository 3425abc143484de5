package order

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "OPEN"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states with no outgoing transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusRefunded
}

// HasShipped returns true once goods have left the warehouse
func (s OrderStatus) HasShipped() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusOpen:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusProcessing || target == OrderStatusShipped ||
			target == OrderStatusDelivered || target == OrderStatusCancelled || target == OrderStatusRefunded
	case OrderStatusProcessing:
		return target == OrderStatusShipped || target == OrderStatusDelivered ||
			target == OrderStatusCancelled || target == OrderStatusRefunded
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusRefunded
	case OrderStatusDelivered:
		return target == OrderStatusRefunded
	case OrderStatusCancelled:
		// a paid order that was cancelled can still be refunded
		return target == OrderStatusRefunded
	case OrderStatusRefunded:
		return false
	}
	return false
}

// HistorySource records who caused a transition
type HistorySource string

const (
	HistorySourceLocal    HistorySource = "local"
	HistorySourcePayment  HistorySource = "payment"
	HistorySourceErp      HistorySource = "erp"
	HistorySourceOperator HistorySource = "operator"
)
