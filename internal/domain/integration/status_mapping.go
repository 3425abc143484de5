package integration

import (
	"fmt"

	"github.com/erp/ordersync/internal/domain/order"
)

// ---------------------------------------------------------------------------
// ERP Status Buckets
// ---------------------------------------------------------------------------

// ErpStatusBucket is the closed set of meanings an ERP status id can carry.
// ERP status ids are account-specific numbers; configuration assigns each one a bucket.
type ErpStatusBucket string

const (
	ErpBucketAwaitingPayment ErpStatusBucket = "awaiting_payment"
	ErpBucketNew             ErpStatusBucket = "new"
	ErpBucketProcessing      ErpStatusBucket = "processing"
	ErpBucketShipped         ErpStatusBucket = "shipped"
	ErpBucketDelivered       ErpStatusBucket = "delivered"
	ErpBucketCancelled       ErpStatusBucket = "cancelled"
	ErpBucketRefunded        ErpStatusBucket = "refunded"
)

// IsValid returns true if the bucket is valid
func (b ErpStatusBucket) IsValid() bool {
	_, ok := bucketToOrderStatus[b]
	return ok
}

// bucketToOrderStatus is the fixed bucket -> local status table
var bucketToOrderStatus = map[ErpStatusBucket]order.OrderStatus{
	ErpBucketAwaitingPayment: order.OrderStatusOpen,
	ErpBucketNew:             order.OrderStatusConfirmed,
	ErpBucketProcessing:      order.OrderStatusProcessing,
	ErpBucketShipped:         order.OrderStatusShipped,
	ErpBucketDelivered:       order.OrderStatusDelivered,
	ErpBucketCancelled:       order.OrderStatusCancelled,
	ErpBucketRefunded:        order.OrderStatusRefunded,
}

// OrderStatus returns the local status for the bucket
func (b ErpStatusBucket) OrderStatus() order.OrderStatus {
	return bucketToOrderStatus[b]
}

// StatusMapping converts between ERP status ids and local statuses
type StatusMapping struct {
	// Outbound status ids
	AwaitingPaymentStatusID int
	PaidStatusID            int
	RefundedStatusID        int
	CancelledStatusID       int
	// inbound maps ERP status id -> bucket
	inbound map[int]ErpStatusBucket
}

// NewStatusMapping validates and builds a mapping.
// Outbound ids are registered inbound too unless the table already names them.
func NewStatusMapping(awaitingPayment, paid, refunded, cancelled int, inbound map[int]ErpStatusBucket) (*StatusMapping, error) {
	if awaitingPayment <= 0 || paid <= 0 || refunded <= 0 {
		return nil, NewConfigurationError("status_mapping", "awaiting payment, paid and refunded status ids are required")
	}
	if cancelled <= 0 {
		cancelled = refunded
	}
	m := &StatusMapping{
		AwaitingPaymentStatusID: awaitingPayment,
		PaidStatusID:            paid,
		RefundedStatusID:        refunded,
		CancelledStatusID:       cancelled,
		inbound:                 make(map[int]ErpStatusBucket, len(inbound)+4),
	}
	for id, bucket := range inbound {
		if !bucket.IsValid() {
			return nil, NewConfigurationError("status_mapping", fmt.Sprintf("status %d maps to unknown bucket %q", id, bucket))
		}
		m.inbound[id] = bucket
	}
	m.registerDefault(awaitingPayment, ErpBucketAwaitingPayment)
	m.registerDefault(paid, ErpBucketNew)
	m.registerDefault(refunded, ErpBucketRefunded)
	m.registerDefault(cancelled, ErpBucketCancelled)
	return m, nil
}

func (m *StatusMapping) registerDefault(id int, bucket ErpStatusBucket) {
	if _, ok := m.inbound[id]; !ok {
		m.inbound[id] = bucket
	}
}

// Resolve maps an ERP status id to a local status.
// Unknown ids return ErrUnmappedErpStatus; they are never guessed.
func (m *StatusMapping) Resolve(erpStatusID int) (order.OrderStatus, error) {
	bucket, ok := m.inbound[erpStatusID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnmappedErpStatus, erpStatusID)
	}
	return bucket.OrderStatus(), nil
}

// OutboundStatusID picks the ERP status for an order push
func (m *StatusMapping) OutboundStatusID(o *order.Order, skipPaymentCheck bool) int {
	switch {
	case o.PaymentStatus == order.PaymentStatusRefunded || o.Status == order.OrderStatusRefunded:
		return m.RefundedStatusID
	case o.Status == order.OrderStatusCancelled:
		return m.CancelledStatusID
	case o.PaymentStatus == order.PaymentStatusPaid:
		return m.PaidStatusID
	case skipPaymentCheck:
		return m.AwaitingPaymentStatusID
	default:
		return m.PaidStatusID
	}
}
