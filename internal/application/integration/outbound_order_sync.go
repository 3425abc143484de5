package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	inventoryapp "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RefundReasonField is the ERP extra field that receives the refund reason
const RefundReasonField = "extra_field_1"

// SyncOptions modifies a single order push
type SyncOptions struct {
	// SkipPaymentCheck pushes an unpaid order with the awaiting-payment status
	SkipPaymentCheck bool `json:"skip_payment_check"`
	// Force pushes regardless of payment state. Admin only.
	Force bool `json:"force"`
	// OrderStatusID overrides the ERP status id
	OrderStatusID *int `json:"order_status_id,omitempty"`
}

// SyncOrderResult reports the outcome of a push.
// ERP and routing failures are results, not Go errors.
type SyncOrderResult struct {
	Success         bool   `json:"success"`
	ExternalOrderID string `json:"external_order_id,omitempty"`
	Created         bool   `json:"created"`
	Error           error  `json:"-"`
}

// ErrorMessage returns the failure text, empty on success
func (r SyncOrderResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}

func failed(err error) SyncOrderResult {
	return SyncOrderResult{Success: false, Error: err}
}

// PendingSweepResult counts a reconciliation sweep
type PendingSweepResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// OutboundConfig tunes the pending-order sweep
type OutboundConfig struct {
	// PendingGrace is how long an unpaid order waits before it is pushed as awaiting payment
	PendingGrace time.Duration
	// PendingSweepLimit bounds one sweep
	PendingSweepLimit int
}

// DefaultOutboundConfig returns the defaults
func DefaultOutboundConfig() OutboundConfig {
	return OutboundConfig{
		PendingGrace:      30 * time.Minute,
		PendingSweepLimit: 100,
	}
}

// OutboundOrderSync pushes local orders to the ERP
type OutboundOrderSync struct {
	orders   order.Repository
	products catalog.ProductRepository
	txScope  inventoryapp.TransactionScope
	conns    *ConnectionResolver
	router   *integration.WarehouseRouter
	statuses *integration.StatusMapping
	cfg      OutboundConfig
	logger   *zap.Logger
	now      func() time.Time
}

// OutboundOption configures OutboundOrderSync
type OutboundOption func(*OutboundOrderSync)

// WithOutboundLogger sets the logger
func WithOutboundLogger(l *zap.Logger) OutboundOption {
	return func(s *OutboundOrderSync) { s.logger = l }
}

// WithOutboundClock replaces time.Now
func WithOutboundClock(now func() time.Time) OutboundOption {
	return func(s *OutboundOrderSync) { s.now = now }
}

// NewOutboundOrderSync creates an OutboundOrderSync
func NewOutboundOrderSync(
	orders order.Repository,
	products catalog.ProductRepository,
	txScope inventoryapp.TransactionScope,
	conns *ConnectionResolver,
	router *integration.WarehouseRouter,
	statuses *integration.StatusMapping,
	cfg OutboundConfig,
	opts ...OutboundOption,
) *OutboundOrderSync {
	d := DefaultOutboundConfig()
	if cfg.PendingGrace <= 0 {
		cfg.PendingGrace = d.PendingGrace
	}
	if cfg.PendingSweepLimit <= 0 {
		cfg.PendingSweepLimit = d.PendingSweepLimit
	}
	s := &OutboundOrderSync{
		orders:   orders,
		products: products,
		txScope:  txScope,
		conns:    conns,
		router:   router,
		statuses: statuses,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncOrderToBaselinker creates the order in the ERP, or updates it if it already exists there.
// The returned error is reserved for local failures such as an unknown order.
func (s *OutboundOrderSync) SyncOrderToBaselinker(ctx context.Context, orderID uuid.UUID, opts SyncOptions) (result SyncOrderResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "erp.sync_order", attribute.String("order.id", orderID.String()))
	defer func() { telemetry.End(span, errors.Join(err, result.Error)) }()

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return SyncOrderResult{}, err
	}
	log := logger.WithTraceContext(ctx, s.logger).With(
		logger.OrderID(orderID.String()),
		zap.String("order_number", o.OrderNumber),
	)

	if o.PaymentStatus != order.PaymentStatusPaid && !opts.SkipPaymentCheck && !opts.Force {
		log.Info("Order push refused, order is not paid", zap.String("payment_status", o.PaymentStatus.String()))
		return failed(integration.ErrOrderNotPaid), nil
	}

	gw, conn, err := s.conns.Open(ctx)
	if err != nil {
		return s.recordFailure(ctx, o, log, err), nil
	}

	statusID := s.statusFor(o, opts)

	if o.IsSynced() {
		if err := s.pushUpdate(ctx, gw, o, statusID); err != nil {
			return s.recordFailure(ctx, o, log, err), nil
		}
		log.Info("Order updated in ERP", zap.String("external_order_id", *o.ExternalOrderID), zap.Int("status_id", statusID))
		return SyncOrderResult{Success: true, ExternalOrderID: *o.ExternalOrderID}, nil
	}

	payload, err := s.buildNewOrder(ctx, o, conn.InventoryID, statusID)
	if err != nil {
		return s.recordFailure(ctx, o, log, err), nil
	}
	externalID, err := gw.AddOrder(ctx, *payload)
	if err != nil {
		return s.recordFailure(ctx, o, log, err), nil
	}

	at := s.now()
	assigned, err := s.orders.AssignExternalID(ctx, o.ID, externalID, at)
	if err != nil {
		// ERP order exists but we could not record it; the sweep will find the order unsynced
		log.Error("Failed to record ERP order id", zap.String("external_order_id", externalID), zap.Error(err))
		return SyncOrderResult{}, fmt.Errorf("failed to record external order id %s: %w", externalID, err)
	}
	if !assigned {
		fresh, ferr := s.orders.FindByID(ctx, o.ID)
		if ferr != nil {
			return SyncOrderResult{}, ferr
		}
		log.Warn("Order was pushed concurrently, keeping the first ERP id",
			zap.String("external_order_id", externalID),
			zap.String("kept_external_order_id", deref(fresh.ExternalOrderID)),
		)
		return SyncOrderResult{Success: true, ExternalOrderID: deref(fresh.ExternalOrderID)}, nil
	}
	if o.PaymentStatus == order.PaymentStatusPaid && payload.Paid {
		if err := s.orders.MarkPaidSynced(ctx, o.ID, at); err != nil {
			log.Warn("Failed to record paid sync", zap.Error(err))
		}
	}

	log.Info("Order created in ERP",
		zap.String("external_order_id", externalID),
		zap.Int("status_id", statusID),
		zap.Int("packages", len(payload.Packages)),
	)
	return SyncOrderResult{Success: true, ExternalOrderID: externalID, Created: true}, nil
}

// MarkOrderAsPaid tells the ERP about a confirmed payment. Unsynced orders are created first.
func (s *OutboundOrderSync) MarkOrderAsPaid(ctx context.Context, orderID uuid.UUID) (SyncOrderResult, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return SyncOrderResult{}, err
	}
	if o.PaymentStatus != order.PaymentStatusPaid {
		return failed(integration.ErrOrderNotPaid), nil
	}
	if !o.IsSynced() {
		return s.SyncOrderToBaselinker(ctx, orderID, SyncOptions{})
	}

	log := s.logger.With(logger.OrderID(orderID.String()))
	gw, _, err := s.conns.Open(ctx)
	if err != nil {
		return s.recordFailure(ctx, o, log, err), nil
	}
	if err := s.pushUpdate(ctx, gw, o, s.statuses.PaidStatusID); err != nil {
		return s.recordFailure(ctx, o, log, err), nil
	}
	log.Info("Order marked paid in ERP", zap.String("external_order_id", *o.ExternalOrderID))
	return SyncOrderResult{Success: true, ExternalOrderID: *o.ExternalOrderID}, nil
}

// MarkOrderAsRefunded refunds the order locally (once) and pushes the refund to the ERP
func (s *OutboundOrderSync) MarkOrderAsRefunded(ctx context.Context, orderID uuid.UUID, reason string) (SyncOrderResult, error) {
	log := s.logger.With(logger.OrderID(orderID.String()))

	var refunded *order.Order
	err := s.txScope.Execute(ctx, func(repos inventoryapp.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		refunded = o
		if o.Status == order.OrderStatusRefunded {
			return nil
		}
		effect, err := o.Refund(reason, order.HistorySourcePayment, s.now())
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}
		if adj := o.Adjustments(effect); len(adj) > 0 {
			if err := repos.InventoryRepo().Apply(ctx, adj...); err != nil {
				return err
			}
		}
		log.Info("Order refunded locally", zap.String("stock_effect", effect.String()))
		return nil
	})
	if err != nil {
		return SyncOrderResult{}, err
	}

	if !refunded.IsSynced() {
		log.Info("Refunded order was never pushed, nothing to update in ERP")
		return SyncOrderResult{Success: true}, nil
	}

	gw, _, err := s.conns.Open(ctx)
	if err != nil {
		return s.recordFailure(ctx, refunded, log, err), nil
	}
	ext := *refunded.ExternalOrderID
	if err := gw.SetOrderStatus(ctx, ext, s.statuses.RefundedStatusID); err != nil {
		return s.recordFailure(ctx, refunded, log, err), nil
	}
	if strings.TrimSpace(reason) != "" {
		if err := gw.SetOrderFields(ctx, ext, map[string]string{RefundReasonField: reason}); err != nil {
			return s.recordFailure(ctx, refunded, log, err), nil
		}
	}
	s.clearFailure(ctx, refunded, log)
	log.Info("Order marked refunded in ERP", zap.String("external_order_id", ext))
	return SyncOrderResult{Success: true, ExternalOrderID: ext}, nil
}

// SyncPendingOrders pushes orders missing from the ERP and payments the ERP has not seen
func (s *OutboundOrderSync) SyncPendingOrders(ctx context.Context, limit int) (PendingSweepResult, error) {
	if limit <= 0 {
		limit = s.cfg.PendingSweepLimit
	}
	pending, err := s.orders.FindPendingSync(ctx, order.PendingSyncQuery{
		UnpaidCreatedBefore: s.now().Add(-s.cfg.PendingGrace),
		Limit:               limit,
	})
	if err != nil {
		return PendingSweepResult{}, err
	}

	var res PendingSweepResult
	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var (
			r   SyncOrderResult
			err error
		)
		switch {
		case o.NeedsPaidSync():
			r, err = s.MarkOrderAsPaid(ctx, o.ID)
		case o.PaymentStatus == order.PaymentStatusPaid:
			r, err = s.SyncOrderToBaselinker(ctx, o.ID, SyncOptions{})
		default:
			r, err = s.SyncOrderToBaselinker(ctx, o.ID, SyncOptions{SkipPaymentCheck: true})
		}
		res.Processed++
		if err != nil || !r.Success {
			res.Failed++
			continue
		}
		res.Succeeded++
	}

	s.logger.Info("Pending order sweep finished",
		zap.Int("processed", res.Processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// statusFor applies the status precedence: explicit id, then the mapping. The mapping
// puts cancelled and refunded orders ahead of awaiting payment.
func (s *OutboundOrderSync) statusFor(o *order.Order, opts SyncOptions) int {
	if opts.OrderStatusID != nil && *opts.OrderStatusID > 0 {
		return *opts.OrderStatusID
	}
	return s.statuses.OutboundStatusID(o, opts.SkipPaymentCheck)
}

func (s *OutboundOrderSync) pushUpdate(ctx context.Context, gw integration.ErpGateway, o *order.Order, statusID int) error {
	ext := *o.ExternalOrderID
	if err := gw.SetOrderStatus(ctx, ext, statusID); err != nil {
		return err
	}
	if o.PaymentStatus != order.PaymentStatusPaid {
		s.clearFailure(ctx, o, s.logger)
		return nil
	}
	paidAt := s.now()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	if err := gw.SetOrderPayment(ctx, ext, integration.ErpPayment{
		Amount:  o.Total(),
		PaidAt:  paidAt,
		Comment: "Payment confirmed for order " + o.OrderNumber,
	}); err != nil {
		return err
	}
	if err := s.orders.MarkPaidSynced(ctx, o.ID, s.now()); err != nil {
		s.logger.Warn("Failed to record paid sync", logger.OrderID(o.ID.String()), zap.Error(err))
	}
	s.clearFailure(ctx, o, s.logger)
	return nil
}

// buildNewOrder routes every line and groups them into one package per inventory
func (s *OutboundOrderSync) buildNewOrder(ctx context.Context, o *order.Order, defaultInventory string, statusID int) (*integration.ErpNewOrder, error) {
	if len(o.Lines) == 0 {
		return nil, integration.ErrEmptyOrder
	}

	ids := make([]uuid.UUID, 0, len(o.Lines))
	for _, l := range o.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	router := s.router.WithDefault(defaultInventory)
	var (
		inventories []string
		packages    = map[string]*integration.ErpPackage{}
		weights     = map[string]decimal.Decimal{}
	)
	for _, l := range o.Lines {
		routable := integration.RoutableProduct{ID: l.ProductID.String()}
		productExt, variantExt := "", ""
		if p, ok := byID[l.ProductID]; ok {
			routable = p.Routing()
			productExt = p.ExternalID
			if v := p.Variant(l.VariantID); v != nil {
				variantExt = v.ExternalID
			}
		}
		inv, err := router.ResolveInventory(routable)
		if err != nil {
			return nil, err
		}
		pkg, ok := packages[inv]
		if !ok {
			pkg = &integration.ErpPackage{InventoryID: inv}
			packages[inv] = pkg
			inventories = append(inventories, inv)
		}
		pkg.Products = append(pkg.Products, integration.ErpOrderProduct{
			InventoryID:    inv,
			ProductID:      productExt,
			VariantID:      variantExt,
			SKU:            l.SKU,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPriceGross: l.UnitPrice,
		})
		weights[inv] = weights[inv].Add(l.LineTotal)
	}

	w := make([]decimal.Decimal, len(inventories))
	for i, inv := range inventories {
		w[i] = weights[inv]
	}
	shipping := AllocateShipping(o.ShippingCost, w)

	out := &integration.ErpNewOrder{
		ShopOrderID:   o.OrderNumber,
		StatusID:      statusID,
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		Paid:          o.PaymentStatus == order.PaymentStatusPaid,
		Email:         o.Customer.Email,
		Phone:         o.Customer.Phone,
		Address: integration.ErpAddress{
			FullName:    o.Customer.Name,
			Street:      o.ShippingAddress.Street,
			City:        o.ShippingAddress.City,
			PostalCode:  o.ShippingAddress.PostalCode,
			CountryCode: o.ShippingAddress.CountryCode,
		},
		ShippingCost: o.ShippingCost,
		CreatedAt:    o.CreatedAt,
		Packages:     make([]integration.ErpPackage, 0, len(inventories)),
	}
	for i, inv := range inventories {
		pkg := packages[inv]
		pkg.ShippingCost = shipping[i]
		out.Packages = append(out.Packages, *pkg)
	}
	return out, nil
}

// recordFailure stores the push error on the order for admins and returns it as a result
func (s *OutboundOrderSync) recordFailure(ctx context.Context, o *order.Order, log *zap.Logger, cause error) SyncOrderResult {
	fields := []zap.Field{zap.String("error_code", integration.ErrorCode(cause)), zap.Error(cause)}
	if errors.Is(cause, integration.ErrUnroutableProduct) || errors.Is(cause, integration.ErrConfiguration) {
		log.Warn("Order push failed", fields...)
	} else {
		log.Error("Order push failed", fields...)
	}
	if err := s.orders.RecordSyncError(ctx, o.ID, cause.Error()); err != nil {
		log.Warn("Failed to record sync error", zap.Error(err))
	}
	return failed(cause)
}

func (s *OutboundOrderSync) clearFailure(ctx context.Context, o *order.Order, log *zap.Logger) {
	if o.SyncError == "" {
		return
	}
	if err := s.orders.RecordSyncError(ctx, o.ID, ""); err != nil {
		log.Warn("Failed to clear sync error", zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
