package order

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
	inventoryapp "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
)

// OrderService handles the storefront side of the order lifecycle.
// Every transition writes the order and its stock effect in one transaction.
// Fulfilment statuses normally arrive from the ERP; only cancellations are pushed back.
type OrderService struct {
	orders   order.Repository
	products catalog.ProductRepository
	txScope  inventoryapp.TransactionScope
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orders order.Repository,
	products catalog.ProductRepository,
	txScope inventoryapp.TransactionScope,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:   orders,
		products: products,
		txScope:  txScope,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns an order
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// PlaceOrder creates an OPEN order and reserves its stock.
// Nothing is pushed to the ERP until the payment succeeds or the grace period runs out.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.WrapDomainError("INVALID_INPUT", err.Error(), err)
	}

	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(order.NewOrderInput{
		OrderNumber: req.OrderNumber,
		Customer: order.Customer{
			Name:  req.CustomerName,
			Email: req.Email,
			Phone: req.Phone,
		},
		ShippingAddress: order.Address{
			Street:      req.Street,
			City:        req.City,
			PostalCode:  req.PostalCode,
			CountryCode: req.CountryCode,
		},
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		ShippingCost:  req.ShippingCost,
		Lines:         lines,
	})
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos inventoryapp.TransactionalRepositories) error {
		if err := repos.OrderRepo().Create(ctx, o); err != nil {
			return err
		}
		return repos.InventoryRepo().Apply(ctx, o.Adjustments(order.StockEffectReserve)...)
	})
	if err != nil {
		return nil, err
	}

	logger.WithTraceContext(ctx, s.logger).Info("Order placed",
		logger.OrderID(o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total().StringFixed(2)),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Cancel cancels an unshipped order and releases its reservation
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*OrderResponse, error) {
	return s.transition(ctx, id, "cancel", true, func(o *order.Order, at time.Time) (order.StockEffect, error) {
		return o.Cancel(reason, order.HistorySourceOperator, at)
	})
}

// StartProcessing moves a confirmed order into processing
func (s *OrderService) StartProcessing(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, "start_processing", false, func(o *order.Order, at time.Time) (order.StockEffect, error) {
		return o.StartProcessing(order.HistorySourceOperator, at)
	})
}

// Ship marks an order shipped and commits its stock
func (s *OrderService) Ship(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, "ship", false, func(o *order.Order, at time.Time) (order.StockEffect, error) {
		return o.Ship(order.HistorySourceOperator, at)
	})
}

// Deliver marks an order delivered
func (s *OrderService) Deliver(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, "deliver", false, func(o *order.Order, at time.Time) (order.StockEffect, error) {
		return o.Deliver(order.HistorySourceOperator, at)
	})
}

func (s *OrderService) transition(
	ctx context.Context,
	id uuid.UUID,
	action string,
	push bool,
	apply func(*order.Order, time.Time) (order.StockEffect, error),
) (*OrderResponse, error) {
	var (
		updated *order.Order
		effect  order.StockEffect
		queued  *integration.SyncJob
	)
	err := s.txScope.Execute(ctx, func(repos inventoryapp.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		effect, err = apply(o, s.now())
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
		if push && o.IsSynced() {
			// status pushes of a synced order are not gated on payment
			queued, err = integrationapp.EnqueueOrderJobIn(ctx, repos.JobRepo(), integration.JobTypePushOrder, o.ID,
				integration.SyncJobPayload{SkipPaymentCheck: true})
			if err != nil {
				return err
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		logger.OrderID(id.String()),
		zap.String("action", action),
		zap.String("status", updated.Status.String()),
		zap.String("stock_effect", effect.String()),
	}
	if queued != nil {
		fields = append(fields, logger.SyncJobID(queued.ID.String()))
	}
	logger.WithTraceContext(ctx, s.logger).Info("Order status changed", fields...)
	resp := ToOrderResponse(updated)
	return &resp, nil
}

// resolveLines prices requested items from the catalog
func (s *OrderService) resolveLines(ctx context.Context, in []PlaceOrderLine) ([]order.LineInput, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, l := range in {
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

	lines := make([]order.LineInput, 0, len(in))
	for _, l := range in {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product "+l.ProductID.String()+" does not exist")
		}
		line := order.LineInput{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
		}
		if l.VariantID != nil && *l.VariantID != uuid.Nil {
			v := p.Variant(*l.VariantID)
			if v == nil {
				return nil, shared.NewDomainError("VARIANT_NOT_FOUND", "Variant "+l.VariantID.String()+" does not belong to product "+p.ID.String())
			}
			line.VariantID = v.ID
			if v.SKU != "" {
				line.SKU = v.SKU
			}
			line.Name = p.Name + " " + v.Name
		}
		lines = append(lines, line)
	}
	return lines, nil
}
