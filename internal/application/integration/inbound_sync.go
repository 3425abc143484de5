package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	inventoryapp "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Skip codes recorded in sync log details
const (
	SkipUnknownProduct    = "UNKNOWN_PRODUCT"
	SkipUnknownVariant    = "UNKNOWN_VARIANT"
	SkipUnmappedStatus    = "UNMAPPED_STATUS"
	SkipIllegalTransition = "ILLEGAL_TRANSITION"
	SkipErpOrderMissing   = "ERP_ORDER_MISSING"
	SkipConflict          = "CONCURRENT_UPDATE"
	SkipInvalidItem       = "INVALID_ITEM"
	SkipImageFailed       = "IMAGE_FAILED"
)

// InboundConfig tunes inbound runs
type InboundConfig struct {
	// StatusWindow bounds how far back order status changes are taken when no
	// previous run left a journal cursor
	StatusWindow time.Duration
	// CheckpointEvery is how many items are processed between progress saves and cancel checks
	CheckpointEvery int
	// LookupChunk bounds IN (...) lists when matching ERP ids to local rows
	LookupChunk int
	// ImageBatch bounds the products mirrored per image run
	ImageBatch int
}

// DefaultInboundConfig returns the defaults
func DefaultInboundConfig() InboundConfig {
	return InboundConfig{
		StatusWindow:    6 * time.Hour,
		CheckpointEvery: 100,
		LookupChunk:     500,
		ImageBatch:      200,
	}
}

// InboundSync pulls stock, catalog and order status changes from the ERP
type InboundSync struct {
	conns      *ConnectionResolver
	logs       integration.SyncLogRepository
	txScope    inventoryapp.TransactionScope
	orders     order.Repository
	stock      inventory.Repository
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	statuses   *integration.StatusMapping
	images     ImageStore
	fetcher    ImageFetcher
	recorder   RunRecorder
	cfg        InboundConfig
	logger     *zap.Logger
	now        func() time.Time
}

// InboundDeps groups the collaborators of InboundSync
type InboundDeps struct {
	Connections *ConnectionResolver
	Logs        integration.SyncLogRepository
	TxScope     inventoryapp.TransactionScope
	Orders      order.Repository
	Stock       inventory.Repository
	Products    catalog.ProductRepository
	Categories  catalog.CategoryRepository
	Statuses    *integration.StatusMapping
	// Images and Fetcher may be nil when image mirroring is disabled
	Images   ImageStore
	Fetcher  ImageFetcher
	Recorder RunRecorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewInboundSync creates an InboundSync
func NewInboundSync(deps InboundDeps, cfg InboundConfig) *InboundSync {
	d := DefaultInboundConfig()
	if cfg.StatusWindow <= 0 {
		cfg.StatusWindow = d.StatusWindow
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = d.CheckpointEvery
	}
	if cfg.LookupChunk <= 0 {
		cfg.LookupChunk = d.LookupChunk
	}
	if cfg.ImageBatch <= 0 {
		cfg.ImageBatch = d.ImageBatch
	}
	s := &InboundSync{
		conns:      deps.Connections,
		logs:       deps.Logs,
		txScope:    deps.TxScope,
		orders:     deps.Orders,
		stock:      deps.Stock,
		products:   deps.Products,
		categories: deps.Categories,
		statuses:   deps.Statuses,
		images:     deps.Images,
		fetcher:    deps.Fetcher,
		recorder:   deps.Recorder,
		cfg:        cfg,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.recorder == nil {
		s.recorder = NoopRunRecorder()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// run is the state of one guarded sync run
type run struct {
	s       *InboundSync
	log     *integration.SyncLog
	gw      integration.ErpGateway
	conn    *integration.ActiveConnection
	logger  *zap.Logger
	pending int
}

// checkpoint saves progress and stops the run if an operator cancelled it
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.pending = 0
	if err := r.s.logs.SaveProgress(ctx, r.log); err != nil {
		return err
	}
	stored, err := r.s.logs.FindByID(ctx, r.log.ID)
	if err != nil {
		return err
	}
	if stored.Status == integration.SyncLogStatusCancelled {
		return integration.ErrSyncCancelled
	}
	return nil
}

// tick counts one item and checkpoints every CheckpointEvery items
func (r *run) tick(ctx context.Context) error {
	r.pending++
	if r.pending >= r.s.cfg.CheckpointEvery {
		return r.checkpoint(ctx)
	}
	return nil
}

// Run dispatches a sync type
func (s *InboundSync) Run(ctx context.Context, syncType integration.SyncType, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	switch syncType {
	case integration.SyncTypeStock:
		return s.SyncStock(ctx, trigger)
	case integration.SyncTypeOrderStatus:
		return s.SyncOrderStatuses(ctx, trigger)
	case integration.SyncTypeCategories:
		return s.SyncCategories(ctx, mode, trigger)
	case integration.SyncTypeProducts:
		return s.SyncProducts(ctx, mode, trigger)
	case integration.SyncTypeImages:
		return s.SyncImages(ctx, trigger)
	case integration.SyncTypeFull:
		return s.SyncFull(ctx, mode, trigger)
	default:
		return nil, fmt.Errorf("%w: %s", integration.ErrInvalidSyncType, syncType)
	}
}

// SyncStock overwrites local quantities with ERP stock for the active inventory
func (s *InboundSync) SyncStock(ctx context.Context, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	return s.runGuarded(ctx, integration.SyncTypeStock, integration.SyncModeAll, trigger, true, s.stockPhase)
}

// SyncOrderStatuses applies recent ERP status changes to local orders
func (s *InboundSync) SyncOrderStatuses(ctx context.Context, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	return s.runGuarded(ctx, integration.SyncTypeOrderStatus, integration.SyncModeAll, trigger, true, s.orderStatusPhase)
}

// SyncCategories upserts categories by external id
func (s *InboundSync) SyncCategories(ctx context.Context, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	return s.runGuarded(ctx, integration.SyncTypeCategories, mode, trigger, true, s.categoryPhase)
}

// SyncProducts upserts products by external id
func (s *InboundSync) SyncProducts(ctx context.Context, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	return s.runGuarded(ctx, integration.SyncTypeProducts, mode, trigger, true, s.productPhase)
}

// SyncImages mirrors unmirrored product images into object storage
func (s *InboundSync) SyncImages(ctx context.Context, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	return s.runGuarded(ctx, integration.SyncTypeImages, integration.SyncModeAll, trigger, false, s.imagePhase)
}

// SyncFull runs categories, products and stock as one run
func (s *InboundSync) SyncFull(ctx context.Context, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncLog, error) {
	return s.runGuarded(ctx, integration.SyncTypeFull, mode, trigger, true, func(ctx context.Context, r *run) error {
		for _, phase := range []func(context.Context, *run) error{s.categoryPhase, s.productPhase, s.stockPhase} {
			if err := phase(ctx, r); err != nil {
				return err
			}
			if err := r.checkpoint(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// CancelRun marks a running log cancelled; the run stops at its next checkpoint
func (s *InboundSync) CancelRun(ctx context.Context, logID uuid.UUID, reason string) (*integration.SyncLog, error) {
	log, err := s.logs.FindByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Cancelled by operator"
	}
	if err := log.Cancel(reason); err != nil {
		return nil, err
	}
	ok, err := s.logs.Finish(ctx, log)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, integration.ErrSyncLogNotRunning
	}
	s.logger.Info("Sync run cancelled", logger.SyncLogID(logID.String()), zap.String("sync_type", log.Type.String()))
	return log, nil
}

// GetLog returns one sync log
func (s *InboundSync) GetLog(ctx context.Context, id uuid.UUID) (*integration.SyncLog, error) {
	return s.logs.FindByID(ctx, id)
}

// ListLogs returns sync logs, newest first unless the filter sorts otherwise
func (s *InboundSync) ListLogs(ctx context.Context, filter integration.SyncLogFilter) (shared.Paginated[*integration.SyncLog], error) {
	filter.Normalize()
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return shared.Paginated[*integration.SyncLog]{}, err
	}
	return shared.NewPaginated(logs, total, filter.Page, filter.PageSize), nil
}

// DetectStuckRuns fails running logs older than threshold so a new run of the type can start
func (s *InboundSync) DetectStuckRuns(ctx context.Context, threshold time.Duration) (int, error) {
	running, err := s.logs.FindRunning(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	failed := 0
	for _, log := range running {
		if !log.IsStuck(threshold, now) {
			continue
		}
		_ = log.Fail(fmt.Errorf("run exceeded %s without finishing", threshold))
		ok, err := s.logs.Finish(ctx, log)
		if err != nil {
			return failed, err
		}
		if ok {
			failed++
			s.logger.Warn("Stuck sync run marked failed",
				logger.SyncLogID(log.ID.String()),
				zap.String("sync_type", log.Type.String()),
				zap.Time("started_at", log.StartedAt),
			)
		}
	}
	return failed, nil
}

// runGuarded wraps a phase with mutual exclusion, progress tracking and finalization.
// A failure aborts only this run; nothing already written is rolled back.
func (s *InboundSync) runGuarded(
	ctx context.Context,
	syncType integration.SyncType,
	mode integration.SyncMode,
	trigger integration.SyncTrigger,
	needsErp bool,
	body func(context.Context, *run) error,
) (log *integration.SyncLog, err error) {
	log, err = integration.NewSyncLog(syncType, mode, trigger)
	if err != nil {
		return nil, err
	}
	if err := s.logs.StartRun(ctx, log); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "sync."+syncType.String(),
		attribute.String("sync.log_id", log.ID.String()),
		attribute.String("sync.trigger", string(trigger)),
	)
	defer func() { telemetry.End(span, err) }()

	r := &run{
		s:   s,
		log: log,
		logger: logger.WithTraceContext(ctx, s.logger).With(
			logger.SyncLogID(log.ID.String()),
			zap.String("sync_type", syncType.String()),
		),
	}
	r.logger.Info("Sync run started", zap.String("mode", string(mode)), zap.String("trigger", string(trigger)))

	if needsErp {
		r.gw, r.conn, err = s.conns.Open(ctx)
	}
	if err == nil {
		err = body(ctx, r)
	}
	return s.finish(ctx, r, err)
}

func (s *InboundSync) finish(ctx context.Context, r *run, runErr error) (*integration.SyncLog, error) {
	log := r.log
	// the run context may be cancelled; finalization must still reach the database
	finCtx := context.WithoutCancel(ctx)

	if errors.Is(runErr, integration.ErrSyncCancelled) {
		if err := s.logs.SaveProgress(finCtx, log); err != nil {
			r.logger.Warn("Failed to save progress of cancelled run", zap.Error(err))
		}
		log.Status = integration.SyncLogStatusCancelled
		r.logger.Info("Sync run stopped after cancellation", zap.Int("items_processed", log.ItemsProcessed))
		s.recorder.RecordSyncRun(finCtx, log.Type.String(), string(log.Status), log.Duration(), log.ItemsProcessed, log.ItemsSkipped)
		return log, runErr
	}

	if runErr != nil {
		_ = log.Fail(runErr)
	} else {
		_ = log.Complete()
	}
	ok, err := s.logs.Finish(finCtx, log)
	if err != nil {
		r.logger.Error("Failed to finalize sync log", zap.Error(err))
		return log, errors.Join(runErr, err)
	}
	if !ok {
		r.logger.Info("Sync log was finalized elsewhere, keeping stored state")
	}

	fields := []zap.Field{
		zap.String("status", string(log.Status)),
		zap.Int("items_processed", log.ItemsProcessed),
		zap.Int("items_changed", log.ItemsChanged),
		zap.Int("items_skipped", log.ItemsSkipped),
		zap.Duration("duration", log.Duration()),
	}
	if runErr != nil {
		r.logger.Error("Sync run failed", append(fields, zap.String("error_code", integration.ErrorCode(runErr)), zap.Error(runErr))...)
	} else {
		r.logger.Info("Sync run finished", fields...)
	}
	s.recorder.RecordSyncRun(finCtx, log.Type.String(), string(log.Status), log.Duration(), log.ItemsProcessed, log.ItemsSkipped)
	return log, runErr
}

// ---------------------------------------------------------------------------
// Phases
// ---------------------------------------------------------------------------

func (s *InboundSync) stockPhase(ctx context.Context, r *run) error {
	entries, err := r.gw.ListInventoryStock(ctx, r.conn.InventoryID)
	if err != nil {
		return err
	}
	if err := r.checkpoint(ctx); err != nil {
		return err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	byExt, err := s.productsByExternalID(ctx, ids)
	if err != nil {
		return err
	}

	for _, e := range entries {
		p, ok := byExt[e.ProductID]
		if !ok {
			r.log.RecordSkipped(e.ProductID, SkipUnknownProduct, "No local product with this ERP id")
		} else if variantID, ok := variantFor(p, e.VariantID); !ok {
			r.log.RecordSkipped(e.ProductID+"/"+e.VariantID, SkipUnknownVariant, "No local variant with this ERP id")
		} else {
			qty := e.Quantity
			if qty < 0 {
				qty = 0
			}
			changed, err := s.stock.SetQuantity(ctx, p.ID, variantID, qty)
			if err != nil {
				return err
			}
			r.log.RecordItem(changed)
		}
		if err := r.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// orderStatusPhase follows the ERP journal from the cursor of the last successful run.
// Without a cursor only changes inside StatusWindow are taken. The current ERP state of
// every changed order we track is fetched by id and applied.
func (s *InboundSync) orderStatusPhase(ctx context.Context, r *run) error {
	cursor, err := s.logs.LastCursor(ctx, integration.SyncTypeOrderStatus)
	if err != nil {
		return err
	}
	changes, err := r.gw.OrderStatusChanges(ctx, cursor)
	if err != nil {
		return err
	}

	since := s.now().Add(-s.cfg.StatusWindow)
	next := cursor
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		next = max(next, c.LogID)
		if cursor == 0 && c.At.Before(since) {
			continue
		}
		ids = append(ids, c.OrderID)
	}
	ids = uniq(ids)
	if err := r.checkpoint(ctx); err != nil {
		return err
	}

	local := make(map[string]*order.Order, len(ids))
	for _, chunk := range chunks(ids, s.cfg.LookupChunk) {
		found, err := s.orders.FindByExternalIDs(ctx, chunk)
		if err != nil {
			return err
		}
		for _, o := range found {
			local[*o.ExternalOrderID] = o
		}
	}
	// orders created directly in the ERP are not ours to track
	tracked := make([]string, 0, len(local))
	for _, id := range ids {
		if _, ok := local[id]; ok {
			tracked = append(tracked, id)
		}
	}

	for _, chunk := range chunks(tracked, s.cfg.CheckpointEvery) {
		states, err := r.gw.GetOrdersByID(ctx, chunk)
		if err != nil {
			return err
		}
		byID := make(map[string]integration.ErpOrderState, len(states))
		for _, st := range states {
			byID[st.OrderID] = st
		}
		for _, id := range chunk {
			st, ok := byID[id]
			if !ok {
				r.log.RecordSkipped(id, SkipErpOrderMissing, "order not returned by the ERP")
			} else if err := s.applyOrderState(ctx, r, local[id], st); err != nil {
				return err
			}
			if err := r.tick(ctx); err != nil {
				return err
			}
		}
	}

	r.log.Cursor = next
	return nil
}

// applyOrderState maps one ERP state onto the local order and records the outcome
func (s *InboundSync) applyOrderState(ctx context.Context, r *run, o *order.Order, st integration.ErpOrderState) error {
	target, err := s.statuses.Resolve(st.StatusID)
	switch {
	case err != nil:
		r.log.RecordSkipped(st.OrderID, SkipUnmappedStatus, err.Error())
	case target == o.Status:
		r.log.RecordItem(false)
	default:
		if err := s.applyErpStatus(ctx, o.ID, target, st.ChangedAt); err != nil {
			switch {
			case errors.Is(err, shared.ErrInvalidState):
				r.log.RecordSkipped(st.OrderID, SkipIllegalTransition, err.Error())
			case errors.Is(err, shared.ErrConcurrencyConflict):
				r.log.RecordSkipped(st.OrderID, SkipConflict, err.Error())
			default:
				return err
			}
			return nil
		}
		r.log.RecordItem(true)
		r.logger.Debug("Order status updated from ERP",
			logger.OrderID(o.ID.String()),
			zap.String("from", o.Status.String()),
			zap.String("to", target.String()),
		)
	}
	return nil
}

// applyErpStatus moves one order and its stock in a single short transaction
func (s *InboundSync) applyErpStatus(ctx context.Context, orderID uuid.UUID, target order.OrderStatus, changedAt time.Time) error {
	if changedAt.IsZero() {
		changedAt = s.now()
	}
	return s.txScope.Execute(ctx, func(repos inventoryapp.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		effect, changed, err := o.ApplyErpStatus(target, changedAt)
		if err != nil || !changed {
			return err
		}
		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}
		if adj := o.Adjustments(effect); len(adj) > 0 {
			return repos.InventoryRepo().Apply(ctx, adj...)
		}
		return nil
	})
}

func (s *InboundSync) categoryPhase(ctx context.Context, r *run) error {
	remote, err := r.gw.ListCategories(ctx, r.conn.InventoryID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(remote))
	for _, c := range remote {
		ids = append(ids, c.CategoryID)
	}
	existing, err := s.categoriesByExternalID(ctx, ids)
	if err != nil {
		return err
	}

	mode := r.log.Mode
	for _, rc := range remote {
		c, found := existing[rc.CategoryID]
		switch {
		case found && !mode.AllowsUpdate(), !found && !mode.AllowsCreate():
			r.log.RecordItem(false)
		case found:
			changed := c.Rename(rc.Name, rc.ParentID, s.now())
			if changed {
				if err := s.categories.Save(ctx, c); err != nil {
					return err
				}
			}
			r.log.RecordItem(changed)
		default:
			c, err := catalog.NewCategory(rc.CategoryID, rc.Name, rc.ParentID)
			if err != nil {
				r.log.RecordSkipped(rc.CategoryID, SkipInvalidItem, err.Error())
				break
			}
			if err := s.categories.Save(ctx, c); err != nil {
				return err
			}
			r.log.RecordItem(true)
		}
		if err := r.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *InboundSync) productPhase(ctx context.Context, r *run) error {
	remote, err := r.gw.ListProducts(ctx, r.conn.InventoryID)
	if err != nil {
		return err
	}
	if err := r.checkpoint(ctx); err != nil {
		return err
	}

	productIDs := make([]string, 0, len(remote))
	categoryIDs := make([]string, 0, len(remote))
	for _, p := range remote {
		productIDs = append(productIDs, p.ProductID)
		if p.CategoryID != "" {
			categoryIDs = append(categoryIDs, p.CategoryID)
		}
	}
	existing, err := s.productsByExternalID(ctx, productIDs)
	if err != nil {
		return err
	}
	cats, err := s.categoriesByExternalID(ctx, categoryIDs)
	if err != nil {
		return err
	}

	mode := r.log.Mode
	for _, rp := range remote {
		var categoryID *uuid.UUID
		if c, ok := cats[rp.CategoryID]; ok {
			categoryID = &c.ID
		}

		p, found := existing[rp.ProductID]
		switch {
		case found && !mode.AllowsUpdate(), !found && !mode.AllowsCreate():
			r.log.RecordItem(false)
		case found:
			changed := p.ApplyErp(rp, categoryID, s.now())
			if changed {
				if err := s.products.Save(ctx, p); err != nil {
					return err
				}
			}
			r.log.RecordItem(changed)
		default:
			p, err := catalog.NewProduct(rp.ProductID, rp.SKU, rp.Name, rp.Price)
			if err != nil {
				r.log.RecordSkipped(rp.ProductID, SkipInvalidItem, err.Error())
				break
			}
			p.ApplyErp(rp, categoryID, s.now())
			if err := s.products.Save(ctx, p); err != nil {
				return err
			}
			r.log.RecordItem(true)
		}
		if err := r.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *InboundSync) imagePhase(ctx context.Context, r *run) error {
	if s.images == nil || s.fetcher == nil {
		return integration.NewConfigurationError("storage", "image storage is not configured")
	}
	products, err := s.products.FindNeedingImageMirror(ctx, s.cfg.ImageBatch)
	if err != nil {
		return err
	}

	for _, p := range products {
		keys, err := s.mirrorImages(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.RecordSkipped(p.ExternalID, SkipImageFailed, err.Error())
		} else {
			p.SetImageKeys(keys, s.now())
			if err := s.products.Save(ctx, p); err != nil {
				return err
			}
			r.log.RecordItem(true)
		}
		if err := r.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// mirrorImages copies every image of a product, skipping objects already stored
func (s *InboundSync) mirrorImages(ctx context.Context, p *catalog.Product) ([]string, error) {
	keys := make([]string, 0, len(p.ImageURLs))
	for i, url := range p.ImageURLs {
		key := s.images.Key(p.ID.String(), i, url)
		exists, err := s.images.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if !exists {
			data, contentType, err := s.fetcher.Fetch(ctx, url)
			if err != nil {
				return nil, err
			}
			if err := s.images.Put(ctx, key, data, contentType); err != nil {
				return nil, err
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (s *InboundSync) productsByExternalID(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	out := make(map[string]*catalog.Product, len(ids))
	for _, chunk := range chunks(uniq(ids), s.cfg.LookupChunk) {
		found, err := s.products.FindByExternalIDs(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			out[p.ExternalID] = p
		}
	}
	return out, nil
}

func (s *InboundSync) categoriesByExternalID(ctx context.Context, ids []string) (map[string]*catalog.Category, error) {
	out := make(map[string]*catalog.Category, len(ids))
	for _, chunk := range chunks(uniq(ids), s.cfg.LookupChunk) {
		found, err := s.categories.FindByExternalIDs(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			out[c.ExternalID] = c
		}
	}
	return out, nil
}

// variantFor maps an ERP variant id to the local variant; "" and "0" mean the product itself
func variantFor(p *catalog.Product, erpVariantID string) (uuid.UUID, bool) {
	if erpVariantID == "" || erpVariantID == "0" {
		return uuid.Nil, true
	}
	v := p.VariantByExternalID(erpVariantID)
	if v == nil {
		return uuid.Nil, false
	}
	return v.ID, true
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
