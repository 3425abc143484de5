package integration

import (
	"context"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Type / Mode / Status
// ---------------------------------------------------------------------------

// SyncType identifies what a sync run moves
type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeProducts    SyncType = "products"
	SyncTypeCategories  SyncType = "categories"
	SyncTypeStock       SyncType = "stock"
	SyncTypeImages      SyncType = "images"
	SyncTypeOrderStatus SyncType = "order_status"
	SyncTypeOrders      SyncType = "orders"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeFull, SyncTypeProducts, SyncTypeCategories, SyncTypeStock,
		SyncTypeImages, SyncTypeOrderStatus, SyncTypeOrders:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncType
func (t SyncType) String() string {
	return string(t)
}

// SyncMode restricts a catalog sync to creating or updating records
type SyncMode string

const (
	SyncModeAll        SyncMode = ""
	SyncModeNewOnly    SyncMode = "new_only"
	SyncModeUpdateOnly SyncMode = "update_only"
)

// IsValid returns true if the mode is valid
func (m SyncMode) IsValid() bool {
	switch m {
	case SyncModeAll, SyncModeNewOnly, SyncModeUpdateOnly:
		return true
	default:
		return false
	}
}

// AllowsCreate returns true if missing records may be created
func (m SyncMode) AllowsCreate() bool {
	return m != SyncModeUpdateOnly
}

// AllowsUpdate returns true if existing records may be changed
func (m SyncMode) AllowsUpdate() bool {
	return m != SyncModeNewOnly
}

// SyncLogStatus is the lifecycle state of a sync run
type SyncLogStatus string

const (
	SyncLogStatusRunning   SyncLogStatus = "running"
	SyncLogStatusSuccess   SyncLogStatus = "success"
	SyncLogStatusFailed    SyncLogStatus = "failed"
	SyncLogStatusCancelled SyncLogStatus = "cancelled"
)

// IsValid returns true if the status is valid
func (s SyncLogStatus) IsValid() bool {
	switch s {
	case SyncLogStatusRunning, SyncLogStatusSuccess, SyncLogStatusFailed, SyncLogStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the run can no longer change
func (s SyncLogStatus) IsTerminal() bool {
	return s != SyncLogStatusRunning
}

// SyncTrigger records who started a run
type SyncTrigger string

const (
	SyncTriggerSchedule SyncTrigger = "schedule"
	SyncTriggerOperator SyncTrigger = "operator"
	SyncTriggerSystem   SyncTrigger = "system"
)

// ---------------------------------------------------------------------------
// Sync Log
// ---------------------------------------------------------------------------

// maxLoggedFailures bounds the per-item details kept on one log row
const maxLoggedFailures = 200

// SyncFailure describes one item that was skipped or failed during a run
type SyncFailure struct {
	// ItemID is the identifier of the failed item
	ItemID string `json:"item_id"`
	// ErrorCode is a stable classification of the failure
	ErrorCode string `json:"error_code"`
	// ErrorMessage is the error description
	ErrorMessage string `json:"error_message"`
}

// SyncLog is the record of one sync run
type SyncLog struct {
	ID             uuid.UUID
	Type           SyncType
	Mode           SyncMode
	Status         SyncLogStatus
	TriggeredBy    SyncTrigger
	ItemsProcessed int
	ItemsChanged   int
	ItemsSkipped   int
	ErrorMessage   string
	Details        []SyncFailure
	// Cursor is the ERP journal position the run reached; only order status runs set it
	Cursor     int64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewSyncLog creates a running log for a new run
func NewSyncLog(syncType SyncType, mode SyncMode, trigger SyncTrigger) (*SyncLog, error) {
	if !syncType.IsValid() {
		return nil, ErrInvalidSyncType
	}
	if !mode.IsValid() {
		return nil, ErrInvalidSyncMode
	}
	if trigger == "" {
		trigger = SyncTriggerSystem
	}
	return &SyncLog{
		ID:          uuid.New(),
		Type:        syncType,
		Mode:        mode,
		Status:      SyncLogStatusRunning,
		TriggeredBy: trigger,
		StartedAt:   time.Now(),
	}, nil
}

// RecordItem counts one processed item
func (l *SyncLog) RecordItem(changed bool) {
	l.ItemsProcessed++
	if changed {
		l.ItemsChanged++
	}
}

// RecordSkipped counts a processed item that was skipped with a reason
func (l *SyncLog) RecordSkipped(itemID, code, message string) {
	l.ItemsProcessed++
	l.ItemsSkipped++
	if len(l.Details) < maxLoggedFailures {
		l.Details = append(l.Details, SyncFailure{ItemID: itemID, ErrorCode: code, ErrorMessage: message})
	}
}

// Complete finalizes a successful run
func (l *SyncLog) Complete() error {
	if l.Status.IsTerminal() {
		return ErrSyncLogNotRunning
	}
	now := time.Now()
	l.Status = SyncLogStatusSuccess
	l.FinishedAt = &now
	return nil
}

// Fail finalizes a failed run
func (l *SyncLog) Fail(err error) error {
	if l.Status.IsTerminal() {
		return ErrSyncLogNotRunning
	}
	now := time.Now()
	l.Status = SyncLogStatusFailed
	if err != nil {
		l.ErrorMessage = err.Error()
	}
	l.FinishedAt = &now
	return nil
}

// Cancel marks a running log as cancelled by an operator
func (l *SyncLog) Cancel(reason string) error {
	if l.Status.IsTerminal() {
		return ErrSyncLogNotRunning
	}
	now := time.Now()
	l.Status = SyncLogStatusCancelled
	l.ErrorMessage = reason
	l.FinishedAt = &now
	return nil
}

// Duration returns the elapsed run time, up to now for running logs
func (l *SyncLog) Duration() time.Duration {
	if l.FinishedAt != nil {
		return l.FinishedAt.Sub(l.StartedAt)
	}
	return time.Since(l.StartedAt)
}

// IsStuck returns true if the run has been running longer than threshold
func (l *SyncLog) IsStuck(threshold time.Duration, now time.Time) bool {
	return l.Status == SyncLogStatusRunning && now.Sub(l.StartedAt) > threshold
}

// SyncLogFilter narrows a log listing
type SyncLogFilter struct {
	shared.Filter
	Type   SyncType
	Status SyncLogStatus
}

// SyncLogRepository persists sync logs
type SyncLogRepository interface {
	// StartRun inserts a running log unless a running log of the same type exists,
	// in which case it returns ErrSyncAlreadyRunning
	StartRun(ctx context.Context, log *SyncLog) error
	// SaveProgress writes counters of a running log; it does not touch the status
	SaveProgress(ctx context.Context, log *SyncLog) error
	// Finish writes the terminal state only if the stored row is still running.
	// Returns false if the row had already been finalized (for example, cancelled).
	Finish(ctx context.Context, log *SyncLog) (bool, error)
	// FindByID returns a single log
	FindByID(ctx context.Context, id uuid.UUID) (*SyncLog, error)
	// List returns logs newest first
	List(ctx context.Context, filter SyncLogFilter) ([]*SyncLog, int64, error)
	// FindRunning returns all running logs, oldest first
	FindRunning(ctx context.Context) ([]*SyncLog, error)
	// LastCursor returns the highest cursor of a successful run of the type, or 0
	LastCursor(ctx context.Context, syncType SyncType) (int64, error)
}
