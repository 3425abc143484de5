package models

import (
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/google/uuid"
)

// ErpConfigurationModel is the persistence model for a stored ERP connection.
// The token is kept as three hex columns and is never stored in clear text.
type ErpConfigurationModel struct {
	BaseModel
	Name                string `gorm:"type:varchar(100)"`
	TokenCiphertext     string `gorm:"type:text;not null"`
	TokenIV             string `gorm:"column:token_iv;type:varchar(64);not null"`
	TokenAuthTag        string `gorm:"type:varchar(64);not null"`
	InventoryID         string `gorm:"type:varchar(50);not null"`
	SyncEnabled         bool   `gorm:"not null;index"`
	SyncIntervalMinutes int    `gorm:"not null"`
	DisabledAt          *time.Time
}

// TableName returns the table name for GORM
func (ErpConfigurationModel) TableName() string {
	return "erp_configurations"
}

// ToDomain converts the persistence model to a domain ErpConfiguration.
func (m *ErpConfigurationModel) ToDomain() *integration.ErpConfiguration {
	return &integration.ErpConfiguration{
		ID:   m.ID,
		Name: m.Name,
		Token: integration.EncryptedSecret{
			Ciphertext: m.TokenCiphertext,
			IV:         m.TokenIV,
			AuthTag:    m.TokenAuthTag,
		},
		InventoryID:         m.InventoryID,
		SyncEnabled:         m.SyncEnabled,
		SyncIntervalMinutes: m.SyncIntervalMinutes,
		DisabledAt:          m.DisabledAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ErpConfiguration.
func (m *ErpConfigurationModel) FromDomain(c *integration.ErpConfiguration) {
	m.ID = c.ID
	m.Name = c.Name
	m.TokenCiphertext = c.Token.Ciphertext
	m.TokenIV = c.Token.IV
	m.TokenAuthTag = c.Token.AuthTag
	m.InventoryID = c.InventoryID
	m.SyncEnabled = c.SyncEnabled
	m.SyncIntervalMinutes = c.SyncIntervalMinutes
	m.DisabledAt = c.DisabledAt
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// SyncLogModel is the persistence model for one sync run.
type SyncLogModel struct {
	ID             uuid.UUID                 `gorm:"type:uuid;primary_key"`
	Type           integration.SyncType      `gorm:"type:varchar(30);not null;index:idx_sync_logs_type_status,priority:1"`
	Mode           integration.SyncMode      `gorm:"type:varchar(20)"`
	Status         integration.SyncLogStatus `gorm:"type:varchar(20);not null;index:idx_sync_logs_type_status,priority:2"`
	TriggeredBy    integration.SyncTrigger   `gorm:"type:varchar(20);not null"`
	ItemsProcessed int                       `gorm:"not null;default:0"`
	ItemsChanged   int                       `gorm:"not null;default:0"`
	ItemsSkipped   int                       `gorm:"not null;default:0"`
	ErrorMessage   string                    `gorm:"type:text"`
	Details        []integration.SyncFailure `gorm:"serializer:json;type:text"`
	Cursor         int64                     `gorm:"column:journal_cursor;not null;default:0"`
	StartedAt      time.Time                 `gorm:"not null;index"`
	FinishedAt     *time.Time
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog.
func (m *SyncLogModel) ToDomain() *integration.SyncLog {
	return &integration.SyncLog{
		ID:             m.ID,
		Type:           m.Type,
		Mode:           m.Mode,
		Status:         m.Status,
		TriggeredBy:    m.TriggeredBy,
		ItemsProcessed: m.ItemsProcessed,
		ItemsChanged:   m.ItemsChanged,
		ItemsSkipped:   m.ItemsSkipped,
		ErrorMessage:   m.ErrorMessage,
		Details:        m.Details,
		Cursor:         m.Cursor,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncLog.
func (m *SyncLogModel) FromDomain(l *integration.SyncLog) {
	m.ID = l.ID
	m.Type = l.Type
	m.Mode = l.Mode
	m.Status = l.Status
	m.TriggeredBy = l.TriggeredBy
	m.ItemsProcessed = l.ItemsProcessed
	m.ItemsChanged = l.ItemsChanged
	m.ItemsSkipped = l.ItemsSkipped
	m.ErrorMessage = l.ErrorMessage
	m.Details = l.Details
	m.Cursor = l.Cursor
	m.StartedAt = l.StartedAt
	m.FinishedAt = l.FinishedAt
}

// SyncJobModel is the persistence model for a queued sync job.
type SyncJobModel struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primary_key"`
	Type          integration.SyncJobType    `gorm:"type:varchar(30);not null;index:idx_sync_jobs_order,priority:2"`
	OrderID       *uuid.UUID                 `gorm:"type:uuid;index:idx_sync_jobs_order,priority:1"`
	Payload       integration.SyncJobPayload `gorm:"serializer:json;type:text"`
	Status        integration.SyncJobStatus  `gorm:"type:varchar(20);not null;index:idx_sync_jobs_due,priority:1"`
	Attempts      int                        `gorm:"not null;default:0"`
	MaxAttempts   int                        `gorm:"not null;default:8"`
	LastError     string                     `gorm:"type:text"`
	NextAttemptAt time.Time                  `gorm:"not null;index:idx_sync_jobs_due,priority:2"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob.
func (m *SyncJobModel) ToDomain() *integration.SyncJob {
	return &integration.SyncJob{
		ID:            m.ID,
		Type:          m.Type,
		OrderID:       m.OrderID,
		Payload:       m.Payload,
		Status:        m.Status,
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		ProcessedAt:   m.ProcessedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncJob.
func (m *SyncJobModel) FromDomain(j *integration.SyncJob) {
	m.ID = j.ID
	m.Type = j.Type
	m.OrderID = j.OrderID
	m.Payload = j.Payload
	m.Status = j.Status
	m.Attempts = j.Attempts
	m.MaxAttempts = j.MaxAttempts
	m.LastError = j.LastError
	m.NextAttemptAt = j.NextAttemptAt
	m.ProcessedAt = j.ProcessedAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// SyncJobModelFromDomain creates a new persistence model from a domain SyncJob.
func SyncJobModelFromDomain(j *integration.SyncJob) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}
