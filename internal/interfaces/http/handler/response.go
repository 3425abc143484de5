package handler

import (
	"time"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncLogResponse is a sync run as shown to operators
type SyncLogResponse struct {
	ID             uuid.UUID                 `json:"id"`
	Type           string                    `json:"type"`
	Mode           string                    `json:"mode,omitempty"`
	Status         string                    `json:"status"`
	TriggeredBy    string                    `json:"triggered_by"`
	ItemsProcessed int                       `json:"items_processed"`
	ItemsChanged   int                       `json:"items_changed"`
	ItemsSkipped   int                       `json:"items_skipped"`
	ErrorMessage   string                    `json:"error_message,omitempty"`
	Details        []integration.SyncFailure `json:"details,omitempty"`
	StartedAt      time.Time                 `json:"started_at"`
	FinishedAt     *time.Time                `json:"finished_at,omitempty"`
	DurationMs     int64                     `json:"duration_ms"`
}

func toSyncLogResponse(l *integration.SyncLog) SyncLogResponse {
	return SyncLogResponse{
		ID:             l.ID,
		Type:           string(l.Type),
		Mode:           string(l.Mode),
		Status:         string(l.Status),
		TriggeredBy:    string(l.TriggeredBy),
		ItemsProcessed: l.ItemsProcessed,
		ItemsChanged:   l.ItemsChanged,
		ItemsSkipped:   l.ItemsSkipped,
		ErrorMessage:   l.ErrorMessage,
		Details:        l.Details,
		StartedAt:      l.StartedAt,
		FinishedAt:     l.FinishedAt,
		DurationMs:     l.Duration().Milliseconds(),
	}
}

// SyncJobResponse is a queued job as shown to operators
type SyncJobResponse struct {
	ID            uuid.UUID                  `json:"id"`
	Type          string                     `json:"type"`
	OrderID       *uuid.UUID                 `json:"order_id,omitempty"`
	Payload       integration.SyncJobPayload `json:"payload"`
	Status        string                     `json:"status"`
	Attempts      int                        `json:"attempts"`
	MaxAttempts   int                        `json:"max_attempts"`
	LastError     string                     `json:"last_error,omitempty"`
	NextAttemptAt time.Time                  `json:"next_attempt_at"`
	ProcessedAt   *time.Time                 `json:"processed_at,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

func toSyncJobResponse(j *integration.SyncJob) SyncJobResponse {
	return SyncJobResponse{
		ID:            j.ID,
		Type:          string(j.Type),
		OrderID:       j.OrderID,
		Payload:       j.Payload,
		Status:        string(j.Status),
		Attempts:      j.Attempts,
		MaxAttempts:   j.MaxAttempts,
		LastError:     j.LastError,
		NextAttemptAt: j.NextAttemptAt,
		ProcessedAt:   j.ProcessedAt,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// JobAcceptedResponse is returned when work was queued
type JobAcceptedResponse struct {
	JobID   *uuid.UUID `json:"job_id,omitempty"`
	Queued  bool       `json:"queued"`
	Message string     `json:"message,omitempty"`
}

func accepted(job *integration.SyncJob) JobAcceptedResponse {
	if job == nil {
		return JobAcceptedResponse{Queued: false, Message: "An open job already covers this request"}
	}
	id := job.ID
	return JobAcceptedResponse{JobID: &id, Queued: true}
}

// SyncOrderResponse reports an inline order push
type SyncOrderResponse struct {
	Success         bool   `json:"success"`
	ExternalOrderID string `json:"external_order_id,omitempty"`
	Created         bool   `json:"created"`
	ErrorCode       string `json:"error_code,omitempty"`
	Error           string `json:"error,omitempty"`
}

func toSyncOrderResponse(r integrationapp.SyncOrderResult) SyncOrderResponse {
	return SyncOrderResponse{
		Success:         r.Success,
		ExternalOrderID: r.ExternalOrderID,
		Created:         r.Created,
		ErrorCode:       integration.ErrorCode(r.Error),
		Error:           r.ErrorMessage(),
	}
}
