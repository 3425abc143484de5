package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh ID and stamps both timestamps with the current time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot is an entity written under optimistic locking.
// Version starts at 1 and the repository bumps it after each successful update.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// NewBaseAggregateRoot creates an aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion records a persisted write
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}
