package integration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Encrypted Secret
// ---------------------------------------------------------------------------

// EncryptedSecret is an AES-GCM sealed value stored as three hex strings
type EncryptedSecret struct {
	// Ciphertext is the encrypted payload without the tag
	Ciphertext string
	// IV is the per-encryption nonce
	IV string
	// AuthTag is the GCM authentication tag
	AuthTag string
}

// IsZero returns true if no secret has been stored
func (s EncryptedSecret) IsZero() bool {
	return s.Ciphertext == "" && s.IV == "" && s.AuthTag == ""
}

// SecretCipher seals and opens ERP credentials.
// Implementations must fail closed on any integrity mismatch.
type SecretCipher interface {
	Encrypt(plaintext string) (EncryptedSecret, error)
	Decrypt(secret EncryptedSecret) (string, error)
}

// ---------------------------------------------------------------------------
// ERP Configuration
// ---------------------------------------------------------------------------

// DefaultSyncIntervalMinutes is used when a configuration does not set its own interval
const DefaultSyncIntervalMinutes = 15

// ErpConfiguration is one stored ERP connection
type ErpConfiguration struct {
	// ID is the unique identifier
	ID uuid.UUID
	// Name is a human label shown in the admin console
	Name string
	// Token is the encrypted API token
	Token EncryptedSecret
	// InventoryID is the default ERP inventory (warehouse) for this connection
	InventoryID string
	// SyncEnabled marks the configuration as eligible to be the active one
	SyncEnabled bool
	// SyncIntervalMinutes controls the order status sync cadence
	SyncIntervalMinutes int
	// DisabledAt is set when the configuration is soft-disabled
	DisabledAt *time.Time
	// CreatedAt is when the configuration was created
	CreatedAt time.Time
	// UpdatedAt is when the configuration was last saved
	UpdatedAt time.Time
}

// NewErpConfiguration creates an enabled configuration with a sealed token
func NewErpConfiguration(name string, token EncryptedSecret, inventoryID string, intervalMinutes int) (*ErpConfiguration, error) {
	now := time.Now()
	cfg := &ErpConfiguration{
		ID:                  uuid.New(),
		Name:                strings.TrimSpace(name),
		Token:               token,
		InventoryID:         strings.TrimSpace(inventoryID),
		SyncEnabled:         true,
		SyncIntervalMinutes: intervalMinutes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if cfg.SyncIntervalMinutes <= 0 {
		cfg.SyncIntervalMinutes = DefaultSyncIntervalMinutes
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable for a sync run
func (c *ErpConfiguration) Validate() error {
	if c.Token.IsZero() {
		return NewConfigurationError("token", "api token is required")
	}
	if c.InventoryID == "" {
		return NewConfigurationError("inventory_id", "inventory id is required")
	}
	if c.SyncIntervalMinutes < 0 {
		return NewConfigurationError("sync_interval_minutes", "must not be negative")
	}
	return nil
}

// Update re-saves token, inventory and interval.
// A zero token keeps the stored one so the admin form can omit it.
func (c *ErpConfiguration) Update(name string, token EncryptedSecret, inventoryID string, intervalMinutes int) error {
	if strings.TrimSpace(name) != "" {
		c.Name = strings.TrimSpace(name)
	}
	if !token.IsZero() {
		c.Token = token
	}
	if strings.TrimSpace(inventoryID) != "" {
		c.InventoryID = strings.TrimSpace(inventoryID)
	}
	if intervalMinutes > 0 {
		c.SyncIntervalMinutes = intervalMinutes
	}
	c.UpdatedAt = time.Now()
	return c.Validate()
}

// Enable turns sync back on
func (c *ErpConfiguration) Enable() {
	c.SyncEnabled = true
	c.DisabledAt = nil
	c.UpdatedAt = time.Now()
}

// Disable soft-disables the configuration. Rows are never deleted while enabled.
func (c *ErpConfiguration) Disable() {
	now := time.Now()
	c.SyncEnabled = false
	c.DisabledAt = &now
	c.UpdatedAt = now
}

// ErpConfigurationRepository persists ERP configurations
type ErpConfigurationRepository interface {
	// FindActive returns the first enabled configuration ordered by creation time then id.
	// Returns a ConfigurationError when none is enabled.
	FindActive(ctx context.Context) (*ErpConfiguration, error)
	// FindByID returns a configuration by id
	FindByID(ctx context.Context, id uuid.UUID) (*ErpConfiguration, error)
	// FindAll returns all configurations, oldest first
	FindAll(ctx context.Context) ([]*ErpConfiguration, error)
	// Save creates or updates a configuration
	Save(ctx context.Context, cfg *ErpConfiguration) error
}

// ActiveConnection is the transient, decrypted view of the active configuration.
// It must not outlive the operation that resolved it.
type ActiveConnection struct {
	ConfigurationID uuid.UUID
	Token           string
	InventoryID     string
}
