package integration

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaveConfigurationInput is the admin form for the ERP connection
type SaveConfigurationInput struct {
	Name string `validate:"max=100"`
	// Token is the plaintext API token; empty keeps the stored one
	Token               string `validate:"omitempty,min=16,max=512"`
	InventoryID         string `validate:"omitempty,numeric,max=32"`
	SyncIntervalMinutes int    `validate:"gte=0,lte=1440"`
	// SyncEnabled toggles the configuration; nil leaves it unchanged
	SyncEnabled *bool
}

// ConfigurationView is the configuration as shown to admins
type ConfigurationView struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	MaskedToken         string     `json:"masked_token"`
	InventoryID         string     `json:"inventory_id"`
	SyncEnabled         bool       `json:"sync_enabled"`
	SyncIntervalMinutes int        `json:"sync_interval_minutes"`
	DisabledAt          *time.Time `json:"disabled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ConfigurationService manages the stored ERP connection
type ConfigurationService struct {
	configs  integration.ErpConfigurationRepository
	vault    CredentialVault
	validate *validator.Validate
	logger   *zap.Logger
}

// NewConfigurationService creates a ConfigurationService
func NewConfigurationService(configs integration.ErpConfigurationRepository, vault CredentialVault, logger *zap.Logger) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{
		configs:  configs,
		vault:    vault,
		validate: validator.New(),
		logger:   logger,
	}
}

// Get returns the active configuration with a masked token
func (s *ConfigurationService) Get(ctx context.Context) (*ConfigurationView, error) {
	cfg, err := s.configs.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(cfg)
}

// List returns every stored configuration, oldest first
func (s *ConfigurationService) List(ctx context.Context) ([]ConfigurationView, error) {
	all, err := s.configs.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ConfigurationView, 0, len(all))
	for _, cfg := range all {
		v, err := s.view(cfg)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// Save updates the active configuration, or creates the first one
func (s *ConfigurationService) Save(ctx context.Context, in SaveConfigurationInput) (*ConfigurationView, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, integration.NewConfigurationError("input", err.Error())
	}

	var sealed integration.EncryptedSecret
	if in.Token != "" {
		var err error
		if sealed, err = s.vault.Encrypt(in.Token); err != nil {
			return nil, err
		}
	}

	cfg, err := s.current(ctx)
	switch {
	case err == nil:
		if err := cfg.Update(in.Name, sealed, in.InventoryID, in.SyncIntervalMinutes); err != nil {
			return nil, err
		}
	case errors.Is(err, integration.ErrConfiguration):
		if cfg, err = integration.NewErpConfiguration(in.Name, sealed, in.InventoryID, in.SyncIntervalMinutes); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if in.SyncEnabled != nil {
		if *in.SyncEnabled {
			cfg.Enable()
		} else {
			cfg.Disable()
		}
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("ERP configuration saved",
		zap.String("configuration_id", cfg.ID.String()),
		zap.String("inventory_id", cfg.InventoryID),
		zap.Bool("sync_enabled", cfg.SyncEnabled),
		zap.Bool("token_rotated", in.Token != ""),
	)
	return s.view(cfg)
}

// current returns the active configuration, or the oldest disabled one
// so that re-enabling does not create a second configuration
func (s *ConfigurationService) current(ctx context.Context) (*integration.ErpConfiguration, error) {
	cfg, err := s.configs.FindActive(ctx)
	if err == nil || !errors.Is(err, integration.ErrConfiguration) {
		return cfg, err
	}
	all, ferr := s.configs.FindAll(ctx)
	if ferr != nil {
		return nil, ferr
	}
	if len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (s *ConfigurationService) view(cfg *integration.ErpConfiguration) (*ConfigurationView, error) {
	masked := ""
	if !cfg.Token.IsZero() {
		token, err := s.vault.Decrypt(cfg.Token)
		if err != nil {
			// a rotated master key leaves old tokens unreadable; show that instead of failing the page
			masked = "<undecryptable>"
		} else {
			masked = s.vault.Mask(token)
		}
	}
	return &ConfigurationView{
		ID:                  cfg.ID,
		Name:                cfg.Name,
		MaskedToken:         masked,
		InventoryID:         cfg.InventoryID,
		SyncEnabled:         cfg.SyncEnabled,
		SyncIntervalMinutes: cfg.SyncIntervalMinutes,
		DisabledAt:          cfg.DisabledAt,
		CreatedAt:           cfg.CreatedAt,
		UpdatedAt:           cfg.UpdatedAt,
	}, nil
}
