package integration

import (
	"context"

	"github.com/erp/ordersync/internal/domain/integration"
)

// ConnectionResolver turns the stored active configuration into a live gateway.
// Tokens are decrypted per call and never cached.
type ConnectionResolver struct {
	configs   integration.ErpConfigurationRepository
	cipher    integration.SecretCipher
	connector integration.ErpConnector
}

// NewConnectionResolver creates a ConnectionResolver
func NewConnectionResolver(
	configs integration.ErpConfigurationRepository,
	cipher integration.SecretCipher,
	connector integration.ErpConnector,
) *ConnectionResolver {
	return &ConnectionResolver{configs: configs, cipher: cipher, connector: connector}
}

// Resolve loads the active configuration and decrypts its token
func (r *ConnectionResolver) Resolve(ctx context.Context) (*integration.ActiveConnection, error) {
	cfg, err := r.configs.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	token, err := r.cipher.Decrypt(cfg.Token)
	if err != nil {
		return nil, integration.NewConfigurationError("token", "stored api token cannot be decrypted with the current master key")
	}
	return &integration.ActiveConnection{
		ConfigurationID: cfg.ID,
		Token:           token,
		InventoryID:     cfg.InventoryID,
	}, nil
}

// Open resolves the active connection and binds a gateway to it
func (r *ConnectionResolver) Open(ctx context.Context) (integration.ErpGateway, *integration.ActiveConnection, error) {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	return r.connector.Connect(conn.Token), conn, nil
}
