package integration

import (
	"context"
	"testing"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("first save creates an encrypted configuration", func(t *testing.T) {
		repo := &memConfigs{}
		svc := NewConfigurationService(repo, plainCipher{}, nil)

		view, err := svc.Save(ctx, SaveConfigurationInput{Name: "Main", Token: testToken, InventoryID: "1234"})
		require.NoError(t, err)

		assert.Equal(t, "****1234", view.MaskedToken)
		assert.True(t, view.SyncEnabled)
		assert.NotEqual(t, testToken, repo.cfg.Token.Ciphertext, "plaintext is never stored")
	})

	t.Run("empty token keeps the stored one", func(t *testing.T) {
		repo := &memConfigs{}
		svc := NewConfigurationService(repo, plainCipher{}, nil)
		_, err := svc.Save(ctx, SaveConfigurationInput{Token: testToken, InventoryID: "1234"})
		require.NoError(t, err)
		sealed := repo.cfg.Token

		view, err := svc.Save(ctx, SaveConfigurationInput{InventoryID: "5678"})
		require.NoError(t, err)
		assert.Equal(t, sealed, repo.cfg.Token)
		assert.Equal(t, "5678", view.InventoryID)
	})

	t.Run("re-enabling updates the disabled configuration", func(t *testing.T) {
		repo := &memConfigs{}
		svc := NewConfigurationService(repo, plainCipher{}, nil)
		first, err := svc.Save(ctx, SaveConfigurationInput{Token: testToken, InventoryID: "1234"})
		require.NoError(t, err)

		off := false
		_, err = svc.Save(ctx, SaveConfigurationInput{SyncEnabled: &off})
		require.NoError(t, err)
		_, err = svc.Get(ctx)
		assert.ErrorIs(t, err, integration.ErrConfiguration)

		on := true
		view, err := svc.Save(ctx, SaveConfigurationInput{SyncEnabled: &on})
		require.NoError(t, err)
		assert.Equal(t, first.ID, view.ID)
		assert.True(t, view.SyncEnabled)
		assert.Nil(t, view.DisabledAt)
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name string
			in   SaveConfigurationInput
		}{
			{"missing token on first save", SaveConfigurationInput{InventoryID: "1234"}},
			{"missing inventory on first save", SaveConfigurationInput{Token: testToken}},
			{"short token", SaveConfigurationInput{Token: "short", InventoryID: "1234"}},
			{"non-numeric inventory", SaveConfigurationInput{Token: testToken, InventoryID: "abc"}},
			{"interval out of range", SaveConfigurationInput{Token: testToken, InventoryID: "1234", SyncIntervalMinutes: 5000}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := NewConfigurationService(&memConfigs{}, plainCipher{}, nil)
				_, err := svc.Save(ctx, tt.in)
				assert.ErrorIs(t, err, integration.ErrConfiguration)
			})
		}
	})
}

func TestConfigurationService_ViewOfUndecryptableToken(t *testing.T) {
	cfg, err := integration.NewErpConfiguration("Main", integration.EncryptedSecret{Ciphertext: "x", IV: "iv", AuthTag: "other"}, "1234", 0)
	require.NoError(t, err)
	svc := NewConfigurationService(&memConfigs{cfg: cfg}, plainCipher{}, nil)

	view, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<undecryptable>", view.MaskedToken)
}
