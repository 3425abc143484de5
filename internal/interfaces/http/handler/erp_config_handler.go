package handler

import (
	integrationapp "github.com/erp/ordersync/internal/application/integration"
	"github.com/gin-gonic/gin"
)

// ErpConfigHandler manages the ERP connection. Tokens are never returned unmasked.
type ErpConfigHandler struct {
	BaseHandler
	configs ErpConfigurations
}

// NewErpConfigHandler creates an ErpConfigHandler
func NewErpConfigHandler(configs ErpConfigurations) *ErpConfigHandler {
	return &ErpConfigHandler{configs: configs}
}

// SaveConfigurationRequest is the admin form
type SaveConfigurationRequest struct {
	Name                string `json:"name" binding:"max=100"`
	Token               string `json:"token" binding:"omitempty,min=16,max=512"`
	InventoryID         string `json:"inventory_id" binding:"omitempty,numeric,max=32"`
	SyncIntervalMinutes int    `json:"sync_interval_minutes" binding:"gte=0,lte=1440"`
	SyncEnabled         *bool  `json:"sync_enabled"`
}

// Get returns the active configuration
// GET /admin/erp/configuration
func (h *ErpConfigHandler) Get(c *gin.Context) {
	view, err := h.configs.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// List returns every stored configuration, including disabled ones
// GET /admin/erp/configurations
func (h *ErpConfigHandler) List(c *gin.Context) {
	views, err := h.configs.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Save updates the active configuration or creates the first one
// PUT /admin/erp/configuration
func (h *ErpConfigHandler) Save(c *gin.Context) {
	var req SaveConfigurationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	view, err := h.configs.Save(c.Request.Context(), integrationapp.SaveConfigurationInput{
		Name:                req.Name,
		Token:               req.Token,
		InventoryID:         req.InventoryID,
		SyncIntervalMinutes: req.SyncIntervalMinutes,
		SyncEnabled:         req.SyncEnabled,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
