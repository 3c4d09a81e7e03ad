package handler

import (
	"context"

	settingapp "github.com/dronehub/backend/internal/application/setting"
	"github.com/gin-gonic/gin"
)

// SettingAdmin reads and writes runtime settings
type SettingAdmin interface {
	List(ctx context.Context) ([]settingapp.SettingView, error)
	Set(ctx context.Context, key, value, actor string) (*settingapp.SettingView, error)
	Delete(ctx context.Context, key, actor string) error
}

// SettingHandler manages carrier credentials, notification providers and other runtime settings
type SettingHandler struct {
	BaseHandler
	settings SettingAdmin
}

// NewSettingHandler creates a new setting handler
func NewSettingHandler(settings SettingAdmin) *SettingHandler {
	return &SettingHandler{settings: settings}
}

// SetSettingRequest holds the new value
type SetSettingRequest struct {
	Value string `json:"value" binding:"max=10000"`
}

// List godoc
// @ID           adminListSettings
// @Summary      List settings
// @Description  Secret values are masked
// @Tags         admin-settings
// @Produce      json
// @Success      200 {object} APIResponse[[]settingapp.SettingView]
// @Security     BearerAuth
// @Router       /admin/settings [get]
func (h *SettingHandler) List(c *gin.Context) {
	views, err := h.settings.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Set godoc
// @ID           adminSetSetting
// @Summary      Create or replace a setting
// @Tags         admin-settings
// @Accept       json
// @Produce      json
// @Param        key path string true "Setting key, e.g. inpost.api_token"
// @Param        request body SetSettingRequest true "Value"
// @Success      200 {object} APIResponse[settingapp.SettingView]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/settings/{key} [put]
func (h *SettingHandler) Set(c *gin.Context) {
	var req SetSettingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	view, err := h.settings.Set(c.Request.Context(), c.Param("key"), req.Value, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Delete godoc
// @ID           adminDeleteSetting
// @Summary      Delete a setting
// @Tags         admin-settings
// @Param        key path string true "Setting key"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/settings/{key} [delete]
func (h *SettingHandler) Delete(c *gin.Context) {
	if err := h.settings.Delete(c.Request.Context(), c.Param("key"), actor(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
