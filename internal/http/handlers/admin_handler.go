package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/http/middleware"
	"github.com/tbourn/go-listing-credits/internal/services"
)

// UpdateSettingsRequest changes the daily free quota.
type UpdateSettingsRequest struct {
	DailyFreeListings *int `json:"daily_free_listings" binding:"required,gte=0" example:"5"`
}

// GetSettings godoc
// @ID          getSettings
// @Summary     Read system settings (admin)
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Admin user ID"  example(admin1)
//
// @Success     200  {object}  domain.SystemSettings
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     503  {object}  handlers.ErrorResponse  "Settings not initialized"
// @Router      /admin/settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	st, err := h.settings.Current(c.Request.Context())
	if err != nil {
		settingsError(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// UpdateSettings godoc
// @ID          updateSettings
// @Summary     Update system settings (admin)
// @Description Sets the daily free listing quota. Cached settings are invalidated so eligibility picks the change up on the next read.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Admin user ID"  example(admin1)
// @Param       body       body    handlers.UpdateSettingsRequest  true  "Settings payload"
//
// @Success     200  {object}  domain.SystemSettings
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     503  {object}  handlers.ErrorResponse  "Settings not initialized"
// @Router      /admin/settings [put]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	st, err := h.settings.SetDailyFreeListings(c.Request.Context(), *req.DailyFreeListings)
	if err != nil {
		settingsError(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Int("daily_free_listings", st.DailyFreeListings).Str("operator", userID(c)).Msg("settings updated")
	ok(c, http.StatusOK, st)
}

func settingsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAmount, "daily_free_listings must be >= 0")
	case errors.Is(err, services.ErrSettingsMissing):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "system settings not initialized")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeSettingsFailed, err.Error())
	}
}
