package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CommunityStats godoc
// @ID          communityStats
// @Summary     Community pot statistics
// @Description Pot balance, donation totals and listings financed. Values may lag writes by the stats cache TTL.
// @Tags        Stats
// @Produce     json
//
// @Success     200  {object}  services.CommunityStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/community [get]
func (h *Handlers) CommunityStats(c *gin.Context) {
	st, err := h.stats.Community(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// MyStats godoc
// @ID          myStats
// @Summary     The caller's donation totals
// @Tags        Stats
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
//
// @Success     200  {object}  services.UserStats
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/me [get]
func (h *Handlers) MyStats(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	st, err := h.stats.UserStats(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
