package handlers

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/http/middleware"
)

// eventBuffer is how many invalidations a slow client may lag behind before
// further keys are dropped for it.
const eventBuffer = 64

// InvalidationEvent is the data of an "invalidate" SSE event.
type InvalidationEvent struct {
	Key string `json:"key" example:"profile:user123:credits"`
}

// CacheEvents godoc
// @ID          cacheEvents
// @Summary     Stream cache invalidations
// @Description Server-sent events: one "ready" event, then an "invalidate" event per invalidated cache key and a periodic "ping". Clients use it to refresh balances they display.
// @Tags        Cache
// @Produce     text/event-stream
//
// @Param       prefix  query  string  false  "Only keys with this prefix"  example(stats:)
//
// @Success     200  {string}  string  "event stream"
// @Failure     503  {object}  handlers.ErrorResponse  "Stream unavailable"
// @Router      /cache/events [get]
func (h *Handlers) CacheEvents(c *gin.Context) {
	if h.feed == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeStreamUnavailable, "invalidation stream not configured")
		return
	}
	prefix := c.Query("prefix")
	lg := middleware.LoggerFrom(c)

	events := make(chan string, eventBuffer)
	var dropped atomic.Int64
	unsubscribe := h.feed.AddInvalidationListener(func(key string) {
		if !strings.HasPrefix(key, prefix) {
			return
		}
		select {
		case events <- key:
		default:
			dropped.Add(1)
		}
	})
	defer func() {
		unsubscribe()
		if n := dropped.Load(); n > 0 {
			lg.Warn().Int64("dropped", n).Msg("cache events: slow client dropped keys")
		}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("ready", gin.H{"prefix": prefix})
	c.Writer.Flush()

	hb := h.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-events:
			c.SSEvent("invalidate", InvalidationEvent{Key: key})
			c.Writer.Flush()
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
