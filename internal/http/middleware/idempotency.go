// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file makes ledger writes safe to retry. A client that sends an
// Idempotency-Key with POST /listings/consume (or any other route the
// middleware is mounted on) gets exactly one execution per (user, route, key)
// within the retention window:
//
//   - first request: the handler runs; a 2xx response is recorded;
//   - retry after completion: the recorded status and body are replayed with
//     Idempotency-Replayed: true and the handler does not run;
//   - retry while the first is still running: 409 Conflict.
//
// Failed (non-2xx) responses are not recorded so the client can retry them.
// Anonymous requests and safe methods (GET, HEAD, OPTIONS) are passed
// through untouched.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on replayed responses.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response was served from a stored record.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; default ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyStore persists completed responses. Lookup must ignore expired
// records; Save may return an error for a duplicate, which is logged and
// otherwise ignored.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string, now time.Time) (status int, body []byte, found bool, err error)
	Save(ctx context.Context, userID, scope, key string, status int, body []byte) error
}

// IdempotencyValidator validates the Idempotency-Key header and applies the
// replay protocol described above. The scope of a key is the matched route
// plus method, so the same key may be reused across different endpoints.
func IdempotencyValidator(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	var running sync.Map // userID|scope|key -> struct{}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !writeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		uid := UserID(c)
		if uid == "" || store == nil {
			c.Next()
			return
		}
		scope := c.Request.Method + " " + c.FullPath()
		ctx := c.Request.Context()
		lg := LoggerFrom(c)

		status, body, found, err := store.Lookup(ctx, uid, scope, key, time.Now().UTC())
		if err != nil {
			lg.Warn().Err(err).Msg("idempotency lookup failed")
		}
		if found {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotencyReplayed, "true")
			c.Data(status, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		slot := uid + "|" + scope + "|" + key
		if _, busy := running.LoadOrStore(slot, struct{}{}); busy {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "idempotency_in_progress",
				"message":    "a request with this Idempotency-Key is still being processed",
			})
			return
		}
		defer running.Delete(slot)

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if st := rec.Status(); st >= 200 && st < 300 {
			if err := store.Save(context.WithoutCancel(ctx), uid, scope, key, st, rec.body.Bytes()); err != nil {
				lg.Warn().Err(err).Msg("idempotency save failed")
			}
		}
	}
}

func writeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// recordingWriter tees the response body so it can be stored for replay.
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
