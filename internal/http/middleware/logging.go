// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, caller identity, structured access
// logging and panic recovery. Recommended order:
//
//  1. RequestID()
//  2. Identity()
//  3. Logger(opts)
//  4. Recovery()
//
// Logger attaches the request-scoped zerolog.Logger both to the Gin context
// (LoggerFrom) and to the request's context.Context, so services that log
// through log.Ctx(ctx) inherit request_id and user_id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// userIDKey is the Gin context key of the authenticated caller.
	userIDKey = "userID"
	// HeaderUserID carries the caller identity set by the upstream gateway.
	HeaderUserID = "X-User-ID"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	// maxUserIDLength bounds identities accepted from HeaderUserID.
	maxUserIDLength = 64
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused, otherwise a UUIDv4 is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Identity stores the caller's user id from X-User-ID in the Gin context.
// Authentication happens upstream; a missing or oversized header leaves the
// request anonymous.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(userIDKey); !ok {
			uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
			if uid != "" && len(uid) <= maxUserIDLength {
				c.Set(userIDKey, uid)
			}
		}
		c.Next()
	}
}

// UserID returns the caller identity, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// LogOptions configures Logger.
type LogOptions struct {
	// MaskHeaders are logged as "[REDACTED]" in addition to Authorization,
	// Cookie and Set-Cookie.
	MaskHeaders []string
	// LogHeaders includes the (scrubbed) request headers in each access log.
	LogHeaders bool
}

// Logger writes a structured access log for each request and response.
//
// The query string and header values are scrubbed of emails and payment
// references before logging; bodies are never logged. Level follows the
// outcome: error for 5xx or Gin errors, warn for 4xx, info otherwise.
func Logger(opts LogOptions) gin.HandlerFunc {
	s := newScrubber(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		lc := log.With().
			Str("request_id", asString(rid)).
			Str("user_id", UserID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(s.scrub(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength)
		if opts.LogHeaders {
			lc = lc.Interface("headers", s.headers(c.Request.Header))
		}
		l := lc.Logger()

		c.Set("logger", &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		ev := l.With().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery converts panics into a JSON 500 carrying the request id and logs
// the stack trace.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// Logger() did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes; max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
