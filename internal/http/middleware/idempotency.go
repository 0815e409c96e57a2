// Idempotency support for the ask endpoint. The validator checks an optional
// Idempotency-Key header, stashes the normalized key in the Gin context, and
// consults an application-supplied lookup so replays of completed asks can be
// detected before the handler runs. Persistence stays behind the narrow
// IdempotencyLookup function type; the middleware never serves a cached
// payload itself.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen key for deduplicating
// retried unsafe requests. The same semantic operation should always send the
// same key.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys for idempotency state, read through the accessor helpers.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator
// and whether one is present. Handlers should use this instead of re-reading
// the header.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a previously completed ask for
// this (operator, conversation, key) tuple.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions tunes header validation. TTL enforcement belongs to the
// lookup implementation, not here.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length; values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil means the token-ish default
	// ^[A-Za-z0-9._~\-:]+$ is used.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a successful, unexpired result exists for
// (operatorID, conversationID, key) at now. Errors mean the lookup itself
// failed and must not block normal processing.
type IdempotencyLookup func(ctx context.Context, operatorID, conversationID, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator is a no-op when the header is absent, answers 400 for
// malformed keys, and otherwise stashes the key and runs the lookup. A
// detected replay sets both the replay flag (read via IsReplay) and the
// rate-limit bypass flag so retries are not charged against the bucket.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			oid := operatorIDFromCtx(c)
			conversationID := c.Param("id") // POST /conversations/:id/ask
			now := time.Now().UTC()

			if exists, _ := lookup(c.Request.Context(), oid, conversationID, key, now); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// operatorIDFromCtx reads the operator identity set by upstream auth
// middleware, falling back to the development operator when absent.
func operatorIDFromCtx(c *gin.Context) string {
	if v, ok := c.Get("operatorID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "demo-operator"
}
