package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"flowforge/internal/core/apperrors"
	idempotencyPort "flowforge/internal/ports/idempotency"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HeaderIdempotencyKey is the client-supplied retry key.
const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency makes mutating endpoints safe to retry. Requests without the
// header pass through untouched. With the header, the first request
// reserves the key, executes once, and commits the response; retries with
// the same body replay that response byte for byte; a different body under
// the same key is rejected.
func Idempotency(store idempotencyPort.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortError(c, apperrors.Validation("unreadable request body", nil))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// The concrete path, not the route template: the same key against
		// two different resource ids must not replay across them.
		scope := c.Request.Method + " " + c.Request.URL.Path
		requestHash := hashBody(body)

		result, err := store.Reserve(c.Request.Context(), key, scope, requestHash)
		if err != nil {
			logger.Error("idempotency reservation failed",
				zap.String("key", key),
				zap.Error(err))
			abortError(c, apperrors.Internal("idempotency store unavailable"))
			return
		}
		if !result.Fresh {
			replayOrReject(c, key, requestHash, result.Record)
			return
		}

		capture := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		status := capture.Status()
		if status >= http.StatusInternalServerError {
			// Server-side failure: free the key so the client can retry.
			if err := store.Release(c.Request.Context(), key, scope); err != nil {
				logger.Error("idempotency release failed",
					zap.String("key", key),
					zap.Error(err))
			}
			return
		}
		if err := store.Commit(c.Request.Context(), key, scope, requestHash, status, capture.body.Bytes()); err != nil {
			logger.Error("idempotency commit failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func replayOrReject(c *gin.Context, key, requestHash string, record *idempotencyPort.Record) {
	if record == nil {
		// The prior reservation expired between SetNX and read. Retryable.
		abortError(c, apperrors.Conflict("request with this idempotency key is being retried, try again", map[string]any{
			"idempotency_key": key,
		}))
		return
	}
	if record.RequestHash != requestHash {
		abortError(c, apperrors.IdempotencyConflict("idempotency key reused with a different request body", map[string]any{
			"idempotency_key": key,
		}))
		return
	}
	if record.State == idempotencyPort.StateReserved {
		abortError(c, apperrors.Conflict("request with this idempotency key is still in flight", map[string]any{
			"idempotency_key": key,
		}))
		return
	}
	c.Abort()
	c.Data(record.HTTPStatus, "application/json; charset=utf-8", record.Body)
}

func abortError(c *gin.Context, appErr *apperrors.Error) {
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
		"ok":      false,
		"code":    string(appErr.Code),
		"message": appErr.Message,
		"details": appErr.Details,
	})
}

// responseCapture duplicates everything written to the client so the
// response can be committed for replay.
type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *responseCapture) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *responseCapture) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
