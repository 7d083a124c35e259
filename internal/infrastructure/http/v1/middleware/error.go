package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/idempotency"
	"stockcost/pkg/logger"
)

// gin context keys
const (
	ctxRequestID        = "request_id"
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// ErrorHandler renders the last handler error as {code, message, details}.
// Errors other than business AppErrors are logged and reported as
// INTERNAL_ERROR with the request id only.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		renderError(c)
	}
}

func renderError(c *gin.Context) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	ctx := c.Request.Context()

	status := http.StatusInternalServerError
	var body gin.H

	if appErr, ok := apperror.AsAppError(err); ok && appErr.Code != apperror.CodeInternal {
		if appErr.Err != nil {
			logger.Warn(ctx, "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}
		status = appErr.HTTPStatus
		body = gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
	} else {
		logger.Error(ctx, "unhandled error", "error", err)
		body = gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString(ctxRequestID),
			},
		}
	}

	// Store the exact failure response so a retry with the same key replays it.
	if key, store := idempotencyFromContext(c); store != nil {
		if ferr := store.FailKey(ctx, key, status, "application/json", body); ferr != nil {
			logger.Warn(ctx, "failed to store idempotent error response", "error", ferr)
		}
	}

	c.JSON(status, body)
}

func idempotencyFromContext(c *gin.Context) (string, idempotency.Store) {
	key := c.GetString(ctxIdempotencyKey)
	if key == "" {
		return "", nil
	}
	v, _ := c.Get(ctxIdempotencyStore)
	store, _ := v.(idempotency.Store)
	return key, store
}

// CompleteIdempotency stores a successful response for the request's
// idempotency key, if any.
func CompleteIdempotency(c *gin.Context, statusCode int, response any) {
	key, store := idempotencyFromContext(c)
	if store == nil {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, statusCode, "application/json", response); err != nil {
		logger.Warn(c.Request.Context(), "failed to store idempotent response", "error", err)
	}
}
