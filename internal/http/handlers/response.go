// Package handlers implements the public API endpoints. This file holds the
// response utilities every handler goes through, so success and failure
// bodies stay uniform across the surface.
//
// Every error response is an ErrorResponse with a stable machine-readable
// code (see errors.go) and the request correlation ID when one is present:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "conversation not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visaflow/crm-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints. RequestID
// echoes X-Request-ID so operators can correlate a failure with server logs;
// Code is stable for programmatic branching; Message is safe to display.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail aborts the request with a structured error body. Server-side failures
// (5xx) are additionally logged through the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail lets other packages (router fallbacks, method-not-allowed handlers)
// emit the same error envelope without reaching into unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an empty 204 response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
