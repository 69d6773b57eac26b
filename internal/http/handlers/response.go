// Package handlers provides HTTP handler implementations for the public API.
//
// Greeting lookups answer in plain text and leave failures on the Gin context
// for the error translator. The JSON envelope defined here is reserved for
// infrastructure responses the translator never sees: unknown routes,
// unsupported methods and rate limiting (see middleware.ErrCodeRateLimited).
//
// Example envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "route not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-greeting-service/internal/http/middleware"
)

// ErrorResponse is the envelope for infrastructure-level failures.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message
	Message string `json:"message" example:"route not found"`
}

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Fail aborts the request with an ErrorResponse. The access log records it;
// Fail itself does not log.
func Fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// NotFound is the NoRoute fallback.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
}

// MethodNotAllowed is the NoMethod fallback.
func MethodNotAllowed(c *gin.Context) {
	Fail(c, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Ops
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
