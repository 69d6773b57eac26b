// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file installs the global failure boundary. Handlers record failures
// with c.Error(err) and return; ErrorTranslator classifies the last recorded
// error after the chain has run and writes the single plain-text response.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-greeting-service/internal/http/errorhandler"
)

// ErrorTranslator returns a Gin middleware that answers failed requests
// through h. Requests without recorded errors pass through untouched. If the
// handler already wrote a response, the failure is still classified (and so
// logged and counted) but nothing more is written.
func ErrorTranslator(h errorhandler.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		resp := h.Handle(last.Err, requestContext(c))
		httpErrorsTranslated.WithLabelValues(string(resp.Kind), strconv.Itoa(resp.Status)).Inc()

		if c.Writer.Written() {
			return
		}
		c.String(resp.Status, resp.Body)
	}
}

func requestContext(c *gin.Context) errorhandler.RequestContext {
	return errorhandler.RequestContext{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		ClientIP:  c.ClientIP(),
		RequestID: RequestIDFrom(c),
	}
}
