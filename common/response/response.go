// Package response defines the envelope shared by every endpoint and the
// middleware that turns application errors into it. All success and error
// bodies have the same four-field shape so clients never branch on layout.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"offerhub-backend/common/apperror"
)

// Envelope is the uniform response body.
type Envelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data,omitempty"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	Success    bool     `json:"success"`
}

// OK writes a success envelope with the given status.
func OK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, data any, message string) {
	OK(c, http.StatusCreated, data, message)
}

// AbortWithError records err on the context and stops the handler chain; the
// ErrorHandler middleware renders it. Controllers call this instead of
// writing error bodies themselves.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler is the single translator from application errors to HTTP
// responses. It runs after the handler chain, takes the last recorded error,
// resolves its kind and writes the error envelope. Internal errors are
// logged with their cause and returned with a generic message.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := apperror.From(c.Errors.Last().Err)
		if appErr.Kind == apperror.KindInternal {
			logger.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(appErr.Err),
			)
		}

		status := appErr.HTTPStatus()
		errs := appErr.Errs
		if len(errs) == 0 {
			errs = []string{appErr.Message}
		}
		c.JSON(status, Envelope{
			StatusCode: status,
			Message:    appErr.Message,
			Errors:     errs,
			Success:    false,
		})
	}
}

// Recovery converts a handler panic into the standard 500 envelope so an
// unexpected failure never crashes the process or leaks a stack trace.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
			StatusCode: http.StatusInternalServerError,
			Message:    "Something went wrong",
			Errors:     []string{"Something went wrong"},
			Success:    false,
		})
	})
}
