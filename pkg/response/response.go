package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/auth-service/pkg/apperrors"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
)

// UnknownErrorMessage is the only text a client sees for unclassified failures.
const UnknownErrorMessage = "Unknown error."

// Envelope is the body of every API response.
type Envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// OK writes a successful envelope.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail writes a failed envelope with the given status and message.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Error: &message})
}

// AbortFail is Fail for middleware: the handler chain stops here.
func AbortFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &message})
}

// Error maps err to a status and envelope. Business errors keep their message;
// anything else is logged in full and answered with a generic message.
func Error(c *gin.Context, err error) {
	status, message := resolve(c, err)
	Fail(c, status, message)
}

// AbortError is Error for middleware.
func AbortError(c *gin.Context, err error) {
	status, message := resolve(c, err)
	AbortFail(c, status, message)
}

func resolve(c *gin.Context, err error) (int, string) {
	l := logger.With(
		slog.String("request_id", c.GetHeader("X-Request-Id")),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		l.Warn("request failed", slog.String("kind", appErr.Kind.String()), slog.String("error", err.Error()))
		return apperrors.HTTPStatus(err), appErr.Message
	}
	l.Error("unhandled error", slog.String("error", err.Error()))
	return http.StatusBadRequest, UnknownErrorMessage
}
