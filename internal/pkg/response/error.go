package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindTransient {
			slog.ErrorContext(c.Request.Context(), "transient failure",
				"path", c.FullPath(), "error", err.Error())
		}
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message, Details: appErr.Details})
		return
	}

	slog.ErrorContext(c.Request.Context(), "unhandled error",
		"method", c.Request.Method, "path", c.FullPath(), "error", err.Error())
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// BadRequest writes a 400 for binding failures.
func BadRequest(c *gin.Context, msg string, err error) {
	body := ErrorResponse{Error: msg}
	if err != nil {
		body.Details = map[string]any{"reason": err.Error()}
	}
	c.JSON(http.StatusBadRequest, body)
}
