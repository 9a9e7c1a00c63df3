package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPErrorHandler renders APIError and echo.HTTPError values as
// {"success": false, "error": {...}}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(apiErr.Status)
	} else {
		writeErr = c.JSON(apiErr.Status, map[string]interface{}{
			"success": false,
			"error":   apiErr,
		})
	}
	if writeErr != nil {
		logger.Log.Warn("failed to write error response", zap.Error(writeErr))
	}
}

// FromError converts any error into an APIError.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Code:    codeForStatus(httpErr.Code),
			Message: fmt.Sprint(httpErr.Message),
			Status:  httpErr.Code,
		}
	}

	return Internal(err)
}
