package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errorspkg "meetingindex.app/pkg/errors"
)

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Message string `json:"message"`
}

// handleError maps application errors onto HTTP status codes. The response
// body carries the error description, never the wrapped cause.
func (s *HTTPServerAdapter) handleError(c *gin.Context, err error) {
	var appErr *errorspkg.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
		return
	}

	switch appErr.Type {
	case errorspkg.ValidationError:
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: appErr.Message})
	case errorspkg.NotFoundError:
		c.JSON(http.StatusNotFound, ErrorResponse{Message: appErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: appErr.Message})
	}
}
