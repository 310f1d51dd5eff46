package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wellcheck-api/internal/common"
)

// requestIDKey is the gin context key set by the request logging middleware
const requestIDKey = "request_id"

// ErrorResponse is the JSON body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var validation common.ValidationError
	var notFound common.NotFoundError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	response := ErrorResponse{Error: err.Error()}

	var validation common.ValidationError
	if errors.As(err, &validation) {
		response.Error = validation.Message
		response.Field = validation.Field
	}
	if status == http.StatusInternalServerError {
		// internal details stay in the logs
		response.Error = "internal error"
	}

	c.JSON(status, response)
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request body",
		Details: err.Error(),
	})
}
