package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes the transport response for a service error. The mapping
// keeps not-found and forbidden distinct; past-date booking failures use
// 400 like other validation errors but keep their own message.
func Error(c *gin.Context, err error) {
	var status int
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrValidation, apperrors.ErrPastDate:
		status = http.StatusBadRequest
	case apperrors.ErrConflict:
		status = http.StatusConflict
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrForbidden:
		status = http.StatusForbidden
	default:
		status = http.StatusInternalServerError
	}

	message := "internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	c.JSON(status, NewErrorResponse(message))
}
