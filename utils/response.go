package utils

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the uniform body every endpoint responds with. Success bodies
// carry data, error bodies carry the underlying error detail; both carry the
// HTTP status and a human-readable message.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSONResponse sends a success envelope wrapping data.
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// JSONError sends an error envelope carrying the underlying error detail.
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, Envelope{
		Status:  status,
		Message: message,
		Error:   err.Error(),
	})
}
