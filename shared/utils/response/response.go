// Package response writes the uniform JSON envelope used by every endpoint.
package response

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the standard API response format
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Pagination is the page metadata attached to list responses
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int64 `json:"pages"`
	Limit int   `json:"limit"`
}

// Success writes a successful envelope
func Success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Paginated writes a successful list envelope with page metadata
func Paginated(c *gin.Context, status int, message string, data interface{}, pagination Pagination) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: &pagination,
	})
}

// Failure writes an error envelope and aborts the chain
func Failure(c *gin.Context, status int, message string, errs interface{}, detail string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Errors:  errs,
		Error:   detail,
	})
}
