package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailquest/trailquest/internal/apperr"
)

// ErrorResponse writes err using the status and code of its taxonomy entry.
// Server-side failures are reported without detail.
func ErrorResponse(c *gin.Context, err error) {
	status := apperr.Status(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		message = "internal error"
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error":     message,
		"code":      apperr.Code(err),
		"timestamp": time.Now().UTC(),
	})
}

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %q: %w", name, raw, apperr.ErrInvalidInput)
	}
	return uint(id), nil
}

// BindJSON decodes the request body, mapping decode failures to invalid input.
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("malformed request body: %v: %w", err, apperr.ErrInvalidInput)
	}
	return nil
}
