package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/babelroom/babelroom/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

// requireUserID reads the caller identity. Authentication itself lives at an
// outer boundary; this service only needs a stable identity per user, taken
// from the X-User-Id header (or user_id query for websocket dials).
func requireUserID(c *gin.Context) (string, bool) {
	if id := c.GetHeader("X-User-Id"); id != "" {
		c.Set("user_id", id)
		return id, true
	}
	if id := c.Query("user_id"); id != "" {
		c.Set("user_id", id)
		return id, true
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "missing user identity", nil))
	return "", false
}
