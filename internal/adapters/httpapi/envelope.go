package httpapi

import (
	"flowforge/internal/core/apperrors"

	"github.com/gin-gonic/gin"
)

// Every response uses the same envelope: {ok:true, data} on success,
// {ok:false, code, message, details} on failure.

type successEnvelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type errorEnvelope struct {
	OK      bool           `json:"ok"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, successEnvelope{OK: true, Data: data})
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.JSON(appErr.HTTPStatus(), errorEnvelope{
		OK:      false,
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

func bindError(c *gin.Context, err error) {
	respondError(c, apperrors.Validation("invalid request body", map[string]any{
		"error": err.Error(),
	}))
}

// actor returns the authenticated operator set by the auth middleware.
func actor(c *gin.Context) string {
	if v, ok := c.Get("actor"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
