package middleware

import (
	"net/http"
	"strings"

	"flowforge/internal/core/apperrors"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// JWTAuth validates the Bearer token and records the operator identity as
// the transition actor for downstream handlers.
func JWTAuth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortAuth(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			abortAuth(c, "invalid token")
			return
		}

		c.Set("actor", claims.Subject)
		c.Next()
	}
}

func abortAuth(c *gin.Context, message string) {
	appErr := apperrors.AuthFail(message)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"ok":      false,
		"code":    string(appErr.Code),
		"message": appErr.Message,
	})
}
