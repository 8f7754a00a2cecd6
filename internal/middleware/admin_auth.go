package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tokenledger-backend/internal/utils"
)

const (
	ContextKeyToken  = "token"
	ContextKeyClaims = "claims"
)

// TokenRevocations reports whether a bearer token was revoked before expiry.
type TokenRevocations interface {
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// AdminAuthMiddleware admits requests carrying a valid HS256 token with role "admin".
// revocations may be nil when no denylist is configured.
func AdminAuthMiddleware(secret string, revocations TokenRevocations, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		tokenString, err := utils.ExtractToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, err.Error()))
			c.Abort()
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), tokenString)
			if err != nil {
				log.Error("token denylist lookup failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to check token status"))
				c.Abort()
				return
			}
			if revoked {
				c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Token has been revoked"))
				c.Abort()
				return
			}
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Invalid or expired token"))
			c.Abort()
			return
		}

		role, ok := claims["role"].(string)
		if !ok || role != "admin" {
			log.Warn("unauthorized admin access attempt",
				zap.Any("sub", claims["sub"]),
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: Admins only"))
			c.Abort()
			return
		}

		c.Set(ContextKeyToken, tokenString)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}
