package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tokenledger-backend/internal/middleware"
	"tokenledger-backend/internal/utils"
)

// maxTokenLife bounds the denylist entry for tokens without an exp claim.
const maxTokenLife = 72 * time.Hour

type Revoker interface {
	Revoke(ctx context.Context, tokenString string, ttl time.Duration) error
}

type Handler struct {
	revoker Revoker
}

func NewHandler(revoker Revoker) *Handler {
	return &Handler{revoker: revoker}
}

// Revoke godoc
// @Summary Revoke the current admin token
// @Description Denylist the bearer token used for this request until it expires.
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/auth/revoke [post]
func (h *Handler) Revoke(c *gin.Context) {
	tokenString := c.GetString(middleware.ContextKeyToken)
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "bearer token not found"))
		return
	}

	remaining := maxTokenLife
	if claims, ok := c.Get(middleware.ContextKeyClaims); ok {
		if m, ok := claims.(jwt.MapClaims); ok {
			if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
				remaining = time.Until(exp.Time)
			}
		}
	}

	if err := h.revoker.Revoke(c.Request.Context(), tokenString, remaining); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to denylist token"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Token revoked", nil))
}
