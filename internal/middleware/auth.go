// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": i18n.T(lang, i18n.KeyAuthRequired),
			})
			c.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": i18n.T(lang, i18n.KeyAuthInvalidToken),
			})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": i18n.T(lang, i18n.KeyAuthTokenExpired),
			})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// CustomerRequired admits only members of the public.
func CustomerRequired() gin.HandlerFunc {
	return requireRole(i18n.KeyAuthCustomerRequired, func(role models.UserRole) bool {
		return role == models.UserRoleCustomer
	})
}

// OfficerRequired admits department staff: officers, assessors and admins.
func OfficerRequired() gin.HandlerFunc {
	return requireRole(i18n.KeyAuthOfficerRequired, models.UserRole.IsStaff)
}

func AdminRequired() gin.HandlerFunc {
	return requireRole(i18n.KeyAdminAccessDenied, func(role models.UserRole) bool {
		return role == models.UserRoleAdmin
	})
}

func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			c.Next()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func requireRole(messageKey string, allowed func(models.UserRole) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := utils.GetUserRoleFromContext(c)
		if !exists || !allowed(models.UserRole(role)) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": i18n.T(utils.GetLangFromContext(c), messageKey),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Extract token from "Bearer <token>"
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Set("role", claims.Role)
}
