package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
	"github.com/ntholi/registry-web-sub009/pkg/response"
)

// Self admits a student whose token carries the student number in the :stdNo route param.
const Self = "SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && ownsStudentParam(c, claims) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

func ownsStudentParam(c *gin.Context, claims *models.JWTClaims) bool {
	if claims.Role != models.RoleStudent || claims.StdNo == nil {
		return false
	}
	stdNo, err := strconv.ParseInt(c.Param("stdNo"), 10, 64)
	return err == nil && stdNo == *claims.StdNo
}
