package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

const (
	// ContextUniversityKey stores the university a request operates on.
	ContextUniversityKey = "universityID"
	// UniversityHeader lets a super administrator act on another university.
	UniversityHeader = "X-University-ID"
)

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UniversityScope resolves the university of the request. Administrators
// are pinned to their own university; super administrators may pick one
// with the X-University-ID header.
func UniversityScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		universityID := claims.UniversityID
		if requested := strings.TrimSpace(c.GetHeader(UniversityHeader)); requested != "" && requested != universityID {
			if claims.Role != models.RoleSuperAdmin {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "cannot access another university"))
				c.Abort()
				return
			}
			universityID = requested
		}
		if universityID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "university is required"))
			c.Abort()
			return
		}
		c.Set(ContextUniversityKey, universityID)
		c.Next()
	}
}

// UniversityID returns the university resolved by UniversityScope.
func UniversityID(c *gin.Context) string {
	return c.GetString(ContextUniversityKey)
}
