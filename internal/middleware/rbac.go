package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/models"
	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
	"github.com/campuschain/credit-ledger-api/pkg/response"
)

// RBAC short-circuits requests whose JWT role is not in the allowed set.
// The ledger re-checks the caller's role on every mutation, so this is an
// early gate, not the authority.
func RBAC(allowed ...ledger.Role) gin.HandlerFunc {
	allowedRoles := make(map[ledger.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
