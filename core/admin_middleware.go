package core

import (
	"github.com/gin-gonic/gin"
)

// RequireAuthority ensures the token claims include role. It must run
// after RequireToken.
func RequireAuthority(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil {
			respondFailure(c, NewTokenFailure(ReasonMalformed, nil))
			c.Abort()
			return
		}
		if !claims.HasAuthority(role) {
			respondFailure(c, NewForbidden(string(role)+" authority required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
