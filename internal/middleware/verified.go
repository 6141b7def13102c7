package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/response"
)

// RequireVerified lets through only users whose email is verified. It must
// run after JWT.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.Verified {
			response.Error(c, appErrors.ErrUnverifiedAccount)
			c.Abort()
			return
		}
		c.Next()
	}
}
