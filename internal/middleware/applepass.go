package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/pkg/response"
)

// PassAuthenticator verifies PassKit "ApplePass" authorization headers.
type PassAuthenticator interface {
	Authenticate(serial, header string) error
}

// ApplePass guards PassKit web service routes carrying a :serialNumber param.
func ApplePass(auth PassAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Authenticate(c.Param("serialNumber"), c.GetHeader("Authorization")); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
