package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/httputil"
)

// SizeLimit rejects bodies larger than maxBytes and caps reads of bodies
// without a declared length.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			httputil.RespondWithError(c, apperrors.TooLarge(maxBytes, nil))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
