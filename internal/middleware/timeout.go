// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout returns a gin middleware that attaches a deadline to the request
// context. The handler chain runs synchronously, so gin.Context access stays
// single-threaded and no goroutines leak.
//
// Every outbound call (Airtable, geocoder, extractor) propagates the request
// context, so the deadline unblocks them at the HTTP level. After the chain
// returns, if the deadline fired and no response was written, a 503 is sent —
// that covers handlers that exit via ctx.Done() without writing.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() != nil && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "request timed out",
			})
		}
	}
}
