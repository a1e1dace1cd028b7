package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health returns a liveness handler. It reports healthy unconditionally:
// the process being able to answer is the signal, independent of whether
// the model finished loading. Readiness is a separate endpoint.
func Health(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	}
}
