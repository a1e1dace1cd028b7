package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ModelState reports the loading state of the model resource.
// Published is true once a load outcome exists; Err carries the load
// failure, if any.
type ModelState func() (published bool, err error)

// Readiness returns a handler for K8s readiness probes. The service is
// ready to accept transcription traffic only after the model has loaded
// successfully; a pending or failed load answers 503.
func Readiness(state ModelState) gin.HandlerFunc {
	return func(c *gin.Context) {
		published, err := state()

		status := "ready"
		httpStatus := http.StatusOK
		body := gin.H{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		switch {
		case !published:
			status = "loading"
			httpStatus = http.StatusServiceUnavailable
		case err != nil:
			status = "failed"
			httpStatus = http.StatusServiceUnavailable
			// The load failure is logged server-side; clients only need
			// the state, not internal paths or causes.
			body["error"] = "model failed to load"
		}

		body["status"] = status
		c.JSON(httpStatus, body)
	}
}
