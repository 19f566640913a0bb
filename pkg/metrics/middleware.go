package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MonitorMiddleware records request metrics. Paths are labelled with the route template so
// unknown URLs collapse into a single series.
func MonitorMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			int64(c.Writer.Size()),
		)
	}
}
