package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Success writes data as a JSON 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// JSON writes data with the given status.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Fail aborts the request with an error body.
func Fail(c *gin.Context, status int, msg, detail string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:     msg,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}
