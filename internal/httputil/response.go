// Package httputil holds the JSON response helpers shared by the HTTP API
// handlers and a transport mock for testing HTTP clients.
package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONError aborts the request with a JSON body of the form
// {"error": msg}.
func JSONError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// OK writes data as a 200 JSON response.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// BadRequest aborts with a 400 and the given message.
func BadRequest(c *gin.Context, msg string) {
	JSONError(c, http.StatusBadRequest, msg)
}

// NotFound aborts with a 404 and the given message.
func NotFound(c *gin.Context, msg string) {
	JSONError(c, http.StatusNotFound, msg)
}

// MethodNotAllowed aborts with a 405.
func MethodNotAllowed(c *gin.Context) {
	JSONError(c, http.StatusMethodNotAllowed, "method not allowed")
}

// ServiceUnavailable aborts with a 503 and the given message.
func ServiceUnavailable(c *gin.Context, msg string) {
	JSONError(c, http.StatusServiceUnavailable, msg)
}
