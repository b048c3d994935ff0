package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status returns a handler for GET /.
func Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}
