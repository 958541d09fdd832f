package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
)

// respondInternalError logs the unhandled error with its request context
// and emits the generic 500. The wrapped detail stays server-side.
func respondInternalError(c *gin.Context, err error) {
	log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	apierrors.InternalError(c, "")
}
