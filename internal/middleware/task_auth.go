package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
)

// ContextKeyTaskID holds the validated task ID for handlers.
const ContextKeyTaskID = "task_id"

// RequireTaskID validates the :id path parameter. Ownership is enforced by
// the owner-scoped queries behind the handler, so an ID that exists but
// belongs to someone else is reported as not found there.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		if _, exists := GetUserID(c); !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(ContextKeyTaskID, taskID.String())
		c.Next()
	}
}

// GetTaskID returns the task ID stored by RequireTaskID.
func GetTaskID(c *gin.Context) string {
	return c.GetString(ContextKeyTaskID)
}
