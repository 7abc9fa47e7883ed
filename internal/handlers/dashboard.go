package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/services"
	"github.com/yukikurage/taskmaster/internal/utils"
)

// DashboardHandler serves the protected landing page summary.
type DashboardHandler struct {
	authService *services.AuthService
	taskService *services.TaskService
}

func NewDashboardHandler(authService *services.AuthService, taskService *services.TaskService) *DashboardHandler {
	return &DashboardHandler{
		authService: authService,
		taskService: taskService,
	}
}

// Show returns the signed-in user and their number of open tasks.
func (h *DashboardHandler) Show(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	identity, err := h.authService.GetIdentity(c.Request.Context(), userID)
	if err != nil {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	result, err := h.taskService.ListTasks(c.Request.Context(), userID, utils.PaginationParams{Page: constants.MinPageSize})
	if err != nil {
		apierrors.InternalError(c, "Failed to load tasks")
		return
	}

	var pending int64
	for _, t := range result.Tasks {
		if !t.IsComplete {
			pending++
		}
	}

	c.JSON(http.StatusOK, dto.DashboardResponse{
		User:         dto.ToUserDTO(*identity),
		PendingTasks: pending,
	})
}
