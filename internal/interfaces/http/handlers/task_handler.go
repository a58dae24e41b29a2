package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// TaskHandler 任务与管道阶段配置
type TaskHandler struct {
	console   *usecase.Console
	instances *usecase.InstanceUsecase
	logger    *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(console *usecase.Console, instances *usecase.InstanceUsecase, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		console:   console,
		instances: instances,
		logger:    logger,
	}
}

func (h *TaskHandler) resolveInstance(c *gin.Context) (*entity.Instance, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	inst, err := h.instances.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &inst, true
}

// List GET /instances/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Tasks(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListForConversation GET /instances/:id/conversations/:conversationID/tasks
func (h *TaskHandler) ListForConversation(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "conversationID")
	if !ok {
		return
	}
	list, err := h.console.ConversationTasks(c.Request.Context(), inst, convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create POST /instances/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	var task entity.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	created, err := h.console.CreateTask(c.Request.Context(), inst, task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type taskCompletionRequest struct {
	IsCompleted *bool `json:"isCompleted" binding:"required"`
}

// UpdateCompletion PATCH /instances/:id/tasks/:taskID
func (h *TaskHandler) UpdateCompletion(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskID")
	if !ok {
		return
	}
	var req taskCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	task, err := h.console.SetTaskCompletion(c.Request.Context(), inst, taskID, *req.IsCompleted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete DELETE /instances/:id/tasks/:taskID
func (h *TaskHandler) Delete(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskID")
	if !ok {
		return
	}
	if err := h.console.DeleteTask(c.Request.Context(), inst, taskID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PipelineStages GET /instances/:id/pipeline-stages
func (h *TaskHandler) PipelineStages(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	stages, err := h.console.PipelineStages(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stages)
}

// UpdatePipelineStages PUT /instances/:id/pipeline-stages
func (h *TaskHandler) UpdatePipelineStages(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	var stages []entity.PipelineStageConfig
	if err := c.ShouldBindJSON(&stages); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	out, err := h.console.UpdatePipelineStages(c.Request.Context(), inst, stages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
