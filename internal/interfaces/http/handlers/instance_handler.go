package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// InstanceHandler 实例 CRUD 与连接测试
type InstanceHandler struct {
	instances *usecase.InstanceUsecase
	logger    *zap.Logger
}

// NewInstanceHandler 创建实例处理器
func NewInstanceHandler(instances *usecase.InstanceUsecase, logger *zap.Logger) *InstanceHandler {
	return &InstanceHandler{
		instances: instances,
		logger:    logger,
	}
}

// List GET /instances
func (h *InstanceHandler) List(c *gin.Context) {
	list, err := h.instances.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get GET /instances/:id
func (h *InstanceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inst, err := h.instances.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// Create POST /instances
func (h *InstanceHandler) Create(c *gin.Context) {
	var inst entity.Instance
	if err := c.ShouldBindJSON(&inst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	created, err := h.instances.Create(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update PUT /instances/:id
func (h *InstanceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var inst entity.Instance
	if err := c.ShouldBindJSON(&inst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	inst.ID = id
	updated, err := h.instances.Update(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete DELETE /instances/:id
func (h *InstanceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.instances.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TestConnection POST /instances/test-connection
// 接收未保存的连接凭证，用于设置流程中的预检
func (h *InstanceHandler) TestConnection(c *gin.Context) {
	var inst entity.Instance
	if err := c.ShouldBindJSON(&inst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	result, err := h.instances.TestConnection(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
