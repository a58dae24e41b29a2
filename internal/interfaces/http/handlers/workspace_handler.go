package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
)

// WorkspaceHandler 会话、联系人、座席与工作区资源
type WorkspaceHandler struct {
	console   *usecase.Console
	instances *usecase.InstanceUsecase
	logger    *zap.Logger
}

// NewWorkspaceHandler 创建工作区处理器
func NewWorkspaceHandler(console *usecase.Console, instances *usecase.InstanceUsecase, logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		console:   console,
		instances: instances,
		logger:    logger,
	}
}

// resolveInstance 解析路径中的实例
func (h *WorkspaceHandler) resolveInstance(c *gin.Context) (*entity.Instance, bool) {
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

// Conversations GET /instances/:id/conversations
func (h *WorkspaceHandler) Conversations(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Conversations(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Messages GET /instances/:id/conversations/:conversationID/messages
func (h *WorkspaceHandler) Messages(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "conversationID")
	if !ok {
		return
	}
	list, err := h.console.OpenConversation(c.Request.Context(), inst, convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type stageRequest struct {
	NewStageID string `json:"new_stage_id" binding:"required"`
}

// UpdateStage PATCH /instances/:id/conversations/:conversationID/stage
func (h *WorkspaceHandler) UpdateStage(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "conversationID")
	if !ok {
		return
	}
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	conv, err := h.console.UpdateConversationStage(c.Request.Context(), inst, convID, req.NewStageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

type tagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// AddTag POST /instances/:id/conversations/:conversationID/tags
func (h *WorkspaceHandler) AddTag(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "conversationID")
	if !ok {
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	conv, err := h.console.AddConversationTag(c.Request.Context(), inst, convID, req.Tag)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// RemoveTag DELETE /instances/:id/conversations/:conversationID/tags
func (h *WorkspaceHandler) RemoveTag(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "conversationID")
	if !ok {
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	conv, err := h.console.RemoveConversationTag(c.Request.Context(), inst, convID, req.Tag)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Contacts GET /instances/:id/contacts
func (h *WorkspaceHandler) Contacts(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Contacts(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateContact PATCH /instances/:id/contacts/:contactID
func (h *WorkspaceHandler) UpdateContact(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	contactID, ok := pathID(c, "contactID")
	if !ok {
		return
	}
	var upd remote.ContactUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	contact, err := h.console.UpdateContact(c.Request.Context(), inst, contactID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// Agents GET /instances/:id/agents
func (h *WorkspaceHandler) Agents(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Agents(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type agentStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateAgentStatus PATCH /instances/:id/agents/:agentID
func (h *WorkspaceHandler) UpdateAgentStatus(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	agentID, ok := pathID(c, "agentID")
	if !ok {
		return
	}
	var req agentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	agent, err := h.console.SetAgentStatus(c.Request.Context(), inst, agentID, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Teams GET /instances/:id/teams
func (h *WorkspaceHandler) Teams(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Teams(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Inboxes GET /instances/:id/inboxes
func (h *WorkspaceHandler) Inboxes(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Inboxes(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Properties GET /instances/:id/properties
func (h *WorkspaceHandler) Properties(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Properties(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MedicalServices GET /instances/:id/medical-services
func (h *WorkspaceHandler) MedicalServices(c *gin.Context) {
	inst, ok := h.resolveInstance(c)
	if !ok {
		return
	}
	list, err := h.console.MedicalServices(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
