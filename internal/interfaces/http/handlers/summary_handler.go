package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// SummaryHandler 跨实例汇总视图与 AI 分析
type SummaryHandler struct {
	console   *usecase.Console
	instances *usecase.InstanceUsecase
	logger    *zap.Logger
}

// NewSummaryHandler 创建汇总处理器
func NewSummaryHandler(console *usecase.Console, instances *usecase.InstanceUsecase, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{
		console:   console,
		instances: instances,
		logger:    logger,
	}
}

// queryInstance 解析 ?instance_id= 并加载实例
func (h *SummaryHandler) queryInstance(c *gin.Context) (*entity.Instance, bool) {
	id, err := strconv.ParseInt(c.Query("instance_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid instance_id"})
		return nil, false
	}
	inst, err := h.instances.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &inst, true
}

// Kpis GET /summary/kpis?instance_id=N
func (h *SummaryHandler) Kpis(c *gin.Context) {
	inst, ok := h.queryInstance(c)
	if !ok {
		return
	}
	kpis, err := h.console.Kpis(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}

// Anomalies GET /summary/anomalies?instance_id=N
func (h *SummaryHandler) Anomalies(c *gin.Context) {
	inst, ok := h.queryInstance(c)
	if !ok {
		return
	}
	list, err := h.console.Anomalies(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HealthChecks GET /summary/health?instance_id=N
func (h *SummaryHandler) HealthChecks(c *gin.Context) {
	inst, ok := h.queryInstance(c)
	if !ok {
		return
	}
	list, err := h.console.HealthChecks(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Volume GET /summary/volume?instance_id=N&period=7d|30d
func (h *SummaryHandler) Volume(c *gin.Context) {
	inst, ok := h.queryInstance(c)
	if !ok {
		return
	}
	days := 30
	if c.Query("period") == "7d" {
		days = 7
	}
	points, err := h.console.ConversationVolume(c.Request.Context(), inst, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// Sentiment GET /summary/sentiment?instance_id=N
func (h *SummaryHandler) Sentiment(c *gin.Context) {
	inst, ok := h.queryInstance(c)
	if !ok {
		return
	}
	data, err := h.console.Sentiment(c.Request.Context(), inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// AiAnalysis GET /instances/:id/ai-analysis
func (h *SummaryHandler) AiAnalysis(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inst, err := h.instances.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.console.AiAnalysis(c.Request.Context(), &inst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
