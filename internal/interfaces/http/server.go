package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
	"github.com/soporteops/soporteops/console/internal/interfaces/http/handlers"
	"github.com/soporteops/soporteops/console/internal/interfaces/websocket"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config HTTP服务器配置
type Config struct {
	Host string
	Port int
	Mode string // debug, release
}

// Deps 服务器依赖
type Deps struct {
	Console         *usecase.Console
	Instances       *usecase.InstanceUsecase
	Bus             eventbus.Bus
	Monitor         *monitoring.Monitor
	Hub             *websocket.Hub
	VerifySignature func() bool
}

// NewServer 创建HTTP服务器
func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	// 设置Gin模式
	if cfg.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger, deps.Monitor))

	// 初始化处理器
	instanceHandler := handlers.NewInstanceHandler(deps.Instances, logger)
	workspaceHandler := handlers.NewWorkspaceHandler(deps.Console, deps.Instances, logger)
	taskHandler := handlers.NewTaskHandler(deps.Console, deps.Instances, logger)
	summaryHandler := handlers.NewSummaryHandler(deps.Console, deps.Instances, logger)
	webhookHandler := handlers.NewWebhookHandler(deps.Instances, deps.Bus, deps.Monitor, deps.VerifySignature, logger)

	// 注册路由
	setupRoutes(router, deps, instanceHandler, workspaceHandler, taskHandler, summaryHandler, webhookHandler)

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return &Server{
		server: server,
		logger: logger,
	}
}

// Start 启动服务器
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// setupRoutes 设置路由
func setupRoutes(
	router *gin.Engine,
	deps Deps,
	instanceHandler *handlers.InstanceHandler,
	workspaceHandler *handlers.WorkspaceHandler,
	taskHandler *handlers.TaskHandler,
	summaryHandler *handlers.SummaryHandler,
	webhookHandler *handlers.WebhookHandler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// Prometheus 文本指标
	if deps.Monitor != nil {
		router.GET("/metrics", gin.WrapH(deps.Monitor.PrometheusHandler()))
	}

	// 实时推送
	if deps.Hub != nil {
		router.GET("/ws", gin.WrapF(deps.Hub.ServeWS))
	}

	// 入站 webhook
	router.POST("/webhooks/chatwoot/:id", webhookHandler.Receive)

	// API版本1
	v1 := router.Group("/api/v1")
	{
		// 实例
		v1.GET("/instances", instanceHandler.List)
		v1.POST("/instances", instanceHandler.Create)
		v1.POST("/instances/test-connection", instanceHandler.TestConnection)
		v1.GET("/instances/:id", instanceHandler.Get)
		v1.PUT("/instances/:id", instanceHandler.Update)
		v1.DELETE("/instances/:id", instanceHandler.Delete)

		// 会话
		v1.GET("/instances/:id/conversations", workspaceHandler.Conversations)
		v1.GET("/instances/:id/conversations/:conversationID/messages", workspaceHandler.Messages)
		v1.PATCH("/instances/:id/conversations/:conversationID/stage", workspaceHandler.UpdateStage)
		v1.POST("/instances/:id/conversations/:conversationID/tags", workspaceHandler.AddTag)
		v1.DELETE("/instances/:id/conversations/:conversationID/tags", workspaceHandler.RemoveTag)

		// 联系人
		v1.GET("/instances/:id/contacts", workspaceHandler.Contacts)
		v1.PATCH("/instances/:id/contacts/:contactID", workspaceHandler.UpdateContact)

		// 座席
		v1.GET("/instances/:id/agents", workspaceHandler.Agents)
		v1.PATCH("/instances/:id/agents/:agentID", workspaceHandler.UpdateAgentStatus)

		// 任务
		v1.GET("/instances/:id/tasks", taskHandler.List)
		v1.POST("/instances/:id/tasks", taskHandler.Create)
		v1.PATCH("/instances/:id/tasks/:taskID", taskHandler.UpdateCompletion)
		v1.DELETE("/instances/:id/tasks/:taskID", taskHandler.Delete)
		v1.GET("/instances/:id/conversations/:conversationID/tasks", taskHandler.ListForConversation)

		// 管道阶段
		v1.GET("/instances/:id/pipeline-stages", taskHandler.PipelineStages)
		v1.PUT("/instances/:id/pipeline-stages", taskHandler.UpdatePipelineStages)

		// 工作区
		v1.GET("/instances/:id/teams", workspaceHandler.Teams)
		v1.GET("/instances/:id/inboxes", workspaceHandler.Inboxes)
		v1.GET("/instances/:id/properties", workspaceHandler.Properties)
		v1.GET("/instances/:id/medical-services", workspaceHandler.MedicalServices)
		v1.GET("/instances/:id/ai-analysis", summaryHandler.AiAnalysis)

		// 汇总视图
		v1.GET("/summary/kpis", summaryHandler.Kpis)
		v1.GET("/summary/anomalies", summaryHandler.Anomalies)
		v1.GET("/summary/health", summaryHandler.HealthChecks)
		v1.GET("/summary/volume", summaryHandler.Volume)
		v1.GET("/summary/sentiment", summaryHandler.Sentiment)
	}
}

// ginLogger Gin日志中间件
func ginLogger(logger *zap.Logger, monitor *monitoring.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if monitor != nil {
			monitor.IncRequestTotal()
			if statusCode >= 400 {
				monitor.IncRequestFailed()
			} else {
				monitor.IncRequestSuccess()
			}
			monitor.RecordRequestLatency(latency)
		}

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
