package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
)

// SignatureHeader 平台回调携带的 HMAC-SHA256 签名（body 的十六进制摘要）
const SignatureHeader = "X-Chatwoot-Signature"

// WebhookHandler 入站 webhook：解析平台载荷并发布为类型化事件
//
// 上游保证至多一次投递，这里不做去重。未知事件名返回 200 并计入
// 丢弃计数，避免平台反复重试。
type WebhookHandler struct {
	instances *usecase.InstanceUsecase
	bus       eventbus.Bus
	monitor   *monitoring.Monitor
	logger    *zap.Logger

	verifySignature func() bool
}

// NewWebhookHandler 创建 webhook 处理器。verifySignature 每次请求时求值，
// 支持配置热更新开关
func NewWebhookHandler(instances *usecase.InstanceUsecase, bus eventbus.Bus, monitor *monitoring.Monitor, verifySignature func() bool, logger *zap.Logger) *WebhookHandler {
	if verifySignature == nil {
		verifySignature = func() bool { return true }
	}
	return &WebhookHandler{
		instances:       instances,
		bus:             bus,
		monitor:         monitor,
		verifySignature: verifySignature,
		logger:          logger,
	}
}

// webhookPayload 平台载荷。event 决定哪些字段有效
type webhookPayload struct {
	Event          string               `json:"event"`
	ConversationID int64                `json:"conversationId"`
	Message        *entity.Message      `json:"message"`
	Contact        *entity.Contact      `json:"contact"`
	Conversation   *entity.Conversation `json:"conversation"`
}

// Receive POST /webhooks/chatwoot/:id
func (h *WebhookHandler) Receive(c *gin.Context) {
	deliveryID := uuid.NewString()
	log := h.logger.With(zap.String("delivery_id", deliveryID))

	instID, ok := pathID(c, "id")
	if !ok {
		return
	}
	inst, err := h.instances.Get(c.Request.Context(), instID)
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable body"})
		return
	}

	if h.verifySignature() && inst.WebhookSecret != "" {
		if !validSignature(body, c.GetHeader(SignatureHeader), inst.WebhookSecret) {
			h.monitor.IncEventBadSignature()
			log.Warn("Webhook signature rejected", zap.Int64("instance_id", instID))
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid signature"})
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed payload"})
		return
	}

	h.monitor.IncEventReceived()

	event, ok := h.toEvent(instID, payload)
	if !ok {
		// 未知事件：确认收到但不做任何处理
		h.monitor.IncEventDropped()
		log.Debug("Webhook event ignored",
			zap.Int64("instance_id", instID),
			zap.String("event", payload.Event))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	h.bus.Publish(c.Request.Context(), event)
	log.Debug("Webhook event published",
		zap.Int64("instance_id", instID),
		zap.String("event", payload.Event))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// toEvent 将载荷转为类型化事件，载荷残缺或事件名未知时返回 false
func (h *WebhookHandler) toEvent(instID int64, p webhookPayload) (eventbus.Event, bool) {
	switch p.Event {
	case eventbus.EventMessageCreated:
		if p.Message == nil || p.ConversationID == 0 {
			return nil, false
		}
		return eventbus.MessageCreated{
			InstanceID:     instID,
			ConversationID: p.ConversationID,
			Message:        *p.Message,
		}, true
	case eventbus.EventContactUpdated:
		if p.Contact == nil {
			return nil, false
		}
		return eventbus.ContactUpdated{InstanceID: instID, Contact: *p.Contact}, true
	case eventbus.EventConversationCreated:
		if p.Conversation == nil {
			return nil, false
		}
		return eventbus.ConversationCreated{InstanceID: instID, Conversation: *p.Conversation}, true
	case eventbus.EventConversationUpdated:
		if p.Conversation == nil {
			return nil, false
		}
		return eventbus.ConversationUpdated{InstanceID: instID, Conversation: *p.Conversation}, true
	}
	return nil, false
}

// validSignature 常数时间比较 body 的 HMAC-SHA256 摘要
func validSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
