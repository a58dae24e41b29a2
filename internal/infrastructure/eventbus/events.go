package eventbus

import "github.com/soporteops/soporteops/console/internal/domain/entity"

// 事件名常量：封闭集合，载荷形状按事件名约定且无版本化
const (
	EventMessageCreated      = "message_created"
	EventContactUpdated      = "contact_updated"
	EventConversationCreated = "conversation_created"
	EventConversationUpdated = "conversation_updated"
)

// Event 事件接口，具体载荷为下方的封闭变体集合
type Event interface {
	Name() string
}

// MessageCreated 外部平台推送：会话产生了新消息
type MessageCreated struct {
	InstanceID     int64          `json:"instanceId"`
	ConversationID int64          `json:"conversationId"`
	Message        entity.Message `json:"message"`
}

// Name 返回事件名
func (MessageCreated) Name() string { return EventMessageCreated }

// ContactUpdated 外部平台推送：联系人发生变更
type ContactUpdated struct {
	InstanceID int64          `json:"instanceId"`
	Contact    entity.Contact `json:"contact"`
}

// Name 返回事件名
func (ContactUpdated) Name() string { return EventContactUpdated }

// ConversationCreated 外部平台推送：新建会话
type ConversationCreated struct {
	InstanceID   int64               `json:"instanceId"`
	Conversation entity.Conversation `json:"conversation"`
}

// Name 返回事件名
func (ConversationCreated) Name() string { return EventConversationCreated }

// ConversationUpdated 外部平台推送：会话属性变更
type ConversationUpdated struct {
	InstanceID   int64               `json:"instanceId"`
	Conversation entity.Conversation `json:"conversation"`
}

// Name 返回事件名
func (ConversationUpdated) Name() string { return EventConversationUpdated }
