package entity

import "time"

// SenderType 消息发送方类型
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAgent SenderType = "agent"
)

// Sender 消息发送方描述
type Sender struct {
	Type      SenderType `json:"type"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatarUrl"`
}

// Message 会话消息，创建后不可变，按创建时间升序排列
// IsInternal 区分内部备注与客户可见回复
type Message struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Sender     Sender    `json:"sender"`
	IsInternal bool      `json:"isInternal,omitempty"`
}
