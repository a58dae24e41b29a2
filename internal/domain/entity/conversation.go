package entity

import "time"

// ConversationStatus 会话生命周期状态
type ConversationStatus string

const (
	ConversationOpen     ConversationStatus = "open"
	ConversationResolved ConversationStatus = "resolved"
	ConversationPending  ConversationStatus = "pending"
)

// ContactRef 会话内嵌的联系人引用
type ContactRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// Conversation 客服会话，归属于唯一的实例、收件箱、文件夹与联系人
// PipelineStage 必须引用当前行业阶段配置中存在的阶段 id
type Conversation struct {
	ID              int64              `json:"id"`
	Contact         ContactRef         `json:"contact"`
	LastMessage     string             `json:"lastMessage"`
	Status          ConversationStatus `json:"status"`
	LastActivityAt  time.Time          `json:"lastActivityAt"`
	PipelineStage   string             `json:"pipelineStage"`
	Tags            []string           `json:"tags"`
	DealValue       float64            `json:"dealValue,omitempty"`
	AssignedAgentID int64              `json:"assignedAgentId,omitempty"`
	CustomFields    map[string]any     `json:"customFields,omitempty"`
	InboxID         int64              `json:"inboxId"`
	FolderID        int64              `json:"folderId"`
}

// Clone 深拷贝，用于快照与整值替换
func (c Conversation) Clone() Conversation {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	if c.CustomFields != nil {
		out.CustomFields = make(map[string]any, len(c.CustomFields))
		for k, v := range c.CustomFields {
			out.CustomFields[k] = v
		}
	}
	return out
}

// HasTag 判断标签是否已存在
func (c Conversation) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// WithTag 返回追加标签后的副本；重复标签为无操作（集合语义）
func (c Conversation) WithTag(tag string) Conversation {
	out := c.Clone()
	if !out.HasTag(tag) {
		out.Tags = append(out.Tags, tag)
	}
	return out
}

// WithoutTag 返回移除标签后的副本
func (c Conversation) WithoutTag(tag string) Conversation {
	out := c.Clone()
	tags := out.Tags[:0]
	for _, t := range out.Tags {
		if t != tag {
			tags = append(tags, t)
		}
	}
	out.Tags = tags
	return out
}
