package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// InstanceModel 数据库实例模型
type InstanceModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;size:128;not null"`
	Region    string `gorm:"size:64"`
	BaseURL   string `gorm:"size:255;not null"`
	APIKey    string `gorm:"size:255;not null"`
	AccountID int64  `gorm:"not null"`
	Industry  string `gorm:"size:32;not null"`

	AIProvider string `gorm:"size:32"`
	AIAPIKey   string `gorm:"size:255"`

	MetaAppID             string `gorm:"size:64"`
	MetaBusinessAccountID string `gorm:"size:64"`
	MetaToken             string `gorm:"size:512"`
	MetaInboxID           int64

	WebhookSecret string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名
func (InstanceModel) TableName() string {
	return "instances"
}

// ToEntity 转换为领域实体
func (m *InstanceModel) ToEntity() *entity.Instance {
	return &entity.Instance{
		ID:                    m.ID,
		Name:                  m.Name,
		Region:                m.Region,
		BaseURL:               m.BaseURL,
		APIKey:                m.APIKey,
		AccountID:             m.AccountID,
		Industry:              entity.Industry(m.Industry),
		AIProvider:            entity.AiProvider(m.AIProvider),
		AIAPIKey:              m.AIAPIKey,
		MetaAppID:             m.MetaAppID,
		MetaBusinessAccountID: m.MetaBusinessAccountID,
		MetaToken:             m.MetaToken,
		MetaInboxID:           m.MetaInboxID,
		WebhookSecret:         m.WebhookSecret,
	}
}

// FromEntity 从领域实体构建模型
func FromEntity(inst *entity.Instance) *InstanceModel {
	return &InstanceModel{
		ID:                    inst.ID,
		Name:                  inst.Name,
		Region:                inst.Region,
		BaseURL:               inst.BaseURL,
		APIKey:                inst.APIKey,
		AccountID:             inst.AccountID,
		Industry:              string(inst.Industry),
		AIProvider:            string(inst.AIProvider),
		AIAPIKey:              inst.AIAPIKey,
		MetaAppID:             inst.MetaAppID,
		MetaBusinessAccountID: inst.MetaBusinessAccountID,
		MetaToken:             inst.MetaToken,
		MetaInboxID:           inst.MetaInboxID,
		WebhookSecret:         inst.WebhookSecret,
	}
}
