package remote

import (
	"context"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// ContactUpdate 联系人部分更新，nil 字段表示不修改
type ContactUpdate struct {
	Name                  *string   `json:"name,omitempty"`
	Tags                  *[]string `json:"tags,omitempty"`
	InterestedPropertyIDs *[]string `json:"interestedPropertyIds,omitempty"`
	MedicalHistoryIDs     *[]string `json:"medicalHistoryIds,omitempty"`
	AssociatedServiceIDs  *[]string `json:"associatedServiceIds,omitempty"`
	MunicipalCaseIDs      *[]string `json:"municipalCaseIds,omitempty"`
}

// TaskUpdate 任务部分更新（当前只有完成标记可改）
type TaskUpdate struct {
	IsCompleted *bool `json:"isCompleted,omitempty"`
}

// ConnectionResult 连接测试结果
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// API 远端访问层：对外部客服收件箱平台的类型化请求
//
// 每个实例范围的调用先做授权检查：实例凭证与已知实例不符时
// 返回 UNAUTHORIZED 且不产生任何变更。写操作以实体 id 为目标，
// 返回权威的新表示，调用方用其整体替换本地副本（服务端优先）。
// 读操作从不修改本地状态。本层不做重试，也不生成幂等键。
type API interface {
	// 连接测试（设置流程）
	TestConnection(ctx context.Context, inst entity.Instance) (ConnectionResult, error)

	// 会话
	ListConversations(ctx context.Context, inst entity.Instance) ([]entity.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Message, error)
	UpdateConversationStage(ctx context.Context, conversationID int64, newStageID string, inst entity.Instance) (entity.Conversation, error)
	AddConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error)
	RemoveConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error)

	// 联系人
	ListContacts(ctx context.Context, inst entity.Instance) ([]entity.Contact, error)
	UpdateContact(ctx context.Context, contactID int64, upd ContactUpdate, inst entity.Instance) (entity.Contact, error)

	// 座席
	ListAgents(ctx context.Context, inst entity.Instance) ([]entity.Agent, error)
	UpdateAgentStatus(ctx context.Context, agentID int64, isActive bool, inst entity.Instance) (entity.Agent, error)

	// 任务
	ListTasks(ctx context.Context, inst entity.Instance) ([]entity.Task, error)
	ListConversationTasks(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Task, error)
	CreateTask(ctx context.Context, task entity.Task, inst entity.Instance) (entity.Task, error)
	UpdateTask(ctx context.Context, taskID int64, upd TaskUpdate, inst entity.Instance) (entity.Task, error)
	DeleteTask(ctx context.Context, taskID int64, inst entity.Instance) error

	// 管道阶段（按行业共享，不按实例）
	GetPipelineStages(ctx context.Context, industry entity.Industry) ([]entity.PipelineStageConfig, error)
	PutPipelineStages(ctx context.Context, industry entity.Industry, stages []entity.PipelineStageConfig) ([]entity.PipelineStageConfig, error)

	// 工作区
	ListTeams(ctx context.Context, inst entity.Instance) ([]entity.Team, error)
	ListInboxes(ctx context.Context, inst entity.Instance) ([]entity.Inbox, error)

	// 行业数据
	ListProperties(ctx context.Context, inst entity.Instance) ([]entity.Property, error)
	ListMedicalServices(ctx context.Context, inst entity.Instance) ([]entity.MedicalService, error)

	// 分析（外部产出的整体报告，本层只透传）
	GetKpis(ctx context.Context, inst entity.Instance) (entity.Kpis, error)
	ListAnomalies(ctx context.Context, inst entity.Instance) ([]entity.Anomaly, error)
	ListHealthChecks(ctx context.Context, inst entity.Instance) ([]entity.HealthCheck, error)
	GetConversationVolume(ctx context.Context, inst entity.Instance, days int) ([]entity.TimeSeriesPoint, error)
	GetSentiment(ctx context.Context, inst entity.Instance) (entity.SentimentData, error)
	GetAiAnalysis(ctx context.Context, inst entity.Instance) (entity.AiAnalysisReport, error)
}
