package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
	"github.com/soporteops/soporteops/console/internal/infrastructure/store"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// Console 视图组合门面
//
// 所有读操作返回缓存快照，所有写操作走乐观事务。每个方法都要求一个
// 已解析的实例，实例为 nil 时直接返回 INVALID_INPUT，绝不发起远端调用。
type Console struct {
	store   *store.Store
	remote  remote.API
	bus     eventbus.Bus
	monitor *monitoring.Monitor
	logger  *zap.Logger
}

// NewConsole 创建门面
func NewConsole(st *store.Store, api remote.API, bus eventbus.Bus, monitor *monitoring.Monitor, logger *zap.Logger) *Console {
	return &Console{
		store:   st,
		remote:  api,
		bus:     bus,
		monitor: monitor,
		logger:  logger,
	}
}

// requireInstance 实例前置检查
func (c *Console) requireInstance(inst *entity.Instance) (entity.Instance, error) {
	if inst == nil || inst.ID == 0 {
		return entity.Instance{}, errors.NewInvalidInputError("no instance selected")
	}
	return *inst, nil
}

// observeRemote 远端调用计数
func (c *Console) observeRemote(err error) {
	if c.monitor == nil {
		return
	}
	c.monitor.IncRemoteCall()
	if err != nil {
		c.monitor.IncRemoteCallFailed()
	}
}

// Subscribe 订阅推送事件（透传）
func (c *Console) Subscribe(eventName string, handler eventbus.Handler) func() {
	return c.bus.Subscribe(eventName, handler)
}

// === 读路径（缓存快照，首次访问惰性拉取）===

// Conversations 会话列表（LastActivityAt 降序）
func (c *Console) Conversations(ctx context.Context, inst *entity.Instance) ([]entity.Conversation, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Conversations(ctx, in)
	c.observeRemote(err)
	return out, err
}

// Messages 会话消息（创建时间升序）
func (c *Console) Messages(ctx context.Context, inst *entity.Instance, conversationID int64) ([]entity.Message, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Messages(ctx, conversationID, in)
	c.observeRemote(err)
	return out, err
}

// OpenConversation 打开会话：注册打开标记并返回消息列表
// 打开中的会话会收到推送消息的实时追加
func (c *Console) OpenConversation(ctx context.Context, inst *entity.Instance, conversationID int64) ([]entity.Message, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	if _, ok := c.store.ConversationByID(in.ID, conversationID); !ok {
		// 列表未加载时先拉取，再确认会话存在
		if _, err := c.store.Conversations(ctx, in); err != nil {
			c.observeRemote(err)
			return nil, err
		}
		if _, ok := c.store.ConversationByID(in.ID, conversationID); !ok {
			return nil, errors.NewNotFoundError("conversation not found")
		}
	}
	c.store.SetOpenConversation(in.ID, conversationID)
	out, err := c.store.Messages(ctx, conversationID, in)
	c.observeRemote(err)
	return out, err
}

// CloseConversation 关闭当前打开的会话
func (c *Console) CloseConversation(inst *entity.Instance) error {
	in, err := c.requireInstance(inst)
	if err != nil {
		return err
	}
	c.store.ClearOpenConversation(in.ID)
	return nil
}

// Contacts 联系人投影
func (c *Console) Contacts(ctx context.Context, inst *entity.Instance) ([]entity.Contact, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Contacts(ctx, in)
	c.observeRemote(err)
	return out, err
}

// Agents 座席列表
func (c *Console) Agents(ctx context.Context, inst *entity.Instance) ([]entity.Agent, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Agents(ctx, in)
	c.observeRemote(err)
	return out, err
}

// Tasks 任务列表（DueDate 升序）
func (c *Console) Tasks(ctx context.Context, inst *entity.Instance) ([]entity.Task, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Tasks(ctx, in)
	c.observeRemote(err)
	return out, err
}

// ConversationTasks 单个会话的任务
func (c *Console) ConversationTasks(ctx context.Context, inst *entity.Instance, conversationID int64) ([]entity.Task, error) {
	all, err := c.Tasks(ctx, inst)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Task, 0)
	for _, t := range all {
		if t.ConversationID == conversationID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Teams 团队列表
func (c *Console) Teams(ctx context.Context, inst *entity.Instance) ([]entity.Team, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Teams(ctx, in)
	c.observeRemote(err)
	return out, err
}

// Inboxes 收件箱列表
func (c *Console) Inboxes(ctx context.Context, inst *entity.Instance) ([]entity.Inbox, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Inboxes(ctx, in)
	c.observeRemote(err)
	return out, err
}

// PipelineStages 实例所属行业的阶段配置（展示顺序升序）
func (c *Console) PipelineStages(ctx context.Context, inst *entity.Instance) ([]entity.PipelineStageConfig, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.store.Stages(ctx, in.Industry)
	c.observeRemote(err)
	return out, err
}

// === 行业数据与分析（远端直通，不缓存）===

// Properties 房产列表（real_estate）
func (c *Console) Properties(ctx context.Context, inst *entity.Instance) ([]entity.Property, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.remote.ListProperties(ctx, in)
	c.observeRemote(err)
	return out, err
}

// MedicalServices 医疗服务列表（health）
func (c *Console) MedicalServices(ctx context.Context, inst *entity.Instance) ([]entity.MedicalService, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.remote.ListMedicalServices(ctx, in)
	c.observeRemote(err)
	return out, err
}

// Kpis 汇总指标
func (c *Console) Kpis(ctx context.Context, inst *entity.Instance) (entity.Kpis, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Kpis{}, err
	}
	out, err := c.remote.GetKpis(ctx, in)
	c.observeRemote(err)
	return out, err
}

// Anomalies 指标异常列表
func (c *Console) Anomalies(ctx context.Context, inst *entity.Instance) ([]entity.Anomaly, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.remote.ListAnomalies(ctx, in)
	c.observeRemote(err)
	return out, err
}

// HealthChecks 平台健康检查
func (c *Console) HealthChecks(ctx context.Context, inst *entity.Instance) ([]entity.HealthCheck, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.remote.ListHealthChecks(ctx, in)
	c.observeRemote(err)
	return out, err
}

// ConversationVolume 会话量时间序列
func (c *Console) ConversationVolume(ctx context.Context, inst *entity.Instance, days int) ([]entity.TimeSeriesPoint, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	out, err := c.remote.GetConversationVolume(ctx, in, days)
	c.observeRemote(err)
	return out, err
}

// Sentiment 情感分布
func (c *Console) Sentiment(ctx context.Context, inst *entity.Instance) (entity.SentimentData, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.SentimentData{}, err
	}
	out, err := c.remote.GetSentiment(ctx, in)
	c.observeRemote(err)
	return out, err
}

// AiAnalysis AI 分析报告（整体透传）
func (c *Console) AiAnalysis(ctx context.Context, inst *entity.Instance) (entity.AiAnalysisReport, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.AiAnalysisReport{}, err
	}
	out, err := c.remote.GetAiAnalysis(ctx, in)
	c.observeRemote(err)
	return out, err
}
