package remote

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/domain/repository"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// MemoryAPI 内存实现的远端平台（开发/测试用，替代真实外部系统）
//
// 每个实例的数据在首次访问时按实例 id 做种子确定性生成，之后缓存在
// 进程内。所有返回值为深拷贝，模拟真实平台的序列化边界：调用方拿到
// 的永远不是内部存储的别名。
type MemoryAPI struct {
	mu        sync.Mutex
	instances repository.InstanceRepository
	catalog   Catalog
	logger    *zap.Logger
	latency   time.Duration

	conversations map[int64][]entity.Conversation // instanceID → 会话
	messages      map[int64][]entity.Message      // conversationID → 消息
	tasks         map[int64][]entity.Task
	agents        map[int64][]entity.Agent
	contacts      map[int64][]entity.Contact
	teams         map[int64][]entity.Team
	inboxes       map[int64][]entity.Inbox
	properties    map[int64][]entity.Property
	medServices   map[int64][]entity.MedicalService
}

var _ API = (*MemoryAPI)(nil)

// NewMemoryAPI 创建内存远端
func NewMemoryAPI(instances repository.InstanceRepository, catalog Catalog, logger *zap.Logger) *MemoryAPI {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &MemoryAPI{
		instances:     instances,
		catalog:       catalog,
		logger:        logger,
		conversations: make(map[int64][]entity.Conversation),
		messages:      make(map[int64][]entity.Message),
		tasks:         make(map[int64][]entity.Task),
		agents:        make(map[int64][]entity.Agent),
		contacts:      make(map[int64][]entity.Contact),
		teams:         make(map[int64][]entity.Team),
		inboxes:       make(map[int64][]entity.Inbox),
		properties:    make(map[int64][]entity.Property),
		medServices:   make(map[int64][]entity.MedicalService),
	}
}

// WithLatency 设置模拟调用延迟
func (m *MemoryAPI) WithLatency(d time.Duration) *MemoryAPI {
	m.latency = d
	return m
}

// sleep 模拟网络延迟，尊重 ctx 取消
func (m *MemoryAPI) sleep(ctx context.Context) error {
	if m.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.latency):
		return nil
	case <-ctx.Done():
		return errors.NewRemoteFailureError("request cancelled", ctx.Err())
	}
}

// checkAuth 授权检查：凭证必须与已知实例一致，不一致则不做任何变更
func (m *MemoryAPI) checkAuth(ctx context.Context, inst entity.Instance) error {
	known, err := m.instances.FindByID(ctx, inst.ID)
	if err != nil {
		return errors.NewUnauthorizedError("unknown instance")
	}
	if !known.SameCredentials(inst) {
		return errors.NewUnauthorizedError("instance credentials mismatch")
	}
	return nil
}

// PurgeInstance 清除实例的全部生成数据（实例删除级联）
func (m *MemoryAPI) PurgeInstance(instanceID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conv := range m.conversations[instanceID] {
		delete(m.messages, conv.ID)
	}
	delete(m.conversations, instanceID)
	delete(m.tasks, instanceID)
	delete(m.agents, instanceID)
	delete(m.contacts, instanceID)
	delete(m.teams, instanceID)
	delete(m.inboxes, instanceID)
	delete(m.properties, instanceID)
	delete(m.medServices, instanceID)

	m.logger.Info("Purged instance data", zap.Int64("instance_id", instanceID))
}

// TestConnection 连接测试（不要求实例已注册）
func (m *MemoryAPI) TestConnection(ctx context.Context, inst entity.Instance) (ConnectionResult, error) {
	if err := m.sleep(ctx); err != nil {
		return ConnectionResult{}, err
	}
	if strings.Contains(inst.APIKey, "fail") {
		return ConnectionResult{Success: false, Message: "La API Key es inválida o no tiene permisos."}, nil
	}
	if !strings.HasPrefix(inst.BaseURL, "https://") {
		return ConnectionResult{Success: false, Message: "La URL debe empezar con https://"}, nil
	}
	return ConnectionResult{Success: true, Message: "Conexión exitosa."}, nil
}

// ListConversations 列出实例的全部会话
func (m *MemoryAPI) ListConversations(ctx context.Context, inst entity.Instance) ([]entity.Conversation, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return cloneConversations(m.conversations[inst.ID]), nil
}

// ListMessages 列出会话消息（创建时间升序）
func (m *MemoryAPI) ListMessages(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Message, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return append([]entity.Message(nil), m.messages[conversationID]...), nil
}

// UpdateConversationStage 更新会话管道阶段并刷新活动时间
func (m *MemoryAPI) UpdateConversationStage(ctx context.Context, conversationID int64, newStageID string, inst entity.Instance) (entity.Conversation, error) {
	return m.mutateConversation(ctx, conversationID, inst, func(c *entity.Conversation) {
		c.PipelineStage = newStageID
		c.LastActivityAt = time.Now()
	})
}

// AddConversationTag 追加标签（集合语义，重复为无操作）
func (m *MemoryAPI) AddConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error) {
	return m.mutateConversation(ctx, conversationID, inst, func(c *entity.Conversation) {
		*c = c.WithTag(tag)
	})
}

// RemoveConversationTag 移除标签
func (m *MemoryAPI) RemoveConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error) {
	return m.mutateConversation(ctx, conversationID, inst, func(c *entity.Conversation) {
		*c = c.WithoutTag(tag)
	})
}

// mutateConversation 会话写操作的公共路径：授权 → 定位 → 变更 → 返回权威副本
func (m *MemoryAPI) mutateConversation(ctx context.Context, conversationID int64, inst entity.Instance, apply func(*entity.Conversation)) (entity.Conversation, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.Conversation{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.Conversation{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)

	convs := m.conversations[inst.ID]
	for i := range convs {
		if convs[i].ID == conversationID {
			apply(&convs[i])
			return convs[i].Clone(), nil
		}
	}
	return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
}

// ListContacts 列出联系人：首次调用时从会话派生（按联系人 id 去重、
// 标签并集），之后作为独立集合演化，不再重新派生
func (m *MemoryAPI) ListContacts(ctx context.Context, inst entity.Instance) ([]entity.Contact, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	m.ensureContacts(inst.ID)
	return cloneContacts(m.contacts[inst.ID]), nil
}

// UpdateContact 部分更新联系人
func (m *MemoryAPI) UpdateContact(ctx context.Context, contactID int64, upd ContactUpdate, inst entity.Instance) (entity.Contact, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.Contact{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.Contact{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	m.ensureContacts(inst.ID)

	contacts := m.contacts[inst.ID]
	for i := range contacts {
		if contacts[i].ID != contactID {
			continue
		}
		if upd.Name != nil {
			contacts[i].Name = *upd.Name
		}
		if upd.Tags != nil {
			contacts[i].Tags = append([]string(nil), (*upd.Tags)...)
		}
		if upd.InterestedPropertyIDs != nil {
			contacts[i].InterestedPropertyIDs = append([]string(nil), (*upd.InterestedPropertyIDs)...)
		}
		if upd.MedicalHistoryIDs != nil {
			contacts[i].MedicalHistoryIDs = append([]string(nil), (*upd.MedicalHistoryIDs)...)
		}
		if upd.AssociatedServiceIDs != nil {
			contacts[i].AssociatedServiceIDs = append([]string(nil), (*upd.AssociatedServiceIDs)...)
		}
		if upd.MunicipalCaseIDs != nil {
			contacts[i].MunicipalCaseIDs = append([]string(nil), (*upd.MunicipalCaseIDs)...)
		}
		return contacts[i].Clone(), nil
	}
	return entity.Contact{}, errors.NewNotFoundError("contact not found")
}

// ListAgents 列出座席
func (m *MemoryAPI) ListAgents(ctx context.Context, inst entity.Instance) ([]entity.Agent, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return append([]entity.Agent(nil), m.agents[inst.ID]...), nil
}

// UpdateAgentStatus 切换座席启用状态
func (m *MemoryAPI) UpdateAgentStatus(ctx context.Context, agentID int64, isActive bool, inst entity.Instance) (entity.Agent, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.Agent{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.Agent{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)

	agents := m.agents[inst.ID]
	for i := range agents {
		if agents[i].ID == agentID {
			agents[i].IsActive = isActive
			return agents[i], nil
		}
	}
	return entity.Agent{}, errors.NewNotFoundError("agent not found")
}

// ListTasks 列出实例的全部任务
func (m *MemoryAPI) ListTasks(ctx context.Context, inst entity.Instance) ([]entity.Task, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return append([]entity.Task(nil), m.tasks[inst.ID]...), nil
}

// ListConversationTasks 列出单个会话的任务
func (m *MemoryAPI) ListConversationTasks(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Task, error) {
	all, err := m.ListTasks(ctx, inst)
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

// CreateTask 创建任务，id 由远端分配
func (m *MemoryAPI) CreateTask(ctx context.Context, task entity.Task, inst entity.Instance) (entity.Task, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.Task{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.Task{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)

	task.ID = m.nextTaskIDLocked(inst.ID)
	m.tasks[inst.ID] = append(m.tasks[inst.ID], task)
	return task, nil
}

// UpdateTask 更新任务完成标记
//
// 完成一个带重复周期的任务会原子派生恰好一个后继任务：内容/优先级/
// 类型相同、到期时间按周期推进、未完成。前驱保持已完成，历史保留。
func (m *MemoryAPI) UpdateTask(ctx context.Context, taskID int64, upd TaskUpdate, inst entity.Instance) (entity.Task, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return entity.Task{}, err
	}
	if err := m.sleep(ctx); err != nil {
		return entity.Task{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)

	tasks := m.tasks[inst.ID]
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		wasCompleted := tasks[i].IsCompleted
		if upd.IsCompleted != nil {
			tasks[i].IsCompleted = *upd.IsCompleted
		}
		updated := tasks[i]

		if updated.IsCompleted && !wasCompleted && updated.Recurrence != "" {
			successor := updated.Successor(m.nextTaskIDLocked(inst.ID))
			m.tasks[inst.ID] = append(m.tasks[inst.ID], successor)
		}
		return updated, nil
	}
	return entity.Task{}, errors.NewNotFoundError("task not found")
}

// DeleteTask 删除任务
func (m *MemoryAPI) DeleteTask(ctx context.Context, taskID int64, inst entity.Instance) error {
	if err := m.checkAuth(ctx, inst); err != nil {
		return err
	}
	if err := m.sleep(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)

	tasks := m.tasks[inst.ID]
	for i := range tasks {
		if tasks[i].ID == taskID {
			m.tasks[inst.ID] = append(tasks[:i:i], tasks[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("task not found")
}

// nextTaskIDLocked 分配任务 id（调用方持锁）
func (m *MemoryAPI) nextTaskIDLocked(instanceID int64) int64 {
	var max int64
	for _, t := range m.tasks[instanceID] {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// GetPipelineStages 按行业返回阶段配置（展示顺序升序）
func (m *MemoryAPI) GetPipelineStages(ctx context.Context, industry entity.Industry) ([]entity.PipelineStageConfig, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.catalog[industry]
	if !ok {
		cfg = m.catalog[entity.IndustryServices]
	}
	stages := append([]entity.PipelineStageConfig(nil), cfg.PipelineStages...)
	entity.SortStages(stages)
	return stages, nil
}

// PutPipelineStages 整体替换行业的阶段配置
func (m *MemoryAPI) PutPipelineStages(ctx context.Context, industry entity.Industry, stages []entity.PipelineStageConfig) ([]entity.PipelineStageConfig, error) {
	if !entity.ValidIndustry(industry) {
		return nil, errors.NewInvalidInputError("unknown industry")
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.catalog[industry]
	cfg.PipelineStages = append([]entity.PipelineStageConfig(nil), stages...)
	m.catalog[industry] = cfg

	out := append([]entity.PipelineStageConfig(nil), stages...)
	entity.SortStages(out)
	return out, nil
}

// ListTeams 列出团队
func (m *MemoryAPI) ListTeams(ctx context.Context, inst entity.Instance) ([]entity.Team, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return append([]entity.Team(nil), m.teams[inst.ID]...), nil
}

// ListInboxes 列出收件箱与文件夹
func (m *MemoryAPI) ListInboxes(ctx context.Context, inst entity.Instance) ([]entity.Inbox, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return append([]entity.Inbox(nil), m.inboxes[inst.ID]...), nil
}

// ListProperties 列出房产（real_estate）
func (m *MemoryAPI) ListProperties(ctx context.Context, inst entity.Instance) ([]entity.Property, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSeeded(inst)
	return append([]entity.Property(nil), m.properties[inst.ID]...), nil
}

// ListMedicalServices 列出医疗服务（health）
func (m *MemoryAPI) ListMedicalServices(ctx context.Context, inst entity.Instance) ([]entity.MedicalService, error) {
	if err := m.checkAuth(ctx, inst); err != nil {
		return nil, err
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.medServices[inst.ID]; !ok {
		m.medServices[inst.ID] = []entity.MedicalService{
			{ID: "ms_1", Name: "Consulta General", Description: "Revisión médica general."},
			{ID: "ms_2", Name: "Examen de Sangre", Description: "Análisis de sangre completo."},
			{ID: "ms_3", Name: "Radiografía de Tórax", Description: "Imagen de rayos X del tórax."},
			{ID: "ms_4", Name: "Control Dental", Description: "Limpieza y revisión dental."},
			{ID: "ms_5", Name: "Consulta Pediátrica", Description: "Atención médica para niños."},
		}
	}
	return append([]entity.MedicalService(nil), m.medServices[inst.ID]...), nil
}

// 深拷贝辅助

func cloneConversations(in []entity.Conversation) []entity.Conversation {
	out := make([]entity.Conversation, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func cloneContacts(in []entity.Contact) []entity.Contact {
	out := make([]entity.Contact, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
