package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
)

// Store 会话级实体缓存，按实例分片
//
// 每类资源首次访问时从远端惰性填充，之后一直缓存（无 TTL，无主动刷新），
// 变更只做整值替换。一个应用会话构造一个 Store，不使用包级全局状态。
//
// 远端调用在锁外执行：取数路径是 检查缓存 → 未命中则锁外拉取 → 二次
// 检查后写入，并发的首次访问可能重复拉取，后写的结果生效。
type Store struct {
	mu     sync.RWMutex
	remote remote.API
	logger *zap.Logger

	conversations map[int64][]entity.Conversation // instanceID → LastActivityAt 降序
	messages      map[int64][]entity.Message      // conversationID → 创建时间升序
	contacts      map[int64][]entity.Contact
	tasks         map[int64][]entity.Task // instanceID → DueDate 升序
	agents        map[int64][]entity.Agent
	teams         map[int64][]entity.Team
	inboxes       map[int64][]entity.Inbox
	stages        map[entity.Industry][]entity.PipelineStageConfig

	// 当前打开的会话（实例 → 会话 id，0 表示无）
	// 协调器只向打开中的会话追加推送消息
	open map[int64]int64
}

// NewStore 创建实体缓存
func NewStore(api remote.API, logger *zap.Logger) *Store {
	return &Store{
		remote:        api,
		logger:        logger,
		conversations: make(map[int64][]entity.Conversation),
		messages:      make(map[int64][]entity.Message),
		contacts:      make(map[int64][]entity.Contact),
		tasks:         make(map[int64][]entity.Task),
		agents:        make(map[int64][]entity.Agent),
		teams:         make(map[int64][]entity.Team),
		inboxes:       make(map[int64][]entity.Inbox),
		stages:        make(map[entity.Industry][]entity.PipelineStageConfig),
		open:          make(map[int64]int64),
	}
}

// === 会话 ===

// Conversations 返回实例的会话列表快照（LastActivityAt 降序）
func (s *Store) Conversations(ctx context.Context, inst entity.Instance) ([]entity.Conversation, error) {
	s.mu.RLock()
	cached, ok := s.conversations[inst.ID]
	if ok {
		out := cloneConversations(cached)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListConversations(ctx, inst)
	if err != nil {
		return nil, err
	}
	sortConversations(fetched)

	s.mu.Lock()
	if existing, ok := s.conversations[inst.ID]; ok {
		fetched = existing
	} else {
		s.conversations[inst.ID] = fetched
	}
	out := cloneConversations(fetched)
	s.mu.Unlock()
	return out, nil
}

// ConversationByID 返回单个会话的快照
func (s *Store) ConversationByID(instanceID, conversationID int64) (entity.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations[instanceID] {
		if c.ID == conversationID {
			return c.Clone(), true
		}
	}
	return entity.Conversation{}, false
}

// ReplaceConversation 按 id 整值替换，保持列表位置
// 目标不在缓存中时静默忽略（乐观回滚可能发生在缓存被清空后）
func (s *Store) ReplaceConversation(instanceID int64, conv entity.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := s.conversations[instanceID]
	for i := range convs {
		if convs[i].ID == conv.ID {
			convs[i] = conv.Clone()
			return
		}
	}
}

// UpsertConversation 按 id 替换或插入
func (s *Store) UpsertConversation(instanceID int64, conv entity.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs, loaded := s.conversations[instanceID]
	if !loaded {
		// 列表尚未加载：不建立半填充缓存，首次读取时整体拉取
		return
	}
	for i := range convs {
		if convs[i].ID == conv.ID {
			convs[i] = conv.Clone()
			return
		}
	}
	s.conversations[instanceID] = append(convs, conv.Clone())
}

// MoveConversationToFront 把会话移到列表头部（新活动置顶）
func (s *Store) MoveConversationToFront(instanceID, conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := s.conversations[instanceID]
	for i := range convs {
		if convs[i].ID == conversationID {
			if i > 0 {
				moved := convs[i]
				copy(convs[1:i+1], convs[0:i])
				convs[0] = moved
			}
			return
		}
	}
}

// StageInUse 判断已加载的会话中是否有引用该阶段的
func (s *Store) StageInUse(instanceID int64, stageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations[instanceID] {
		if c.PipelineStage == stageID {
			return true
		}
	}
	return false
}

// === 消息 ===

// Messages 返回会话的消息列表快照（创建时间升序）
func (s *Store) Messages(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Message, error) {
	s.mu.RLock()
	cached, ok := s.messages[conversationID]
	if ok {
		out := append([]entity.Message(nil), cached...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListMessages(ctx, conversationID, inst)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.messages[conversationID]; ok {
		fetched = existing
	} else {
		s.messages[conversationID] = fetched
	}
	out := append([]entity.Message(nil), fetched...)
	s.mu.Unlock()
	return out, nil
}

// AppendMessage 向已加载的消息列表追加一条消息
func (s *Store) AppendMessage(conversationID int64, msg entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, loaded := s.messages[conversationID]
	if !loaded {
		return
	}
	s.messages[conversationID] = append(msgs, msg)
}

// === 打开中的会话 ===

// SetOpenConversation 标记实例当前打开的会话
func (s *Store) SetOpenConversation(instanceID, conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[instanceID] = conversationID
}

// ClearOpenConversation 取消打开标记
func (s *Store) ClearOpenConversation(instanceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, instanceID)
}

// OpenConversation 返回实例当前打开的会话 id，0 表示无
func (s *Store) OpenConversation(instanceID int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open[instanceID]
}

// === 联系人 ===

// Contacts 返回实例的联系人快照
// 联系人在远端由会话派生一次，之后作为独立投影演化，不回写会话
func (s *Store) Contacts(ctx context.Context, inst entity.Instance) ([]entity.Contact, error) {
	s.mu.RLock()
	cached, ok := s.contacts[inst.ID]
	if ok {
		out := cloneContacts(cached)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListContacts(ctx, inst)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.contacts[inst.ID]; ok {
		fetched = existing
	} else {
		s.contacts[inst.ID] = fetched
	}
	out := cloneContacts(fetched)
	s.mu.Unlock()
	return out, nil
}

// ContactByID 返回单个联系人的快照
func (s *Store) ContactByID(instanceID, contactID int64) (entity.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts[instanceID] {
		if c.ID == contactID {
			return c.Clone(), true
		}
	}
	return entity.Contact{}, false
}

// UpsertContact 按 id 替换或插入（后写覆盖）
func (s *Store) UpsertContact(instanceID int64, contact entity.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts, loaded := s.contacts[instanceID]
	if !loaded {
		return
	}
	for i := range contacts {
		if contacts[i].ID == contact.ID {
			contacts[i] = contact.Clone()
			return
		}
	}
	s.contacts[instanceID] = append(contacts, contact.Clone())
}

// === 任务 ===

// Tasks 返回实例的任务快照（DueDate 升序）
func (s *Store) Tasks(ctx context.Context, inst entity.Instance) ([]entity.Task, error) {
	s.mu.RLock()
	cached, ok := s.tasks[inst.ID]
	if ok {
		out := append([]entity.Task(nil), cached...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListTasks(ctx, inst)
	if err != nil {
		return nil, err
	}
	sortTasks(fetched)

	s.mu.Lock()
	if existing, ok := s.tasks[inst.ID]; ok {
		fetched = existing
	} else {
		s.tasks[inst.ID] = fetched
	}
	out := append([]entity.Task(nil), fetched...)
	s.mu.Unlock()
	return out, nil
}

// TaskByID 返回单个任务的快照
func (s *Store) TaskByID(instanceID, taskID int64) (entity.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks[instanceID] {
		if t.ID == taskID {
			return t, true
		}
	}
	return entity.Task{}, false
}

// ReplaceTask 按 id 整值替换
func (s *Store) ReplaceTask(instanceID int64, task entity.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[instanceID]
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			return
		}
	}
}

// InsertTask 插入新任务并保持 DueDate 升序
func (s *Store) InsertTask(instanceID int64, task entity.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, loaded := s.tasks[instanceID]
	if !loaded {
		return
	}
	tasks = append(tasks, task)
	sortTasks(tasks)
	s.tasks[instanceID] = tasks
}

// RemoveTask 按 id 移除任务
func (s *Store) RemoveTask(instanceID, taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[instanceID]
	for i := range tasks {
		if tasks[i].ID == taskID {
			s.tasks[instanceID] = append(tasks[:i:i], tasks[i+1:]...)
			return
		}
	}
}

// InvalidateTasks 丢弃任务缓存，下次读取重新拉取
// 完成重复任务后远端会派生后继任务，整表重拉取最简单也最可靠
func (s *Store) InvalidateTasks(instanceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, instanceID)
}

// === 座席 / 团队 / 收件箱 ===

// Agents 返回实例的座席快照
func (s *Store) Agents(ctx context.Context, inst entity.Instance) ([]entity.Agent, error) {
	s.mu.RLock()
	cached, ok := s.agents[inst.ID]
	if ok {
		out := append([]entity.Agent(nil), cached...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListAgents(ctx, inst)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.agents[inst.ID]; ok {
		fetched = existing
	} else {
		s.agents[inst.ID] = fetched
	}
	out := append([]entity.Agent(nil), fetched...)
	s.mu.Unlock()
	return out, nil
}

// ReplaceAgent 按 id 整值替换
func (s *Store) ReplaceAgent(instanceID int64, agent entity.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := s.agents[instanceID]
	for i := range agents {
		if agents[i].ID == agent.ID {
			agents[i] = agent
			return
		}
	}
}

// Teams 返回实例的团队快照
func (s *Store) Teams(ctx context.Context, inst entity.Instance) ([]entity.Team, error) {
	s.mu.RLock()
	cached, ok := s.teams[inst.ID]
	if ok {
		out := append([]entity.Team(nil), cached...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListTeams(ctx, inst)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.teams[inst.ID]; ok {
		fetched = existing
	} else {
		s.teams[inst.ID] = fetched
	}
	out := append([]entity.Team(nil), fetched...)
	s.mu.Unlock()
	return out, nil
}

// Inboxes 返回实例的收件箱快照
func (s *Store) Inboxes(ctx context.Context, inst entity.Instance) ([]entity.Inbox, error) {
	s.mu.RLock()
	cached, ok := s.inboxes[inst.ID]
	if ok {
		out := append([]entity.Inbox(nil), cached...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.ListInboxes(ctx, inst)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.inboxes[inst.ID]; ok {
		fetched = existing
	} else {
		s.inboxes[inst.ID] = fetched
	}
	out := append([]entity.Inbox(nil), fetched...)
	s.mu.Unlock()
	return out, nil
}

// === 管道阶段 ===

// Stages 返回行业的阶段配置快照（展示顺序升序）
func (s *Store) Stages(ctx context.Context, industry entity.Industry) ([]entity.PipelineStageConfig, error) {
	s.mu.RLock()
	cached, ok := s.stages[industry]
	if ok {
		out := append([]entity.PipelineStageConfig(nil), cached...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	fetched, err := s.remote.GetPipelineStages(ctx, industry)
	if err != nil {
		return nil, err
	}
	entity.SortStages(fetched)

	s.mu.Lock()
	if existing, ok := s.stages[industry]; ok {
		fetched = existing
	} else {
		s.stages[industry] = fetched
	}
	out := append([]entity.PipelineStageConfig(nil), fetched...)
	s.mu.Unlock()
	return out, nil
}

// ReplaceStages 整体替换行业的阶段配置
func (s *Store) ReplaceStages(industry entity.Industry, stages []entity.PipelineStageConfig) {
	sorted := append([]entity.PipelineStageConfig(nil), stages...)
	entity.SortStages(sorted)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[industry] = sorted
}

// === 级联清理 ===

// PurgeInstance 清除实例的全部缓存（实例删除级联）
func (s *Store) PurgeInstance(instanceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.conversations[instanceID] {
		delete(s.messages, conv.ID)
	}
	delete(s.conversations, instanceID)
	delete(s.contacts, instanceID)
	delete(s.tasks, instanceID)
	delete(s.agents, instanceID)
	delete(s.teams, instanceID)
	delete(s.inboxes, instanceID)
	delete(s.open, instanceID)

	if s.logger != nil {
		s.logger.Info("Purged instance caches", zap.Int64("instance_id", instanceID))
	}
}

// === 排序与拷贝 ===

func sortConversations(convs []entity.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastActivityAt.After(convs[j].LastActivityAt)
	})
}

func sortTasks(tasks []entity.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}

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
