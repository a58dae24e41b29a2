package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/domain/service"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// 乐观写路径。所有可预测的写都走 service.RunOptimistic：
// 先落预期值，远端回显覆盖，失败回滚快照。

func (c *Console) observeMutation(err error) {
	if c.monitor == nil {
		return
	}
	if err != nil {
		c.monitor.IncMutationReverted()
	} else {
		c.monitor.IncMutationApplied()
	}
}

// UpdateConversationStage 移动会话到新阶段
// 目标阶段与当前相同时为完全无操作：不写缓存、不调远端、不发事件
func (c *Console) UpdateConversationStage(ctx context.Context, inst *entity.Instance, conversationID int64, stageID string) (entity.Conversation, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Conversation{}, err
	}
	if stageID == "" {
		return entity.Conversation{}, errors.NewInvalidInputError(entity.ErrUnknownStage.Error())
	}

	snapshot, ok := c.store.ConversationByID(in.ID, conversationID)
	if !ok {
		return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
	}
	if snapshot.PipelineStage == stageID {
		return snapshot, nil
	}

	guess := snapshot.Clone()
	guess.PipelineStage = stageID

	echo, err := service.RunOptimistic(ctx, c.logger, service.Mutation[entity.Conversation]{
		Snapshot: snapshot,
		Guess:    guess,
		Apply:    func(v entity.Conversation) { c.store.ReplaceConversation(in.ID, v) },
		Call: func(ctx context.Context) (entity.Conversation, error) {
			out, err := c.remote.UpdateConversationStage(ctx, conversationID, stageID, in)
			c.observeRemote(err)
			return out, err
		},
	})
	c.observeMutation(err)
	if err != nil {
		c.logger.Warn("Stage change reverted",
			zap.Int64("conversation_id", conversationID),
			zap.String("stage_id", stageID),
			zap.Error(err))
		return entity.Conversation{}, err
	}
	return echo, nil
}

// AddConversationTag 为会话追加标签（集合语义）
func (c *Console) AddConversationTag(ctx context.Context, inst *entity.Instance, conversationID int64, tag string) (entity.Conversation, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Conversation{}, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return entity.Conversation{}, errors.NewInvalidInputError(entity.ErrEmptyTag.Error())
	}

	snapshot, ok := c.store.ConversationByID(in.ID, conversationID)
	if !ok {
		return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
	}
	if snapshot.HasTag(tag) {
		return snapshot, nil
	}

	echo, err := service.RunOptimistic(ctx, c.logger, service.Mutation[entity.Conversation]{
		Snapshot: snapshot,
		Guess:    snapshot.WithTag(tag),
		Apply:    func(v entity.Conversation) { c.store.ReplaceConversation(in.ID, v) },
		Call: func(ctx context.Context) (entity.Conversation, error) {
			out, err := c.remote.AddConversationTag(ctx, conversationID, tag, in)
			c.observeRemote(err)
			return out, err
		},
	})
	c.observeMutation(err)
	return echo, err
}

// RemoveConversationTag 移除会话标签
func (c *Console) RemoveConversationTag(ctx context.Context, inst *entity.Instance, conversationID int64, tag string) (entity.Conversation, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Conversation{}, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return entity.Conversation{}, errors.NewInvalidInputError(entity.ErrEmptyTag.Error())
	}

	snapshot, ok := c.store.ConversationByID(in.ID, conversationID)
	if !ok {
		return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
	}

	echo, err := service.RunOptimistic(ctx, c.logger, service.Mutation[entity.Conversation]{
		Snapshot: snapshot,
		Guess:    snapshot.WithoutTag(tag),
		Apply:    func(v entity.Conversation) { c.store.ReplaceConversation(in.ID, v) },
		Call: func(ctx context.Context) (entity.Conversation, error) {
			out, err := c.remote.RemoveConversationTag(ctx, conversationID, tag, in)
			c.observeRemote(err)
			return out, err
		},
	})
	c.observeMutation(err)
	return echo, err
}

// SetAgentStatus 切换座席启用状态
func (c *Console) SetAgentStatus(ctx context.Context, inst *entity.Instance, agentID int64, isActive bool) (entity.Agent, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Agent{}, err
	}

	agents, err := c.store.Agents(ctx, in)
	if err != nil {
		c.observeRemote(err)
		return entity.Agent{}, err
	}
	var snapshot entity.Agent
	found := false
	for _, a := range agents {
		if a.ID == agentID {
			snapshot = a
			found = true
			break
		}
	}
	if !found {
		return entity.Agent{}, errors.NewNotFoundError("agent not found")
	}

	guess := snapshot
	guess.IsActive = isActive

	echo, err := service.RunOptimistic(ctx, c.logger, service.Mutation[entity.Agent]{
		Snapshot: snapshot,
		Guess:    guess,
		Apply:    func(v entity.Agent) { c.store.ReplaceAgent(in.ID, v) },
		Call: func(ctx context.Context) (entity.Agent, error) {
			out, err := c.remote.UpdateAgentStatus(ctx, agentID, isActive, in)
			c.observeRemote(err)
			return out, err
		},
	})
	c.observeMutation(err)
	return echo, err
}

// CreateTask 创建任务（远端分配 id，成功后按到期时间插入缓存）
func (c *Console) CreateTask(ctx context.Context, inst *entity.Instance, task entity.Task) (entity.Task, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Task{}, err
	}
	if strings.TrimSpace(task.Content) == "" {
		return entity.Task{}, errors.NewInvalidInputError(entity.ErrEmptyContent.Error())
	}
	if task.ConversationID == 0 {
		return entity.Task{}, errors.NewInvalidInputError(entity.ErrInvalidConversationID.Error())
	}

	created, err := c.remote.CreateTask(ctx, task, in)
	c.observeRemote(err)
	if err != nil {
		return entity.Task{}, err
	}
	c.store.InsertTask(in.ID, created)
	return created, nil
}

// SetTaskCompletion 切换任务完成状态
//
// 完成一个带重复周期的任务后远端会派生后继任务；此时丢弃任务缓存，
// 下一次读取会连同后继一起拉回来。
func (c *Console) SetTaskCompletion(ctx context.Context, inst *entity.Instance, taskID int64, completed bool) (entity.Task, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Task{}, err
	}

	snapshot, ok := c.store.TaskByID(in.ID, taskID)
	if !ok {
		return entity.Task{}, errors.NewNotFoundError("task not found")
	}

	guess := snapshot
	guess.IsCompleted = completed

	echo, err := service.RunOptimistic(ctx, c.logger, service.Mutation[entity.Task]{
		Snapshot: snapshot,
		Guess:    guess,
		Apply:    func(v entity.Task) { c.store.ReplaceTask(in.ID, v) },
		Call: func(ctx context.Context) (entity.Task, error) {
			out, err := c.remote.UpdateTask(ctx, taskID, remote.TaskUpdate{IsCompleted: &completed}, in)
			c.observeRemote(err)
			return out, err
		},
	})
	c.observeMutation(err)
	if err != nil {
		return entity.Task{}, err
	}

	if echo.IsCompleted && !snapshot.IsCompleted && echo.Recurrence != "" {
		c.store.InvalidateTasks(in.ID)
	}
	return echo, nil
}

// DeleteTask 删除任务
func (c *Console) DeleteTask(ctx context.Context, inst *entity.Instance, taskID int64) error {
	in, err := c.requireInstance(inst)
	if err != nil {
		return err
	}
	if taskID <= 0 {
		return errors.NewInvalidInputError(entity.ErrInvalidTaskID.Error())
	}

	err = c.remote.DeleteTask(ctx, taskID, in)
	c.observeRemote(err)
	if err != nil {
		return err
	}
	c.store.RemoveTask(in.ID, taskID)
	return nil
}

// UpdateContact 部分更新联系人（远端回显落缓存）
func (c *Console) UpdateContact(ctx context.Context, inst *entity.Instance, contactID int64, upd remote.ContactUpdate) (entity.Contact, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return entity.Contact{}, err
	}

	echo, err := c.remote.UpdateContact(ctx, contactID, upd, in)
	c.observeRemote(err)
	if err != nil {
		return entity.Contact{}, err
	}
	c.store.UpsertContact(in.ID, echo)
	return echo, nil
}

// UpdatePipelineStages 整体替换实例所属行业的阶段配置
//
// 拒绝重复的阶段 id；拒绝删除仍被已加载会话引用的阶段（INVALID_INPUT）。
func (c *Console) UpdatePipelineStages(ctx context.Context, inst *entity.Instance, stages []entity.PipelineStageConfig) ([]entity.PipelineStageConfig, error) {
	in, err := c.requireInstance(inst)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, errors.NewInvalidInputError("pipeline must have at least one stage")
	}

	next := entity.StageIDSet(stages)
	if len(next) != len(stages) {
		return nil, errors.NewInvalidInputError(entity.ErrDuplicateStage.Error())
	}

	current, err := c.store.Stages(ctx, in.Industry)
	if err != nil {
		c.observeRemote(err)
		return nil, err
	}
	for _, stage := range current {
		if _, kept := next[stage.ID]; kept {
			continue
		}
		if c.store.StageInUse(in.ID, stage.ID) {
			c.logger.Warn("Rejected stage removal with live references",
				zap.String("stage_id", stage.ID),
				zap.Int64("instance_id", in.ID))
			return nil, errors.NewInvalidInputError(entity.ErrStageInUse.Error())
		}
	}

	echo, err := c.remote.PutPipelineStages(ctx, in.Industry, stages)
	c.observeRemote(err)
	if err != nil {
		return nil, err
	}
	c.store.ReplaceStages(in.Industry, echo)
	return echo, nil
}
