package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
	"github.com/soporteops/soporteops/console/internal/infrastructure/store"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// scriptedRemote serves canned data and fails on demand
type scriptedRemote struct {
	remote.API

	conversations []entity.Conversation
	tasks         []entity.Task
	agents        []entity.Agent
	stages        []entity.PipelineStageConfig

	failNext error // next write call returns this and clears it

	stageCalls  int
	tagCalls    int
	taskCalls   int
	agentCalls  int
	stagePuts   int
	lastStageID string
}

func (f *scriptedRemote) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *scriptedRemote) ListConversations(ctx context.Context, inst entity.Instance) ([]entity.Conversation, error) {
	out := make([]entity.Conversation, len(f.conversations))
	for i, c := range f.conversations {
		out[i] = c.Clone()
	}
	return out, nil
}

func (f *scriptedRemote) ListTasks(ctx context.Context, inst entity.Instance) ([]entity.Task, error) {
	return append([]entity.Task(nil), f.tasks...), nil
}

func (f *scriptedRemote) ListAgents(ctx context.Context, inst entity.Instance) ([]entity.Agent, error) {
	return append([]entity.Agent(nil), f.agents...), nil
}

func (f *scriptedRemote) GetPipelineStages(ctx context.Context, industry entity.Industry) ([]entity.PipelineStageConfig, error) {
	return append([]entity.PipelineStageConfig(nil), f.stages...), nil
}

func (f *scriptedRemote) UpdateConversationStage(ctx context.Context, conversationID int64, newStageID string, inst entity.Instance) (entity.Conversation, error) {
	f.stageCalls++
	f.lastStageID = newStageID
	if err := f.takeFailure(); err != nil {
		return entity.Conversation{}, err
	}
	for i := range f.conversations {
		if f.conversations[i].ID == conversationID {
			f.conversations[i].PipelineStage = newStageID
			f.conversations[i].LastActivityAt = time.Now()
			return f.conversations[i].Clone(), nil
		}
	}
	return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
}

func (f *scriptedRemote) AddConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error) {
	f.tagCalls++
	if err := f.takeFailure(); err != nil {
		return entity.Conversation{}, err
	}
	for i := range f.conversations {
		if f.conversations[i].ID == conversationID {
			f.conversations[i] = f.conversations[i].WithTag(tag)
			return f.conversations[i].Clone(), nil
		}
	}
	return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
}

func (f *scriptedRemote) RemoveConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error) {
	f.tagCalls++
	if err := f.takeFailure(); err != nil {
		return entity.Conversation{}, err
	}
	for i := range f.conversations {
		if f.conversations[i].ID == conversationID {
			f.conversations[i] = f.conversations[i].WithoutTag(tag)
			return f.conversations[i].Clone(), nil
		}
	}
	return entity.Conversation{}, errors.NewNotFoundError("conversation not found")
}

func (f *scriptedRemote) UpdateTask(ctx context.Context, taskID int64, upd remote.TaskUpdate, inst entity.Instance) (entity.Task, error) {
	f.taskCalls++
	if err := f.takeFailure(); err != nil {
		return entity.Task{}, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID != taskID {
			continue
		}
		was := f.tasks[i].IsCompleted
		if upd.IsCompleted != nil {
			f.tasks[i].IsCompleted = *upd.IsCompleted
		}
		updated := f.tasks[i]
		if updated.IsCompleted && !was && updated.Recurrence != "" {
			f.tasks = append(f.tasks, updated.Successor(int64(len(f.tasks)+1)))
		}
		return updated, nil
	}
	return entity.Task{}, errors.NewNotFoundError("task not found")
}

func (f *scriptedRemote) CreateTask(ctx context.Context, task entity.Task, inst entity.Instance) (entity.Task, error) {
	if err := f.takeFailure(); err != nil {
		return entity.Task{}, err
	}
	task.ID = int64(len(f.tasks) + 1)
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *scriptedRemote) DeleteTask(ctx context.Context, taskID int64, inst entity.Instance) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("task not found")
}

func (f *scriptedRemote) UpdateAgentStatus(ctx context.Context, agentID int64, isActive bool, inst entity.Instance) (entity.Agent, error) {
	f.agentCalls++
	if err := f.takeFailure(); err != nil {
		return entity.Agent{}, err
	}
	for i := range f.agents {
		if f.agents[i].ID == agentID {
			f.agents[i].IsActive = isActive
			return f.agents[i], nil
		}
	}
	return entity.Agent{}, errors.NewNotFoundError("agent not found")
}

func (f *scriptedRemote) PutPipelineStages(ctx context.Context, industry entity.Industry, stages []entity.PipelineStageConfig) ([]entity.PipelineStageConfig, error) {
	f.stagePuts++
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	f.stages = append([]entity.PipelineStageConfig(nil), stages...)
	entity.SortStages(f.stages)
	return append([]entity.PipelineStageConfig(nil), f.stages...), nil
}

var consoleInst = entity.Instance{
	ID: 1, Name: "Alpha Corp (Servicios)",
	BaseURL: "https://alpha.chatwoot.demo", APIKey: "cw_api_key_alpha_123", AccountID: 101,
	Industry: entity.IndustryServices,
}

func when(n int) time.Time {
	return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC)
}

func newConsoleFixture(t *testing.T, rem *scriptedRemote) (*Console, *store.Store) {
	t.Helper()
	bus := eventbus.NewSyncBus(zap.NewNop())
	t.Cleanup(bus.Close)
	st := store.NewStore(rem, zap.NewNop())
	return NewConsole(st, rem, bus, nil, zap.NewNop()), st
}

func TestConsole_NilInstanceNeverCallsRemote(t *testing.T) {
	rem := &scriptedRemote{}
	c, _ := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Conversations(ctx, nil); !errors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := c.UpdateConversationStage(ctx, nil, 100, "stage_lead"); !errors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := c.UpdateConversationStage(ctx, &entity.Instance{}, 100, "stage_lead"); !errors.IsInvalidInput(err) {
		t.Fatalf("unresolved instance must fail the precondition, got %v", err)
	}
	if rem.stageCalls != 0 {
		t.Fatal("precondition failure must not reach the remote")
	}
}

// 规格场景：移动会话失败后看板回到原阶段
func TestConsole_StageChangeRevertsOnFailure(t *testing.T) {
	rem := &scriptedRemote{conversations: []entity.Conversation{
		{ID: 101, PipelineStage: "stage_prospecto", LastActivityAt: when(1)},
	}}
	c, st := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Conversations(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	rem.failNext = errors.NewRemoteFailureError("upstream 502", nil)
	_, err := c.UpdateConversationStage(ctx, &consoleInst, 101, "stage_lead")
	if !errors.IsRemoteFailure(err) {
		t.Fatalf("remote error must surface, got %v", err)
	}

	conv, _ := st.ConversationByID(consoleInst.ID, 101)
	if conv.PipelineStage != "stage_prospecto" {
		t.Fatalf("conversation must return to its original stage, got %s", conv.PipelineStage)
	}
}

func TestConsole_StageChangeCommitsServerEcho(t *testing.T) {
	rem := &scriptedRemote{conversations: []entity.Conversation{
		{ID: 101, PipelineStage: "stage_prospecto", LastActivityAt: when(1)},
	}}
	c, st := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Conversations(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	echo, err := c.UpdateConversationStage(ctx, &consoleInst, 101, "stage_lead")
	if err != nil {
		t.Fatalf("update stage: %v", err)
	}
	if echo.PipelineStage != "stage_lead" {
		t.Fatalf("unexpected echo %s", echo.PipelineStage)
	}

	conv, _ := st.ConversationByID(consoleInst.ID, 101)
	if conv.PipelineStage != "stage_lead" {
		t.Fatal("echo not committed to cache")
	}
	// 回显带来的活动时间也被提交（server-wins）
	if !conv.LastActivityAt.After(when(1)) {
		t.Fatal("server echo fields must overwrite the optimistic guess")
	}
}

func TestConsole_StageNoOpGuard(t *testing.T) {
	rem := &scriptedRemote{conversations: []entity.Conversation{
		{ID: 101, PipelineStage: "stage_prospecto", LastActivityAt: when(1)},
	}}
	c, _ := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Conversations(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	conv, err := c.UpdateConversationStage(ctx, &consoleInst, 101, "stage_prospecto")
	if err != nil {
		t.Fatalf("no-op move must succeed silently: %v", err)
	}
	if conv.PipelineStage != "stage_prospecto" {
		t.Fatalf("unexpected stage %s", conv.PipelineStage)
	}
	if rem.stageCalls != 0 {
		t.Fatal("moving to the current stage must not reach the remote")
	}
}

func TestConsole_TagValidationAndSetSemantics(t *testing.T) {
	rem := &scriptedRemote{conversations: []entity.Conversation{
		{ID: 101, Tags: []string{"VIP"}, LastActivityAt: when(1)},
	}}
	c, st := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Conversations(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	if _, err := c.AddConversationTag(ctx, &consoleInst, 101, "   "); !errors.IsInvalidInput(err) {
		t.Fatalf("empty tag must be rejected before any apply, got %v", err)
	}
	if rem.tagCalls != 0 {
		t.Fatal("invalid tag must not reach the remote")
	}

	// 重复添加为无操作
	conv, err := c.AddConversationTag(ctx, &consoleInst, 101, "VIP")
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if len(conv.Tags) != 1 || rem.tagCalls != 0 {
		t.Fatalf("duplicate add must be a local no-op, tags=%v calls=%d", conv.Tags, rem.tagCalls)
	}

	conv, err = c.AddConversationTag(ctx, &consoleInst, 101, "Urgente")
	if err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if !conv.HasTag("Urgente") || !conv.HasTag("VIP") {
		t.Fatalf("unexpected tags %v", conv.Tags)
	}

	// 失败的移除回滚
	rem.failNext = errors.NewRemoteFailureError("upstream 502", nil)
	if _, err := c.RemoveConversationTag(ctx, &consoleInst, 101, "VIP"); !errors.IsRemoteFailure(err) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	after, _ := st.ConversationByID(consoleInst.ID, 101)
	if !after.HasTag("VIP") {
		t.Fatal("failed removal must restore the tag")
	}
}

func TestConsole_TaskCompletionSpawnsSuccessorRefetch(t *testing.T) {
	due := when(2)
	rem := &scriptedRemote{tasks: []entity.Task{
		{ID: 1, ConversationID: 101, Content: "Llamada semanal", DueDate: due, Recurrence: entity.RecurrenceWeekly},
	}}
	c, _ := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Tasks(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	echo, err := c.SetTaskCompletion(ctx, &consoleInst, 1, true)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !echo.IsCompleted {
		t.Fatal("predecessor must be completed")
	}

	tasks, err := c.Tasks(ctx, &consoleInst)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected predecessor plus successor, got %d", len(tasks))
	}
	var successor *entity.Task
	for i := range tasks {
		if tasks[i].ID != 1 {
			successor = &tasks[i]
		}
	}
	if successor == nil || successor.IsCompleted {
		t.Fatalf("successor must exist and be pending: %+v", successor)
	}
	if !successor.DueDate.Equal(due.AddDate(0, 0, 7)) {
		t.Fatalf("weekly successor due %v, want +7d", successor.DueDate)
	}
}

func TestConsole_TaskCompletionRevertsOnFailure(t *testing.T) {
	rem := &scriptedRemote{tasks: []entity.Task{
		{ID: 1, ConversationID: 101, Content: "Llamada", DueDate: when(2)},
	}}
	c, st := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Tasks(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	rem.failNext = errors.NewRemoteFailureError("upstream 502", nil)
	if _, err := c.SetTaskCompletion(ctx, &consoleInst, 1, true); !errors.IsRemoteFailure(err) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	task, _ := st.TaskByID(consoleInst.ID, 1)
	if task.IsCompleted {
		t.Fatal("failed completion must revert")
	}
}

func TestConsole_CreateTaskValidation(t *testing.T) {
	rem := &scriptedRemote{}
	c, _ := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.CreateTask(ctx, &consoleInst, entity.Task{ConversationID: 101}); !errors.IsInvalidInput(err) {
		t.Fatalf("empty content must be rejected, got %v", err)
	}
	if _, err := c.CreateTask(ctx, &consoleInst, entity.Task{Content: "Revisar contrato"}); !errors.IsInvalidInput(err) {
		t.Fatalf("missing conversation must be rejected, got %v", err)
	}

	created, err := c.CreateTask(ctx, &consoleInst, entity.Task{ConversationID: 101, Content: "Revisar contrato", DueDate: when(5)})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("remote must assign the task id")
	}
}

func TestConsole_AgentToggleOptimistic(t *testing.T) {
	rem := &scriptedRemote{agents: []entity.Agent{{ID: 3, Name: "Lucía García", IsActive: true}}}
	c, _ := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Agents(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	echo, err := c.SetAgentStatus(ctx, &consoleInst, 3, false)
	if err != nil {
		t.Fatalf("toggle agent: %v", err)
	}
	if echo.IsActive {
		t.Fatal("agent must be deactivated")
	}

	rem.failNext = errors.NewRemoteFailureError("upstream 502", nil)
	if _, err := c.SetAgentStatus(ctx, &consoleInst, 3, true); !errors.IsRemoteFailure(err) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	agents, _ := c.Agents(ctx, &consoleInst)
	if agents[0].IsActive {
		t.Fatal("failed toggle must revert")
	}
}

func TestConsole_PipelineUpdateGuards(t *testing.T) {
	rem := &scriptedRemote{
		conversations: []entity.Conversation{
			{ID: 101, PipelineStage: "stage_lead", LastActivityAt: when(1)},
		},
		stages: []entity.PipelineStageConfig{
			{ID: "stage_prospecto", Name: "Prospecto", Probability: 10, Order: 1},
			{ID: "stage_lead", Name: "Lead Calificado", Probability: 25, Order: 2},
		},
	}
	c, _ := newConsoleFixture(t, rem)
	ctx := context.Background()

	if _, err := c.Conversations(ctx, &consoleInst); err != nil {
		t.Fatal(err)
	}

	// 重复 id
	dup := []entity.PipelineStageConfig{
		{ID: "stage_x", Order: 1}, {ID: "stage_x", Order: 2},
	}
	if _, err := c.UpdatePipelineStages(ctx, &consoleInst, dup); !errors.IsInvalidInput(err) {
		t.Fatalf("duplicate ids must be rejected, got %v", err)
	}

	// 删除仍被引用的阶段
	removal := []entity.PipelineStageConfig{
		{ID: "stage_prospecto", Name: "Prospecto", Probability: 10, Order: 1},
	}
	if _, err := c.UpdatePipelineStages(ctx, &consoleInst, removal); !errors.IsInvalidInput(err) {
		t.Fatalf("removing a referenced stage must be rejected, got %v", err)
	}
	if rem.stagePuts != 0 {
		t.Fatal("rejected updates must not reach the remote")
	}

	// 合法替换
	ok := []entity.PipelineStageConfig{
		{ID: "stage_prospecto", Name: "Prospecto", Probability: 10, Order: 1},
		{ID: "stage_lead", Name: "Lead", Probability: 30, Order: 2},
		{ID: "stage_nuevo", Name: "Nuevo Paso", Probability: 50, Order: 3},
	}
	stages, err := c.UpdatePipelineStages(ctx, &consoleInst, ok)
	if err != nil {
		t.Fatalf("update stages: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("unexpected stage count %d", len(stages))
	}

	cached, err := c.PipelineStages(ctx, &consoleInst)
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 3 || cached[2].ID != "stage_nuevo" {
		t.Fatalf("replacement not visible in cache: %+v", cached)
	}
}
