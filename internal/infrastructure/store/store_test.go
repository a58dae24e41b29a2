package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
)

// fakeRemote counts calls and serves canned data
type fakeRemote struct {
	remote.API // unimplemented methods panic, tests only touch what they stub

	conversations []entity.Conversation
	contacts      []entity.Contact
	tasks         []entity.Task
	stages        []entity.PipelineStageConfig

	listConversationCalls int
	listContactCalls      int
	listTaskCalls         int
}

func (f *fakeRemote) ListConversations(ctx context.Context, inst entity.Instance) ([]entity.Conversation, error) {
	f.listConversationCalls++
	return append([]entity.Conversation(nil), f.conversations...), nil
}

func (f *fakeRemote) ListContacts(ctx context.Context, inst entity.Instance) ([]entity.Contact, error) {
	f.listContactCalls++
	return append([]entity.Contact(nil), f.contacts...), nil
}

func (f *fakeRemote) ListTasks(ctx context.Context, inst entity.Instance) ([]entity.Task, error) {
	f.listTaskCalls++
	return append([]entity.Task(nil), f.tasks...), nil
}

func (f *fakeRemote) GetPipelineStages(ctx context.Context, industry entity.Industry) ([]entity.PipelineStageConfig, error) {
	return append([]entity.PipelineStageConfig(nil), f.stages...), nil
}

func (f *fakeRemote) ListMessages(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Message, error) {
	return []entity.Message{}, nil
}

var storeInst = entity.Instance{ID: 1, Name: "Alpha", BaseURL: "https://a.demo", APIKey: "k", AccountID: 1, Industry: entity.IndustryServices}

func day(n int) time.Time {
	return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC)
}

func TestStore_ConversationsLazyAndSorted(t *testing.T) {
	rem := &fakeRemote{conversations: []entity.Conversation{
		{ID: 100, LastActivityAt: day(1)},
		{ID: 101, LastActivityAt: day(3)},
		{ID: 102, LastActivityAt: day(2)},
	}}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()

	convs, err := s.Conversations(ctx, storeInst)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if convs[0].ID != 101 || convs[1].ID != 102 || convs[2].ID != 100 {
		t.Fatalf("not sorted by activity desc: %v %v %v", convs[0].ID, convs[1].ID, convs[2].ID)
	}

	if _, err := s.Conversations(ctx, storeInst); err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if rem.listConversationCalls != 1 {
		t.Fatalf("expected 1 remote call, got %d", rem.listConversationCalls)
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	rem := &fakeRemote{conversations: []entity.Conversation{
		{ID: 100, PipelineStage: "stage_prospecto", Tags: []string{"VIP"}, LastActivityAt: day(1)},
	}}
	s := NewStore(rem, zap.NewNop())

	convs, err := s.Conversations(context.Background(), storeInst)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	convs[0].Tags[0] = "mutated"
	convs[0].PipelineStage = "mutated"

	snap, ok := s.ConversationByID(storeInst.ID, 100)
	if !ok {
		t.Fatal("conversation missing")
	}
	if snap.Tags[0] != "VIP" || snap.PipelineStage != "stage_prospecto" {
		t.Fatal("caller mutation leaked into cache")
	}
}

func TestStore_ReplaceKeepsPosition(t *testing.T) {
	rem := &fakeRemote{conversations: []entity.Conversation{
		{ID: 100, LastActivityAt: day(3)},
		{ID: 101, LastActivityAt: day(2)},
		{ID: 102, LastActivityAt: day(1)},
	}}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()
	if _, err := s.Conversations(ctx, storeInst); err != nil {
		t.Fatal(err)
	}

	s.ReplaceConversation(storeInst.ID, entity.Conversation{ID: 101, PipelineStage: "stage_ganado", LastActivityAt: day(2)})

	convs, _ := s.Conversations(ctx, storeInst)
	if convs[1].ID != 101 || convs[1].PipelineStage != "stage_ganado" {
		t.Fatalf("replace changed ordering or lost value: %+v", convs)
	}

	// unknown id is a silent no-op
	s.ReplaceConversation(storeInst.ID, entity.Conversation{ID: 999})
	convs, _ = s.Conversations(ctx, storeInst)
	if len(convs) != 3 {
		t.Fatalf("replace must never insert, got %d", len(convs))
	}
}

func TestStore_MoveConversationToFront(t *testing.T) {
	rem := &fakeRemote{conversations: []entity.Conversation{
		{ID: 100, LastActivityAt: day(3)},
		{ID: 101, LastActivityAt: day(2)},
		{ID: 102, LastActivityAt: day(1)},
	}}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()
	if _, err := s.Conversations(ctx, storeInst); err != nil {
		t.Fatal(err)
	}

	s.MoveConversationToFront(storeInst.ID, 102)

	convs, _ := s.Conversations(ctx, storeInst)
	if convs[0].ID != 102 || convs[1].ID != 100 || convs[2].ID != 101 {
		t.Fatalf("unexpected order: %v %v %v", convs[0].ID, convs[1].ID, convs[2].ID)
	}
}

func TestStore_TasksSortedByDueDate(t *testing.T) {
	rem := &fakeRemote{tasks: []entity.Task{
		{ID: 1, DueDate: day(5)},
		{ID: 2, DueDate: day(2)},
		{ID: 3, DueDate: day(9)},
	}}
	s := NewStore(rem, zap.NewNop())

	tasks, err := s.Tasks(context.Background(), storeInst)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if tasks[0].ID != 2 || tasks[1].ID != 1 || tasks[2].ID != 3 {
		t.Fatalf("not sorted by due date asc: %v %v %v", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}

	s.InsertTask(storeInst.ID, entity.Task{ID: 4, DueDate: day(1)})
	tasks, _ = s.Tasks(context.Background(), storeInst)
	if tasks[0].ID != 4 {
		t.Fatalf("insert lost the sort order: %v", tasks[0].ID)
	}
}

func TestStore_InvalidateTasksRefetches(t *testing.T) {
	rem := &fakeRemote{tasks: []entity.Task{{ID: 1, DueDate: day(1)}}}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Tasks(ctx, storeInst); err != nil {
		t.Fatal(err)
	}
	rem.tasks = append(rem.tasks, entity.Task{ID: 2, DueDate: day(8)})
	s.InvalidateTasks(storeInst.ID)

	tasks, err := s.Tasks(ctx, storeInst)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || rem.listTaskCalls != 2 {
		t.Fatalf("invalidate must force a refetch: %d tasks, %d calls", len(tasks), rem.listTaskCalls)
	}
}

func TestStore_ContactProjectionDiverges(t *testing.T) {
	rem := &fakeRemote{
		conversations: []entity.Conversation{
			{ID: 100, Contact: entity.ContactRef{ID: 200, Name: "Lucía García"}, LastActivityAt: day(1)},
		},
		contacts: []entity.Contact{{ID: 200, Name: "Lucía García", Tags: []string{"VIP"}}},
	}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Conversations(ctx, storeInst); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Contacts(ctx, storeInst); err != nil {
		t.Fatal(err)
	}

	s.UpsertContact(storeInst.ID, entity.Contact{ID: 200, Name: "Renombrada", Tags: []string{"VIP"}})

	contact, ok := s.ContactByID(storeInst.ID, 200)
	if !ok || contact.Name != "Renombrada" {
		t.Fatalf("contact not updated: %+v", contact)
	}
	conv, _ := s.ConversationByID(storeInst.ID, 100)
	if conv.Contact.Name != "Lucía García" {
		t.Fatal("contact update must not back-propagate into conversation embedded ref")
	}
	if rem.listContactCalls != 1 {
		t.Fatalf("contacts must derive once, got %d fetches", rem.listContactCalls)
	}
}

func TestStore_StageInUse(t *testing.T) {
	rem := &fakeRemote{conversations: []entity.Conversation{
		{ID: 100, PipelineStage: "stage_lead", LastActivityAt: day(1)},
	}}
	s := NewStore(rem, zap.NewNop())
	if _, err := s.Conversations(context.Background(), storeInst); err != nil {
		t.Fatal(err)
	}

	if !s.StageInUse(storeInst.ID, "stage_lead") {
		t.Fatal("stage_lead is referenced and must be reported in use")
	}
	if s.StageInUse(storeInst.ID, "stage_ganado") {
		t.Fatal("stage_ganado is unreferenced")
	}
}

func TestStore_AppendMessageOnlyWhenLoaded(t *testing.T) {
	rem := &fakeRemote{}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()

	msg := entity.Message{ID: 300, Content: "hola"}

	// not loaded: append is dropped
	s.AppendMessage(100, msg)
	msgs, err := s.Messages(ctx, 100, storeInst)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("append before load must be dropped, got %d", len(msgs))
	}

	// loaded: append lands
	s.AppendMessage(100, msg)
	msgs, _ = s.Messages(ctx, 100, storeInst)
	if len(msgs) != 1 || msgs[0].ID != 300 {
		t.Fatalf("append after load missing: %v", msgs)
	}
}

func TestStore_PurgeInstance(t *testing.T) {
	rem := &fakeRemote{
		conversations: []entity.Conversation{{ID: 100, LastActivityAt: day(1)}},
		tasks:         []entity.Task{{ID: 1, DueDate: day(1)}},
	}
	s := NewStore(rem, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Conversations(ctx, storeInst); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Messages(ctx, 100, storeInst); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Tasks(ctx, storeInst); err != nil {
		t.Fatal(err)
	}
	s.SetOpenConversation(storeInst.ID, 100)

	s.PurgeInstance(storeInst.ID)

	if _, err := s.Conversations(ctx, storeInst); err != nil {
		t.Fatal(err)
	}
	if rem.listConversationCalls != 2 {
		t.Fatalf("purge must drop the conversation cache, got %d calls", rem.listConversationCalls)
	}
	if s.OpenConversation(storeInst.ID) != 0 {
		t.Fatal("purge must clear the open conversation marker")
	}
}
