package remote

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// stubInstanceRepo is an in-memory instance directory for tests
type stubInstanceRepo struct {
	instances map[int64]entity.Instance
}

func newStubInstanceRepo(instances ...entity.Instance) *stubInstanceRepo {
	r := &stubInstanceRepo{instances: make(map[int64]entity.Instance)}
	for _, inst := range instances {
		r.instances[inst.ID] = inst
	}
	return r
}

func (r *stubInstanceRepo) FindByID(ctx context.Context, id int64) (*entity.Instance, error) {
	inst, ok := r.instances[id]
	if !ok {
		return nil, errors.NewNotFoundError("instance not found")
	}
	out := inst
	return &out, nil
}

func (r *stubInstanceRepo) FindAll(ctx context.Context) ([]*entity.Instance, error) {
	out := make([]*entity.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		c := inst
		out = append(out, &c)
	}
	return out, nil
}

func (r *stubInstanceRepo) Save(ctx context.Context, inst *entity.Instance) error {
	r.instances[inst.ID] = *inst
	return nil
}

func (r *stubInstanceRepo) Delete(ctx context.Context, id int64) error {
	delete(r.instances, id)
	return nil
}

func (r *stubInstanceRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.instances[id]
	return ok, nil
}

var testInstance = entity.Instance{
	ID:        1,
	Name:      "Alpha Corp (Servicios)",
	Region:    "USA",
	BaseURL:   "https://alpha.support.demo",
	APIKey:    "api_key_alpha_123",
	AccountID: 101,
	Industry:  entity.IndustryServices,
	AIAPIKey:  "ai_fake_key_123",
}

func newTestMemoryAPI(instances ...entity.Instance) *MemoryAPI {
	if len(instances) == 0 {
		instances = []entity.Instance{testInstance}
	}
	return NewMemoryAPI(newStubInstanceRepo(instances...), nil, zap.NewNop())
}

func TestMemoryAPI_AuthMismatchRejected(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	bad := testInstance
	bad.APIKey = "wrong_key"

	if _, err := api.ListConversations(ctx, bad); !errors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	unknown := testInstance
	unknown.ID = 99
	if _, err := api.ListConversations(ctx, unknown); !errors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error for unknown instance, got %v", err)
	}
}

func TestMemoryAPI_AuthFailureLeavesStateUntouched(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	target := convs[0]

	bad := testInstance
	bad.APIKey = "wrong_key"
	if _, err := api.AddConversationTag(ctx, target.ID, "Fraude", bad); !errors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	after, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	for _, c := range after {
		if c.ID == target.ID && c.HasTag("Fraude") {
			t.Fatal("rejected mutation must not change remote state")
		}
	}
}

func TestMemoryAPI_SeedDeterministic(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAPI()
	b := newTestMemoryAPI()

	convsA, err := a.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	convsB, err := b.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(convsA) != len(convsB) {
		t.Fatalf("seed not deterministic: %d vs %d conversations", len(convsA), len(convsB))
	}
	if len(convsA) < 25 || len(convsA) > 40 {
		t.Fatalf("expected 25-40 conversations, got %d", len(convsA))
	}
	for i := range convsA {
		if convsA[i].ID != convsB[i].ID || convsA[i].Contact.Name != convsB[i].Contact.Name {
			t.Fatalf("conversation %d differs between seeds", i)
		}
	}
}

func TestMemoryAPI_UpdateStageBumpsActivity(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	target := convs[0]
	before := target.LastActivityAt

	updated, err := api.UpdateConversationStage(ctx, target.ID, "stage_ganado", testInstance)
	if err != nil {
		t.Fatalf("update stage: %v", err)
	}
	if updated.PipelineStage != "stage_ganado" {
		t.Fatalf("expected stage_ganado, got %s", updated.PipelineStage)
	}
	if !updated.LastActivityAt.After(before) {
		t.Fatal("stage change must refresh last activity timestamp")
	}
}

func TestMemoryAPI_TagSetSemantics(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	target := convs[0]

	first, err := api.AddConversationTag(ctx, target.ID, "Fraude", testInstance)
	if err != nil {
		t.Fatalf("add tag: %v", err)
	}
	second, err := api.AddConversationTag(ctx, target.ID, "Fraude", testInstance)
	if err != nil {
		t.Fatalf("add tag twice: %v", err)
	}
	if len(second.Tags) != len(first.Tags) {
		t.Fatalf("duplicate add must be a no-op: %v vs %v", first.Tags, second.Tags)
	}

	removed, err := api.RemoveConversationTag(ctx, target.ID, "Fraude", testInstance)
	if err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	if removed.HasTag("Fraude") {
		t.Fatalf("tag still present after removal: %v", removed.Tags)
	}
}

func TestMemoryAPI_ReturnsCopies(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	convs[0].PipelineStage = "mutated_locally"

	again, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if again[0].PipelineStage == "mutated_locally" {
		t.Fatal("caller mutation must not leak into remote state")
	}
}

func TestMemoryAPI_RecurringTaskSpawnsSuccessor(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}

	due := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	created, err := api.CreateTask(ctx, entity.Task{
		ConversationID: convs[0].ID,
		ContactName:    convs[0].Contact.Name,
		Content:        "Llamada de seguimiento semanal",
		DueDate:        due,
		Priority:       entity.PriorityHigh,
		Type:           "Llamada",
		Recurrence:     entity.RecurrenceWeekly,
	}, testInstance)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	before, err := api.ListTasks(ctx, testInstance)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}

	completed := true
	updated, err := api.UpdateTask(ctx, created.ID, TaskUpdate{IsCompleted: &completed}, testInstance)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if !updated.IsCompleted {
		t.Fatal("predecessor must stay completed")
	}

	after, err := api.ListTasks(ctx, testInstance)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected exactly one successor, got %d new tasks", len(after)-len(before))
	}

	var successor *entity.Task
	for i := range after {
		if after[i].ID != created.ID && after[i].Content == created.Content && after[i].ConversationID == created.ConversationID && !after[i].IsCompleted {
			successor = &after[i]
		}
	}
	if successor == nil {
		t.Fatal("successor task not found")
	}
	wantDue := due.AddDate(0, 0, 7)
	if !successor.DueDate.Equal(wantDue) {
		t.Fatalf("weekly successor due %v, want %v", successor.DueDate, wantDue)
	}
	if successor.Priority != created.Priority || successor.Type != created.Type || successor.Recurrence != created.Recurrence {
		t.Fatal("successor must carry content, priority, type and recurrence")
	}

	// Completing an already-completed task must not spawn another successor
	if _, err := api.UpdateTask(ctx, created.ID, TaskUpdate{IsCompleted: &completed}, testInstance); err != nil {
		t.Fatalf("re-complete task: %v", err)
	}
	final, err := api.ListTasks(ctx, testInstance)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(final) != len(after) {
		t.Fatal("re-completing must not spawn another successor")
	}
}

func TestMemoryAPI_ContactDerivation(t *testing.T) {
	inst := entity.Instance{
		ID:        2,
		Name:      "Beta Inmobiliaria",
		BaseURL:   "https://beta.support.demo",
		APIKey:    "api_key_beta_456",
		AccountID: 102,
		Industry:  entity.IndustryRealEstate,
	}
	api := newTestMemoryAPI(inst)
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, inst)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	contacts, err := api.ListContacts(ctx, inst)
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}

	byID := make(map[int64]entity.Contact)
	for _, c := range contacts {
		if _, dup := byID[c.ID]; dup {
			t.Fatalf("contact %d derived twice", c.ID)
		}
		byID[c.ID] = c
	}
	for _, conv := range convs {
		contact, ok := byID[conv.Contact.ID]
		if !ok {
			t.Fatalf("conversation %d has no derived contact", conv.ID)
		}
		if contact.Name == conv.Contact.Name {
			t.Fatalf("industry prefix not stripped: %q", contact.Name)
		}
		for _, tag := range conv.Tags {
			if !contact.HasTag(tag) {
				t.Fatalf("contact %d missing merged tag %q", contact.ID, tag)
			}
		}
	}
}

func TestMemoryAPI_ContactUpdateIndependentOfConversations(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	contacts, err := api.ListContacts(ctx, testInstance)
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	target := contacts[0]

	name := "Renombrado Manualmente"
	updated, err := api.UpdateContact(ctx, target.ID, ContactUpdate{Name: &name}, testInstance)
	if err != nil {
		t.Fatalf("update contact: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("expected %q, got %q", name, updated.Name)
	}

	// Conversation embedded references keep their own copy
	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	for _, conv := range convs {
		if conv.Contact.ID == target.ID && conv.Contact.Name == name {
			t.Fatal("contact rename must not back-propagate into conversations")
		}
	}
}

func TestMemoryAPI_PipelineStagesSorted(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	stages, err := api.GetPipelineStages(ctx, entity.IndustryRealEstate)
	if err != nil {
		t.Fatalf("get pipeline stages: %v", err)
	}
	if len(stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(stages))
	}
	for i := 1; i < len(stages); i++ {
		if stages[i-1].Order > stages[i].Order {
			t.Fatal("stages must be sorted by display order")
		}
	}
	if stages[0].ID != "re_prospecto" {
		t.Fatalf("unexpected first stage %s", stages[0].ID)
	}
}

func TestMemoryAPI_PutPipelineStagesReplaces(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	custom := []entity.PipelineStageConfig{
		{ID: "stage_b", Name: "B", Probability: 50, Order: 2},
		{ID: "stage_a", Name: "A", Probability: 10, Order: 1},
	}
	out, err := api.PutPipelineStages(ctx, entity.IndustryServices, custom)
	if err != nil {
		t.Fatalf("put pipeline stages: %v", err)
	}
	if len(out) != 2 || out[0].ID != "stage_a" {
		t.Fatalf("unexpected result %v", out)
	}

	again, err := api.GetPipelineStages(ctx, entity.IndustryServices)
	if err != nil {
		t.Fatalf("get pipeline stages: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("replacement not persisted, got %d stages", len(again))
	}

	if _, err := api.PutPipelineStages(ctx, entity.Industry("bogus"), custom); !errors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for unknown industry, got %v", err)
	}
}

func TestMemoryAPI_TestConnection(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	cases := []struct {
		name    string
		inst    entity.Instance
		success bool
	}{
		{"valid", entity.Instance{BaseURL: "https://ok.demo", APIKey: "good_key"}, true},
		{"bad key", entity.Instance{BaseURL: "https://ok.demo", APIKey: "this_will_fail"}, false},
		{"plain http", entity.Instance{BaseURL: "http://ok.demo", APIKey: "good_key"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := api.TestConnection(ctx, tc.inst)
			if err != nil {
				t.Fatalf("test connection: %v", err)
			}
			if result.Success != tc.success {
				t.Fatalf("success=%v, want %v (%s)", result.Success, tc.success, result.Message)
			}
		})
	}
}

func TestMemoryAPI_PurgeInstance(t *testing.T) {
	api := newTestMemoryAPI()
	ctx := context.Background()

	convs, err := api.ListConversations(ctx, testInstance)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	firstConv := convs[0].ID

	api.PurgeInstance(testInstance.ID)

	api.mu.Lock()
	_, hasConvs := api.conversations[testInstance.ID]
	_, hasMsgs := api.messages[firstConv]
	api.mu.Unlock()
	if hasConvs || hasMsgs {
		t.Fatal("purge must drop conversations and their messages")
	}
}

func TestMemoryAPI_AiAnalysisRequiresKey(t *testing.T) {
	noKey := entity.Instance{
		ID:        4,
		Name:      "Municipio Delta",
		BaseURL:   "https://delta.support.demo",
		APIKey:    "api_key_delta_000",
		AccountID: 104,
		Industry:  entity.IndustryMunicipality,
	}
	api := newTestMemoryAPI(noKey)
	ctx := context.Background()

	if _, err := api.GetAiAnalysis(ctx, noKey); !errors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input without AI key, got %v", err)
	}
}
