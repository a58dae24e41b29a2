package persistence

import (
	"context"
	"testing"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

func TestMemoryInstanceRepository_CRUD(t *testing.T) {
	repo := NewMemoryInstanceRepository()
	ctx := context.Background()

	inst := &entity.Instance{
		Name:      "Alpha Corp (Servicios)",
		BaseURL:   "https://alpha.chatwoot.demo",
		APIKey:    "cw_api_key_alpha_123",
		AccountID: 101,
		Industry:  entity.IndustryServices,
	}
	if err := repo.Save(ctx, inst); err != nil {
		t.Fatalf("save: %v", err)
	}
	if inst.ID == 0 {
		t.Fatal("save must assign an id")
	}

	got, err := repo.FindByID(ctx, inst.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != inst.Name || got.AccountID != 101 {
		t.Fatalf("unexpected instance %+v", got)
	}

	// 返回的是副本，修改不影响仓储
	got.Name = "mutated"
	again, _ := repo.FindByID(ctx, inst.ID)
	if again.Name != "Alpha Corp (Servicios)" {
		t.Fatal("repository must hand out copies")
	}

	inst.Region = "USA"
	if err := repo.Save(ctx, inst); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := repo.FindByID(ctx, inst.ID)
	if updated.Region != "USA" {
		t.Fatal("update not persisted")
	}

	exists, _ := repo.Exists(ctx, inst.ID)
	if !exists {
		t.Fatal("exists must be true after save")
	}

	if err := repo.Delete(ctx, inst.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, inst.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Delete(ctx, inst.ID); !errors.IsNotFound(err) {
		t.Fatalf("double delete must be not found, got %v", err)
	}
}

func TestMemoryInstanceRepository_IDsAreMonotonic(t *testing.T) {
	repo := NewMemoryInstanceRepository()
	ctx := context.Background()

	a := &entity.Instance{Name: "A", BaseURL: "https://a.demo", Industry: entity.IndustryServices}
	b := &entity.Instance{Name: "B", BaseURL: "https://b.demo", Industry: entity.IndustryHealth}
	_ = repo.Save(ctx, a)
	_ = repo.Save(ctx, b)
	if b.ID <= a.ID {
		t.Fatalf("ids must ascend: %d then %d", a.ID, b.ID)
	}

	_ = repo.Delete(ctx, a.ID)
	c := &entity.Instance{Name: "C", BaseURL: "https://c.demo", Industry: entity.IndustryMunicipality}
	_ = repo.Save(ctx, c)
	if c.ID == a.ID {
		t.Fatal("deleted ids must not be reused")
	}

	all, _ := repo.FindAll(ctx)
	if len(all) != 2 || all[0].ID >= all[1].ID {
		t.Fatalf("FindAll must ascend by id, got %+v", all)
	}
}
