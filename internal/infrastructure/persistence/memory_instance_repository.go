package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/domain/repository"
	domainErrors "github.com/soporteops/soporteops/console/pkg/errors"
)

// MemoryInstanceRepository 内存实现的实例仓储，用于演示模式与测试
type MemoryInstanceRepository struct {
	mu        sync.RWMutex
	instances map[int64]entity.Instance
	nextID    int64
}

// NewMemoryInstanceRepository 创建内存实例仓储
func NewMemoryInstanceRepository() repository.InstanceRepository {
	return &MemoryInstanceRepository{
		instances: make(map[int64]entity.Instance),
		nextID:    1,
	}
}

// FindByID 根据ID查找实例
func (r *MemoryInstanceRepository) FindByID(ctx context.Context, id int64) (*entity.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("instance not found")
	}
	out := inst
	return &out, nil
}

// FindAll 查找所有实例（ID 升序）
func (r *MemoryInstanceRepository) FindAll(ctx context.Context) ([]*entity.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Instance, 0, len(r.instances))
	for id := range r.instances {
		inst := r.instances[id]
		out = append(out, &inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save 保存实例，新建时回填ID
func (r *MemoryInstanceRepository) Save(ctx context.Context, inst *entity.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst.ID == 0 {
		inst.ID = r.nextID
		r.nextID++
	} else if inst.ID >= r.nextID {
		r.nextID = inst.ID + 1
	}
	r.instances[inst.ID] = *inst
	return nil
}

// Delete 删除实例
func (r *MemoryInstanceRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[id]; !ok {
		return domainErrors.NewNotFoundError("instance not found")
	}
	delete(r.instances, id)
	return nil
}

// Exists 判断实例是否存在
func (r *MemoryInstanceRepository) Exists(ctx context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.instances[id]
	return ok, nil
}
