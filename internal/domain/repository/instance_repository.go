package repository

import (
	"context"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// InstanceRepository 实例仓储接口（遵循依赖倒置原则）
// 定义在领域层，实现在基础设施层
type InstanceRepository interface {
	// FindByID 根据ID查找实例
	FindByID(ctx context.Context, id int64) (*entity.Instance, error)

	// FindAll 查找所有实例
	FindAll(ctx context.Context) ([]*entity.Instance, error)

	// Save 保存实例（创建或更新），创建时回填分配的ID
	Save(ctx context.Context, inst *entity.Instance) error

	// Delete 删除实例
	Delete(ctx context.Context, id int64) error

	// Exists 判断实例是否存在
	Exists(ctx context.Context, id int64) (bool, error)
}
