package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/domain/repository"
	"github.com/soporteops/soporteops/console/internal/infrastructure/persistence/models"
	domainErrors "github.com/soporteops/soporteops/console/pkg/errors"
)

// GormInstanceRepository GORM 实现的实例仓储
type GormInstanceRepository struct {
	db *gorm.DB
}

// NewGormInstanceRepository 创建 GORM 实例仓储
func NewGormInstanceRepository(db *gorm.DB) repository.InstanceRepository {
	return &GormInstanceRepository{
		db: db,
	}
}

// FindByID 根据ID查找实例
func (r *GormInstanceRepository) FindByID(ctx context.Context, id int64) (*entity.Instance, error) {
	var model models.InstanceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("instance not found")
		}
		return nil, domainErrors.NewInternalError("failed to find instance: " + err.Error())
	}

	return model.ToEntity(), nil
}

// FindAll 查找所有实例
func (r *GormInstanceRepository) FindAll(ctx context.Context) ([]*entity.Instance, error) {
	var modelList []models.InstanceModel
	if err := r.db.WithContext(ctx).Order("id asc").Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find instances: " + err.Error())
	}

	instances := make([]*entity.Instance, 0, len(modelList))
	for i := range modelList {
		instances = append(instances, modelList[i].ToEntity())
	}

	return instances, nil
}

// Save 保存实例，新建时回填ID
func (r *GormInstanceRepository) Save(ctx context.Context, inst *entity.Instance) error {
	model := models.FromEntity(inst)

	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save instance: " + err.Error())
	}

	inst.ID = model.ID
	return nil
}

// Delete 删除实例
func (r *GormInstanceRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.InstanceModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete instance: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("instance not found")
	}
	return nil
}

// Exists 判断实例是否存在
func (r *GormInstanceRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InstanceModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, domainErrors.NewInternalError("failed to check instance existence: " + err.Error())
	}
	return count > 0, nil
}
