package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/domain/repository"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
	"github.com/soporteops/soporteops/console/internal/infrastructure/store"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// InstancePurger 远端实现可选支持的级联清理能力（内存远端实现它）
type InstancePurger interface {
	PurgeInstance(instanceID int64)
}

// InstanceUsecase 实例管理
type InstanceUsecase struct {
	repo   repository.InstanceRepository
	remote remote.API
	store  *store.Store
	logger *zap.Logger
}

// NewInstanceUsecase 创建实例管理用例
func NewInstanceUsecase(repo repository.InstanceRepository, api remote.API, st *store.Store, logger *zap.Logger) *InstanceUsecase {
	return &InstanceUsecase{repo: repo, remote: api, store: st, logger: logger}
}

func validateInstance(inst entity.Instance) error {
	if strings.TrimSpace(inst.Name) == "" {
		return errors.NewInvalidInputError("instance name is required")
	}
	if strings.TrimSpace(inst.BaseURL) == "" {
		return errors.NewInvalidInputError("instance base URL is required")
	}
	if !entity.ValidIndustry(inst.Industry) {
		return errors.NewInvalidInputError(entity.ErrInvalidIndustry.Error())
	}
	return nil
}

// List 列出所有实例
func (u *InstanceUsecase) List(ctx context.Context) ([]entity.Instance, error) {
	found, err := u.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Instance, 0, len(found))
	for _, inst := range found {
		out = append(out, *inst)
	}
	return out, nil
}

// Get 按 id 查找实例
func (u *InstanceUsecase) Get(ctx context.Context, id int64) (entity.Instance, error) {
	if id <= 0 {
		return entity.Instance{}, errors.NewInvalidInputError(entity.ErrInvalidInstanceID.Error())
	}
	inst, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return entity.Instance{}, err
	}
	return *inst, nil
}

// Create 创建实例，id 由仓储分配
func (u *InstanceUsecase) Create(ctx context.Context, inst entity.Instance) (entity.Instance, error) {
	if err := validateInstance(inst); err != nil {
		return entity.Instance{}, err
	}
	inst.ID = 0
	if err := u.repo.Save(ctx, &inst); err != nil {
		return entity.Instance{}, err
	}
	u.logger.Info("Instance created",
		zap.Int64("instance_id", inst.ID),
		zap.String("name", inst.Name),
		zap.String("industry", string(inst.Industry)))
	return inst, nil
}

// Update 更新实例，id 不可变
func (u *InstanceUsecase) Update(ctx context.Context, inst entity.Instance) (entity.Instance, error) {
	if inst.ID <= 0 {
		return entity.Instance{}, errors.NewInvalidInputError(entity.ErrInvalidInstanceID.Error())
	}
	if err := validateInstance(inst); err != nil {
		return entity.Instance{}, err
	}
	exists, err := u.repo.Exists(ctx, inst.ID)
	if err != nil {
		return entity.Instance{}, err
	}
	if !exists {
		return entity.Instance{}, errors.NewNotFoundError("instance not found")
	}
	if err := u.repo.Save(ctx, &inst); err != nil {
		return entity.Instance{}, err
	}
	return inst, nil
}

// Delete 删除实例并级联清除其全部缓存数据
func (u *InstanceUsecase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.NewInvalidInputError(entity.ErrInvalidInstanceID.Error())
	}
	exists, err := u.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError("instance not found")
	}
	if err := u.repo.Delete(ctx, id); err != nil {
		return err
	}

	u.store.PurgeInstance(id)
	if purger, ok := u.remote.(InstancePurger); ok {
		purger.PurgeInstance(id)
	}
	u.logger.Info("Instance deleted with cascade purge", zap.Int64("instance_id", id))
	return nil
}

// TestConnection 用候选凭证探测平台连通性
func (u *InstanceUsecase) TestConnection(ctx context.Context, inst entity.Instance) (remote.ConnectionResult, error) {
	return u.remote.TestConnection(ctx, inst)
}

// SeedDefaults 仓储为空时写入演示实例
func (u *InstanceUsecase) SeedDefaults(ctx context.Context) error {
	existing, err := u.repo.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	demo := []entity.Instance{
		{Name: "Alpha Corp (Servicios)", Region: "USA", BaseURL: "https://alpha.chatwoot.demo", APIKey: "cw_api_key_alpha_123", AccountID: 101, Industry: entity.IndustryServices, AIProvider: entity.AiProviderGemini, AIAPIKey: "gemini_fake_key_123"},
		{Name: "Beta Inmobiliaria", Region: "Europa", BaseURL: "https://beta.chatwoot.demo", APIKey: "cw_api_key_beta_456", AccountID: 102, Industry: entity.IndustryRealEstate},
		{Name: "Gamma Salud", Region: "Asia", BaseURL: "https://gamma.chatwoot.demo", APIKey: "cw_api_key_gamma_789", AccountID: 103, Industry: entity.IndustryHealth, AIProvider: entity.AiProviderOpenAI, AIAPIKey: "openai_fake_key_789"},
		{Name: "Municipio Delta", Region: "USA", BaseURL: "https://delta.chatwoot.demo", APIKey: "cw_api_key_delta_000", AccountID: 104, Industry: entity.IndustryMunicipality},
	}
	for i := range demo {
		if err := u.repo.Save(ctx, &demo[i]); err != nil {
			return err
		}
	}
	u.logger.Info("Seeded demo instances", zap.Int("count", len(demo)))
	return nil
}
