package application

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/repository"
	"github.com/soporteops/soporteops/console/internal/domain/service"
	"github.com/soporteops/soporteops/console/internal/infrastructure/config"
	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
	"github.com/soporteops/soporteops/console/internal/infrastructure/persistence"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
	"github.com/soporteops/soporteops/console/internal/infrastructure/store"
	httpServer "github.com/soporteops/soporteops/console/internal/interfaces/http"
	"github.com/soporteops/soporteops/console/internal/interfaces/websocket"
)

// App 应用程序
type App struct {
	// 配置
	config   *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
	db       *gorm.DB

	// 仓储层
	instanceRepo repository.InstanceRepository

	// 基础设施
	remoteAPI remote.API
	bus       eventbus.Bus
	entities  *store.Store
	monitor   *monitoring.Monitor

	// 领域服务
	reconciler *service.Reconciler

	// 应用服务
	console   *usecase.Console
	instances *usecase.InstanceUsecase

	// 接口层
	hub        *websocket.Hub
	httpServer *httpServer.Server
	hubCancel  context.CancelFunc

	// 配置热更新
	watcher       *config.Watcher
	verifyWebhook atomic.Bool
}

// NewApp 创建应用程序（依赖注入容器）
func NewApp(cfg *config.Config, logger *zap.Logger, logLevel zap.AtomicLevel) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   logger,
		logLevel: logLevel,
	}
	app.verifyWebhook.Store(cfg.Webhook.VerifySignature)

	// 初始化各层组件
	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initDomainServices(); err != nil {
		return nil, fmt.Errorf("failed to init domain services: %w", err)
	}

	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}

	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}

	// 初始化默认数据
	if err := app.seedData(); err != nil {
		return nil, fmt.Errorf("failed to seed data: %w", err)
	}

	if err := app.initConfigWatcher(); err != nil {
		logger.Warn("Config watcher unavailable, hot reload disabled", zap.Error(err))
	}

	return app, nil
}

// initRepositories 初始化仓储层
func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories")

	// type=memory 全内存运行，不需要数据库文件（演示与测试）
	if app.config.Database.Type == "memory" {
		app.instanceRepo = persistence.NewMemoryInstanceRepository()
		return nil
	}

	db, err := persistence.NewDBConnection(&app.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db
	app.instanceRepo = persistence.NewGormInstanceRepository(db)

	return nil
}

// initInfrastructure 初始化基础设施
func (app *App) initInfrastructure() error {
	app.logger.Info("Initializing infrastructure")

	app.monitor = monitoring.NewMonitor(app.logger)
	app.bus = eventbus.NewSyncBus(app.logger)

	// 远端访问层：mock 用内存后端，http 直连外部平台
	switch app.config.Remote.Mode {
	case "http":
		app.remoteAPI = remote.NewClient(app.logger)
	default:
		catalog, err := remote.LoadCatalog(app.config.Pipeline.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load pipeline catalog: %w", err)
		}
		api := remote.NewMemoryAPI(app.instanceRepo, catalog, app.logger)
		if app.config.Remote.Latency > 0 {
			api.WithLatency(app.config.Remote.Latency)
		}
		app.remoteAPI = api
	}

	app.entities = store.NewStore(app.remoteAPI, app.logger)
	return nil
}

// initDomainServices 初始化领域服务
func (app *App) initDomainServices() error {
	app.logger.Info("Initializing domain services")

	// 对账器在构造时订阅总线
	app.reconciler = service.NewReconciler(app.bus, app.entities, app.monitor, app.logger)
	return nil
}

// initApplicationServices 初始化应用服务
func (app *App) initApplicationServices() error {
	app.logger.Info("Initializing application services")

	app.console = usecase.NewConsole(app.entities, app.remoteAPI, app.bus, app.monitor, app.logger)
	app.instances = usecase.NewInstanceUsecase(app.instanceRepo, app.remoteAPI, app.entities, app.logger)
	return nil
}

// initInterfaces 初始化接口层
func (app *App) initInterfaces() error {
	app.logger.Info("Initializing interfaces")

	app.hub = websocket.NewHub(app.bus, app.monitor, app.logger)

	app.httpServer = httpServer.NewServer(
		httpServer.Config{
			Host: app.config.Server.Host,
			Port: app.config.Server.Port,
			Mode: app.config.Server.Mode,
		},
		httpServer.Deps{
			Console:         app.console,
			Instances:       app.instances,
			Bus:             app.bus,
			Monitor:         app.monitor,
			Hub:             app.hub,
			VerifySignature: app.verifyWebhook.Load,
		},
		app.logger,
	)

	return nil
}

// seedData 初始化默认数据
//
// 只有 mock 模式下会播种演示实例；http 模式的实例由运营者自行录入
func (app *App) seedData() error {
	if app.config.Remote.Mode == "http" {
		return nil
	}

	app.logger.Info("Seeding default data")
	return app.instances.SeedDefaults(context.Background())
}

// initConfigWatcher 启动配置热更新（日志级别与 webhook 签名开关）
func (app *App) initConfigWatcher() error {
	watcher, err := config.NewWatcher(config.LocalConfigPath(), app.config, app.logger)
	if err != nil || watcher == nil {
		return err
	}

	watcher.OnChange(func(cfg *config.Config) {
		if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			app.logLevel.SetLevel(level)
		}
		app.verifyWebhook.Store(cfg.Webhook.VerifySignature)
	})

	app.watcher = watcher
	return nil
}

// Start 启动应用程序
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	hubCtx, cancel := context.WithCancel(context.Background())
	app.hubCancel = cancel
	go app.hub.Run(hubCtx)

	if app.watcher != nil {
		if err := app.watcher.Start(ctx); err != nil {
			app.logger.Warn("Config watcher failed to start", zap.Error(err))
		}
	}

	if err := app.httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Stop 停止应用程序
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	if err := app.httpServer.Stop(ctx); err != nil {
		app.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if app.hubCancel != nil {
		app.hubCancel()
	}

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Error("Failed to close config watcher", zap.Error(err))
		}
	}

	app.reconciler.Close()
	app.bus.Close()

	// 关闭数据库连接
	if app.db != nil {
		sqlDB, err := app.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				app.logger.Error("Failed to close database connection", zap.Error(err))
			}
		}
	}

	app.logger.Info("Application stopped successfully")
	return nil
}

// Console 返回视图组合门面
func (app *App) Console() *usecase.Console {
	return app.console
}

// Instances 返回实例用例
func (app *App) Instances() *usecase.InstanceUsecase {
	return app.instances
}

// Logger 返回应用日志器
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// AppConfig 返回应用配置
func (app *App) AppConfig() *config.Config {
	return app.config
}
