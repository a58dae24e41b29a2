package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher 监视本地配置文件，变更时重新加载并通知回调。
// 仅日志级别与 webhook 签名开关支持热更新，其余字段需要重启生效。
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewWatcher 创建配置监视器。path 为空时返回 nil（无本地配置可监视）
func NewWatcher(path string, initial *Config, logger *zap.Logger) (*Watcher, error) {
	if path == "" {
		return nil, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		path:    path,
		watcher: fw,
		logger:  logger.With(zap.String("component", "config-watcher")),
		current: initial,
	}, nil
}

// OnChange 注册变更回调，需在 Start 之前调用
func (w *Watcher) OnChange(fn func(*Config)) {
	w.onChange = append(w.onChange, fn)
}

// Config 返回当前配置
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start 启动监视，非阻塞
func (w *Watcher) Start(ctx context.Context) error {
	// 监视目录而不是文件本身：编辑器常以 rename+create 方式落盘
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("Watcher error", zap.Error(err))
			}
		}
	}()

	w.logger.Info("Config watcher started", zap.String("path", w.path))
	return nil
}

// handleEvent 处理文件变更事件
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	cfg, err := Load()
	if err != nil {
		w.logger.Warn("Config reload failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("Config reloaded",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("webhook_verify", cfg.Webhook.VerifySignature))

	for _, fn := range w.onChange {
		fn(cfg)
	}
}

// Close 关闭监视器
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
