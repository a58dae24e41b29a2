package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RemoteConfig 远端访问层配置
// mode=mock 使用内置模拟后端（演示模式），mode=http 直连外部收件箱平台
type RemoteConfig struct {
	Mode    string        `mapstructure:"mode"` // mock, http
	Timeout time.Duration `mapstructure:"timeout"`
	Latency time.Duration `mapstructure:"latency"` // mock 模式的模拟延迟
}

// WebhookConfig 入站 webhook 配置
type WebhookConfig struct {
	VerifySignature bool `mapstructure:"verify_signature"`
}

// PipelineConfig 管道阶段目录配置
type PipelineConfig struct {
	CatalogPath string `mapstructure:"catalog_path"` // 可选的 pipelines.yaml 覆盖文件
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// ─── 分层配置加载 ───
	// 优先级 (低 → 高): 默认值 → 全局 ~/.soporteops/ → 项目本地 → 环境变量
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Layer 1: 全局配置 ~/.soporteops/config.yaml
	globalDir := filepath.Join(os.Getenv("HOME"), ".soporteops")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	// Layer 2: 项目本地配置（覆盖层），用 MergeConfigMap 叠加
	if path := LocalConfigPath(); path != "" {
		v2 := viper.New()
		v2.SetConfigFile(path)
		if err := v2.ReadInConfig(); err == nil {
			_ = v.MergeConfigMap(v2.AllSettings())
		}
	}

	// 环境变量覆盖
	v.SetEnvPrefix("SOPORTEOPS")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LocalConfigPath 返回第一个存在的项目本地配置文件路径，没有则为空串
func LocalConfigPath() string {
	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}
	return ""
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	// Server 默认值
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	// Database 默认值
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "soporteops.db")

	// Log 默认值
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	// Remote 默认值
	v.SetDefault("remote.mode", "mock")
	v.SetDefault("remote.timeout", "30s")
	v.SetDefault("remote.latency", "300ms")

	// Webhook 默认值
	v.SetDefault("webhook.verify_signature", true)

	// Pipeline 默认值
	v.SetDefault("pipeline.catalog_path", "")
}
