package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 应用配置（apiserver 与 syncworker 共用）
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Lmstfy LmstfyConfig `mapstructure:"lmstfy"`
	Sync   SyncConfig   `mapstructure:"sync"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// SyncConfig 同步核心相关配置
type SyncConfig struct {
	// EventChannel 同步变更事件的 Redis 频道
	EventChannel string `mapstructure:"event_channel"`
	// SettleQueue 清算任务队列名
	SettleQueue string `mapstructure:"settle_queue"`
	// SettleCompleteChannel 清算完成通知频道
	SettleCompleteChannel string `mapstructure:"settle_complete_channel"`
}

// Load 从配置文件加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	// 默认值兜底
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Sync.EventChannel == "" {
		cfg.Sync.EventChannel = "sync_events"
	}
	if cfg.Sync.SettleQueue == "" {
		cfg.Sync.SettleQueue = "settlement_jobs"
	}
	if cfg.Sync.SettleCompleteChannel == "" {
		cfg.Sync.SettleCompleteChannel = "settlement_complete"
	}

	return &cfg, nil
}

// LoadDefault 加载默认配置文件路径
func LoadDefault() (*Config, error) {
	return Load("config/config.yaml")
}

// Validate 验证配置完整性
func (c *Config) Validate() error {
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql dsn is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy host is required")
	}
	return nil
}
