package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Platform PlatformConfig `mapstructure:"platform"`
	Redis    RedisConfig    `mapstructure:"redis"`
	App      AppConfig      `mapstructure:"app"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Session  SessionConfig  `mapstructure:"session"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	MentionRate  float64  `mapstructure:"mention_rate"`  // 提及搜索每秒限额 (每 IP)
	MentionBurst int      `mapstructure:"mention_burst"` // 突发额度
}

// PlatformConfig 上游创作者平台 API
type PlatformConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type FeedConfig struct {
	PerPage      int           `mapstructure:"per_page"`
	PollInterval time.Duration `mapstructure:"poll_interval"` // 新帖轮询周期
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`     // feed 页缓存时间
	SearchTTL    time.Duration `mapstructure:"search_ttl"`    // 提及搜索缓存时间
}

type UploadConfig struct {
	MaxMedia    int   `mapstructure:"max_media"`     // 单帖媒体上限
	MaxFileSize int64 `mapstructure:"max_file_size"` // 单文件字节上限
	Workers     int   `mapstructure:"workers"`       // 上传并发 worker 数
	QueueSize   int   `mapstructure:"queue_size"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`       // 会话闲置回收时间
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 回收扫描周期
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Platform.BaseURL == "" {
		return errors.New("platform base_url is required")
	}
	if !strings.HasPrefix(c.Platform.BaseURL, "http") {
		return errors.New("platform base_url must be an http(s) URL")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis address is required when redis is enabled")
	}
	if c.Upload.MaxMedia <= 0 || c.Upload.MaxMedia > 10 {
		return errors.New("upload max_media must be in 1..10")
	}
	if c.Feed.PollInterval < time.Second {
		return errors.New("feed poll_interval must be at least 1s")
	}
	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("server.mention_rate", 5.0)
	viper.SetDefault("server.mention_burst", 10)
	viper.SetDefault("platform.timeout", "10s")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("feed.per_page", 10)
	viper.SetDefault("feed.poll_interval", "30s")
	viper.SetDefault("feed.cache_ttl", "5s")
	viper.SetDefault("feed.search_ttl", "60s")
	viper.SetDefault("upload.max_media", 10)
	viper.SetDefault("upload.max_file_size", 50<<20)
	viper.SetDefault("upload.workers", 5)
	viper.SetDefault("upload.queue_size", 64)
	viper.SetDefault("session.idle_ttl", "30m")
	viper.SetDefault("session.sweep_interval", "5m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if base := os.Getenv("PLATFORM_BASE_URL"); base != "" {
		GlobalConfig.Platform.BaseURL = base
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
