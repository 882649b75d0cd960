// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/ByLCY/storystudio/pkg/errors"
)

// EnvPrefix 环境变量前缀，例如 STORYSTUDIO_SERVER_PORT
const EnvPrefix = "STORYSTUDIO"

// 文本生成服务
const (
	ProviderCohere = "cohere"
	ProviderGemini = "gemini"
)

// Config 应用配置根结构
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Text   TextConfig   `yaml:"text" mapstructure:"text"`
	Image  ImageConfig  `yaml:"image" mapstructure:"image"`
	Story  StoryConfig  `yaml:"story" mapstructure:"story"`
	Layout LayoutConfig `yaml:"layout" mapstructure:"layout"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TextConfig 故事文本生成配置
type TextConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"`
	Model    string        `yaml:"model" mapstructure:"model"`
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	APIKey   string        `yaml:"-" mapstructure:"api_key"`
}

// ImageConfig 场景插图生成配置
type ImageConfig struct {
	Engine         string        `yaml:"engine" mapstructure:"engine"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`
	RateInterval   time.Duration `yaml:"rate_interval" mapstructure:"rate_interval"`
	OutputDir      string        `yaml:"output_dir" mapstructure:"output_dir"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	PromptTemplate string        `yaml:"prompt_template" mapstructure:"prompt_template"`
	APIKey         string        `yaml:"-" mapstructure:"api_key"`
}

// StoryConfig 故事请求限制
type StoryConfig struct {
	MaxScenes int `yaml:"max_scenes" mapstructure:"max_scenes"`
}

// LayoutConfig 排版模板配置，Template 为空时使用内置模板
type LayoutConfig struct {
	Template string `yaml:"template" mapstructure:"template"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load 加载配置
// 按优先级加载：默认值 -> 配置文件（可选）-> STORYSTUDIO_ 环境变量 -> 服务商密钥
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to read config file").WithDetail(path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to unmarshal config")
	}
	applyProviderKeys(&cfg)
	return &cfg, nil
}

// applyProviderKeys 读取各服务商约定的密钥变量
func applyProviderKeys(cfg *Config) {
	switch cfg.Text.Provider {
	case ProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.Text.APIKey = key
		}
	default:
		if key := os.Getenv("COHERE_API_KEY"); key != "" {
			cfg.Text.APIKey = key
		}
	}
	if key := os.Getenv("STABILITY_API_KEY"); key != "" {
		cfg.Image.APIKey = key
	}
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("text.provider", ProviderCohere)
	v.SetDefault("text.model", "")
	v.SetDefault("text.base_url", "")
	v.SetDefault("text.timeout", "60s")
	v.SetDefault("text.api_key", "")

	v.SetDefault("image.engine", "")
	v.SetDefault("image.base_url", "")
	v.SetDefault("image.timeout", "120s")
	v.SetDefault("image.concurrency", 2)
	v.SetDefault("image.rate_interval", "0s")
	v.SetDefault("image.output_dir", "")
	v.SetDefault("image.cache_ttl", "0s")
	v.SetDefault("image.prompt_template", "${scene.text} -- illustration")
	v.SetDefault("image.api_key", "")

	v.SetDefault("story.max_scenes", 20)
	v.SetDefault("layout.template", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Text.Provider {
	case ProviderCohere, ProviderGemini:
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown text provider %q", c.Text.Provider)
	}
	if c.Image.Concurrency <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "image.concurrency must be positive")
	}
	if c.Image.RateInterval < 0 || c.Image.CacheTTL < 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "image durations must not be negative")
	}
	if c.Story.MaxScenes <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "story.max_scenes must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "invalid server port %d", c.Server.Port)
	}
	return nil
}
