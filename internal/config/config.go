package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	CodeGen  CodeGenConfig
	Cache    CacheConfig
	Memory   MemoryConfig
	Auth     AuthConfig
	Log      LogConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string // postgres / sqlite
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite 文件路径
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	Provider string
	OpenAI   OpenAIConfig
	Alibaba  AlibabaConfig
	DeepSeek DeepSeekConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// AlibabaConfig 阿里云配置
type AlibabaConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	Region          string
	Model           string
	Timeout         int
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// CodeGenConfig 代码生成与部署目录配置
type CodeGenConfig struct {
	OutputRoot string // 生成代码根目录
	DeployRoot string // 部署根目录
	DeployHost string // 部署访问域名
}

// CacheConfig AI 服务实例缓存配置
type CacheConfig struct {
	MaximumSize       int
	ExpireAfterWrite  time.Duration
	ExpireAfterAccess time.Duration
}

// MemoryConfig 对话记忆配置
type MemoryConfig struct {
	MaxMessages int
	StoreTTL    time.Duration
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string
	AccessTTL time.Duration
}

// LogConfig 日志配置
type LogConfig struct {
	Mode string
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_CODER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// App
	v.SetDefault("app.name", "next-coder")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8123)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	// 流式生成耗时较长，写超时为 0 表示不限制
	v.SetDefault("server.writeTimeout", 0)

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "next_coder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", filepath.Join(cwd, "tmp", "next_coder.db"))
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.provider", "deepseek")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.deepseek.baseUrl", "https://api.deepseek.com")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.alibaba.model", "qwen-plus")

	// CodeGen
	v.SetDefault("codegen.outputRoot", filepath.Join(cwd, "tmp", "code_output"))
	v.SetDefault("codegen.deployRoot", filepath.Join(cwd, "tmp", "code_deploy"))
	v.SetDefault("codegen.deployHost", "http://localhost")

	// Cache
	v.SetDefault("cache.maximumSize", 10000)
	v.SetDefault("cache.expireAfterWrite", 30*time.Minute)
	v.SetDefault("cache.expireAfterAccess", 10*time.Minute)

	// Memory
	v.SetDefault("memory.maxMessages", 20)
	v.SetDefault("memory.storeTTL", 24*time.Hour)

	// Auth
	v.SetDefault("auth.accessTTL", 7*24*time.Hour)

	// Log
	v.SetDefault("log.mode", "development")
}
