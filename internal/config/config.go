package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port               int `mapstructure:"port"`
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds"`
}

// ReadTimeout 客户端单次读取的超时时间，0 表示不限制
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// DataConfig 数据文件目录
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// AuthConfig 凭证校验方式：plain（原样比对，历史行为）或 bcrypt
type AuthConfig struct {
	CredentialScheme string `mapstructure:"credential_scheme"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type BusinessConfig struct {
	MaxRetryCount        int    `mapstructure:"max_retry_count"`
	SessionMaxAgeMinutes int    `mapstructure:"session_max_age_minutes"`
	InitialAdminUsername string `mapstructure:"initial_admin_username"`
	InitialAdminPassword string `mapstructure:"initial_admin_password"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 120)
	viper.SetDefault("data.dir", "data")
	viper.SetDefault("auth.credential_scheme", "plain")
	viper.SetDefault("log.file", "logs/server.log")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 7)
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topic", "bank-events")
	viper.SetDefault("business.max_retry_count", 3)
	viper.SetDefault("business.session_max_age_minutes", 0)
	viper.SetDefault("business.initial_admin_username", "admin")
	viper.SetDefault("business.initial_admin_password", "admin123")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
