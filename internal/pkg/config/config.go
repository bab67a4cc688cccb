package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	App       AppConfig       `mapstructure:"app"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Links     LinksConfig     `mapstructure:"links"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

// ProviderConfig PIX 支付提供商 (InvictusPay) 配置
type ProviderConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	APIToken           string `mapstructure:"api_token"`
	OfferHash          string `mapstructure:"offer_hash"`
	ProductHash        string `mapstructure:"product_hash"`
	DefaultAmountCents int    `mapstructure:"default_amount_cents"`
	CustomerPhone      string `mapstructure:"customer_phone"` // 提供商要求必填，落地页不收集
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
}

// Configured 判断提供商凭据是否齐全，缺失时网关拒绝发起扣款 (fail closed)
func (p ProviderConfig) Configured() bool {
	return p.APIToken != "" && p.OfferHash != "" && p.ProductHash != ""
}

type WebhookConfig struct {
	// Secret 非空时启用 HMAC-SHA256 验签 (X-Signature)
	Secret string `mapstructure:"secret"`
}

// LinksConfig 支付确认后的解锁目标，按结账类型区分
type LinksConfig struct {
	Subscription string `mapstructure:"subscription"`
	Whatsapp     string `mapstructure:"whatsapp"`
}

type AnalyticsConfig struct {
	Workers    int `mapstructure:"workers"`
	BufferSize int `mapstructure:"buffer_size"`
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Provider.BaseURL == "" {
		return errors.New("provider base_url is required")
	}

	// 提供商凭据缺失不算致命错误：网关在请求时 fail closed (500)，
	// 这里只在启动时记录，便于运维发现。
	if c.Provider.APIToken == "" {
		log.Println("Warning: INVICTUSPAY_API_TOKEN not configured, PIX checkout will be unavailable")
	}
	if c.Provider.OfferHash == "" {
		log.Println("Warning: INVICTUSPAY_OFFER_HASH not configured, PIX checkout will be unavailable")
	}
	if c.Provider.ProductHash == "" {
		log.Println("Warning: INVICTUSPAY_PRODUCT_HASH not configured, PIX checkout will be unavailable")
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

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
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("provider.base_url", "https://api.invictuspay.com.br/api/public/v1")
	viper.SetDefault("provider.default_amount_cents", 15000)
	viper.SetDefault("provider.customer_phone", "11999999999")
	viper.SetDefault("provider.timeout_seconds", 15)
	viper.SetDefault("analytics.workers", 2)
	viper.SetDefault("analytics.buffer_size", 1024)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if token := os.Getenv("INVICTUSPAY_API_TOKEN"); token != "" {
		GlobalConfig.Provider.APIToken = token
	}
	if offer := os.Getenv("INVICTUSPAY_OFFER_HASH"); offer != "" {
		GlobalConfig.Provider.OfferHash = offer
	}
	if product := os.Getenv("INVICTUSPAY_PRODUCT_HASH"); product != "" {
		GlobalConfig.Provider.ProductHash = product
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		GlobalConfig.Webhook.Secret = secret
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
