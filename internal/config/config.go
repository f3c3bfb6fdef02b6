// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Tables    TablesConfig    `koanf:"tables"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Usage     UsageConfig     `koanf:"usage"`
	Billing   BillingConfig   `koanf:"billing"`
	Storage   StorageConfig   `koanf:"storage"`
	Editor    EditorConfig    `koanf:"editor"`
	Queue     QueueConfig     `koanf:"queue"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// TablesConfig names the accounting tables so repositories never hardcode
// them.
type TablesConfig struct {
	Usage         string `koanf:"usage"`
	Subscriptions string `koanf:"subscriptions"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type UsageConfig struct {
	TrialImageCredits int `koanf:"trial_image_credits"`
	MaxBatchUpload    int `koanf:"max_batch_upload"`
}

type BillingConfig struct {
	StripeSecretKey     string        `koanf:"stripe_secret_key"`
	StripeWebhookSecret string        `koanf:"stripe_webhook_secret"`
	PriceBasic          string        `koanf:"price_basic"`
	PricePro            string        `koanf:"price_pro"`
	PriceEnterprise     string        `koanf:"price_enterprise"`
	SiteURL             string        `koanf:"site_url"`
	EventDedupeTTL      time.Duration `koanf:"event_dedupe_ttl"`
}

// PriceFor returns the provider price id configured for a paid plan.
func (b BillingConfig) PriceFor(plan string) string {
	switch plan {
	case "basic":
		return b.PriceBasic
	case "pro":
		return b.PricePro
	case "enterprise":
		return b.PriceEnterprise
	}
	return ""
}

// PlanForPrice is the inverse of PriceFor.
func (b BillingConfig) PlanForPrice(priceID string) string {
	switch {
	case priceID == "":
		return ""
	case priceID == b.PriceBasic:
		return "basic"
	case priceID == b.PricePro:
		return "pro"
	case priceID == b.PriceEnterprise:
		return "enterprise"
	}
	return ""
}

type StorageConfig struct {
	Backend     string `koanf:"backend"`
	LocalPath   string `koanf:"local_path"`
	PublicPath  string `koanf:"public_path"`
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
}

type EditorConfig struct {
	Endpoint  string        `koanf:"endpoint"`
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	Workers   int           `koanf:"workers"`
	QueueSize int           `koanf:"queue_size"`
}

type QueueConfig struct {
	Backend     string        `koanf:"backend"`
	SQSQueueURL string        `koanf:"sqs_queue_url"`
	SQSWait     time.Duration `koanf:"sqs_wait"`
}

// Load builds a Config from defaults, an optional YAML file and the
// environment, in that order of precedence. Each call returns a fresh value;
// callers hand it to the components they construct.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Imagedit API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.max_upload_bytes": 64 << 20,

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"tables.usage":         "usage_log",
		"tables.subscriptions": "subscriptions",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "imagedit",
		"jwt.audience":             "imagedit-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "imagedit",

		"usage.trial_image_credits": 10,
		"usage.max_batch_upload":    30,

		"billing.site_url":         "http://localhost:3000",
		"billing.event_dedupe_ttl": "72h",

		"storage.backend":     "local",
		"storage.local_path":  "./data/uploads",
		"storage.public_path": "/static/uploads",

		"editor.timeout":    "90s",
		"editor.workers":    4,
		"editor.queue_size": 256,

		"queue.backend":  "memory",
		"queue.sqs_wait": "20s",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":    "jwt.refresh_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"TRIAL_IMAGE_CREDITS":         "usage.trial_image_credits",
	"MAX_BATCH_UPLOAD":            "usage.max_batch_upload",
	"USAGE_TABLE":                 "tables.usage",
	"SUBSCRIPTIONS_TABLE":         "tables.subscriptions",
	"STRIPE_API_KEY":              "billing.stripe_secret_key",
	"STRIPE_SECRET_KEY":           "billing.stripe_secret_key",
	"STRIPE_WEBHOOK_SECRET":       "billing.stripe_webhook_secret",
	"STRIPE_PRICE_BASIC":          "billing.price_basic",
	"STRIPE_PRICE_PRO":            "billing.price_pro",
	"STRIPE_PRICE_ENTERPRISE":     "billing.price_enterprise",
	"SITE_URL":                    "billing.site_url",
	"STORAGE_BACKEND":             "storage.backend",
	"LOCAL_STORAGE_PATH":          "storage.local_path",
	"S3_BUCKET_NAME":              "storage.s3_bucket",
	"S3_REGION":                   "storage.s3_region",
	"S3_ENDPOINT_URL":             "storage.s3_endpoint",
	"S3_ACCESS_KEY_ID":            "storage.s3_access_key",
	"S3_SECRET_ACCESS_KEY":        "storage.s3_secret_key",
	"EDIT_PROVIDER_ENDPOINT":      "editor.endpoint",
	"EDIT_PROVIDER_API_KEY":       "editor.api_key",
	"EDIT_WORKERS":                "editor.workers",
	"QUEUE_BACKEND":               "queue.backend",
	"QUEUE_URL":                   "queue.sqs_queue_url",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Usage.TrialImageCredits < 0 {
		return fmt.Errorf("usage.trial_image_credits must not be negative")
	}

	if c.Usage.MaxBatchUpload <= 0 {
		return fmt.Errorf("usage.max_batch_upload must be positive")
	}

	if c.Tables.Usage == "" || c.Tables.Subscriptions == "" {
		return fmt.Errorf("tables.usage and tables.subscriptions are required")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is required for local storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" || c.Storage.S3Region == "" {
			return fmt.Errorf("S3_BUCKET_NAME and S3_REGION are required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	switch c.Queue.Backend {
	case "memory":
	case "sqs":
		if c.Queue.SQSQueueURL == "" {
			return fmt.Errorf("QUEUE_URL is required for the sqs queue backend")
		}
	default:
		return fmt.Errorf("unsupported queue backend %q", c.Queue.Backend)
	}

	if c.Editor.Workers <= 0 {
		return fmt.Errorf("editor.workers must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
