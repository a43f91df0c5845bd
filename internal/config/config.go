package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Providers ProvidersConfig
	Storage   StorageConfig
	Billing   BillingConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type DatabaseConfig struct {
	Path string // SQLite file path
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour   int
	ClonePerHour      int
	ConversionPerHour int
	SettingsPerMin    int
}

// ProvidersConfig controls upstream endpoints and mock mode. Mock is selected
// by deployment configuration only, never by user input.
type ProvidersConfig struct {
	Mock             bool
	FalBaseURL       string
	MiniMaxBaseURL   string
	ReplicateBaseURL string
	TimeoutSeconds   int
}

type StorageConfig struct {
	BunnyBaseURL          string
	MigrateTimeoutSeconds int
}

// BillingConfig gates job submission on platform access. Disabled for
// self-hosted deployments.
type BillingConfig struct {
	Enforce bool
}

func Load() (*Config, error) {
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("providers.mock", "PROVIDERS_MOCK")
	_ = viper.BindEnv("providers.fal_base_url", "FAL_BASE_URL")
	_ = viper.BindEnv("providers.minimax_base_url", "MINIMAX_BASE_URL")
	_ = viper.BindEnv("providers.replicate_base_url", "REPLICATE_BASE_URL")
	_ = viper.BindEnv("providers.timeout_seconds", "PROVIDER_TIMEOUT")
	_ = viper.BindEnv("storage.bunny_base_url", "BUNNY_BASE_URL")
	_ = viper.BindEnv("storage.migrate_timeout_seconds", "MIGRATE_TIMEOUT")
	_ = viper.BindEnv("billing.enforce", "BILLING_ENFORCE")

	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("database.path", "data/resona.db")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.clone_per_hour", 5)
	viper.SetDefault("ratelimit.conversion_per_hour", 10)
	viper.SetDefault("ratelimit.settings_per_min", 30)
	viper.SetDefault("providers.mock", false)
	viper.SetDefault("providers.fal_base_url", "https://queue.fal.run")
	viper.SetDefault("providers.minimax_base_url", "https://api.minimax.io")
	viper.SetDefault("providers.replicate_base_url", "https://api.replicate.com")
	viper.SetDefault("providers.timeout_seconds", 120)
	viper.SetDefault("storage.bunny_base_url", "https://storage.bunnycdn.com")
	viper.SetDefault("storage.migrate_timeout_seconds", 60)
	viper.SetDefault("billing.enforce", false)

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour:   viper.GetInt("ratelimit.generate_per_hour"),
			ClonePerHour:      viper.GetInt("ratelimit.clone_per_hour"),
			ConversionPerHour: viper.GetInt("ratelimit.conversion_per_hour"),
			SettingsPerMin:    viper.GetInt("ratelimit.settings_per_min"),
		},
		Providers: ProvidersConfig{
			Mock:             viper.GetBool("providers.mock"),
			FalBaseURL:       viper.GetString("providers.fal_base_url"),
			MiniMaxBaseURL:   viper.GetString("providers.minimax_base_url"),
			ReplicateBaseURL: viper.GetString("providers.replicate_base_url"),
			TimeoutSeconds:   viper.GetInt("providers.timeout_seconds"),
		},
		Storage: StorageConfig{
			BunnyBaseURL:          viper.GetString("storage.bunny_base_url"),
			MigrateTimeoutSeconds: viper.GetInt("storage.migrate_timeout_seconds"),
		},
		Billing: BillingConfig{
			Enforce: viper.GetBool("billing.enforce"),
		},
	}

	return cfg, nil
}
