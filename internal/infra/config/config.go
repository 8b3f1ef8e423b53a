package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "INBOX"

type AppConfig struct {
	App          AppSettings          `mapstructure:"app"`
	Postgres     PostgresSettings     `mapstructure:"postgres"`
	Redis        RedisSettings        `mapstructure:"redis"`
	Kafka        KafkaSettings        `mapstructure:"kafka"`
	JWT          JWTSettings          `mapstructure:"jwt"`
	Telemetry    TelemetrySettings    `mapstructure:"telemetry"`
	RateLimit    RateLimitSettings    `mapstructure:"rate_limit"`
	Argon2       Argon2Settings       `mapstructure:"argon2"`
	Verification VerificationSettings `mapstructure:"verification"`
	Password     PasswordSettings     `mapstructure:"password"`
}

type AppSettings struct {
	Name         string        `mapstructure:"name"`
	Env          string        `mapstructure:"env"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	PublicURL    string        `mapstructure:"public_url"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// IsDevelopment reports whether the service runs with development conveniences enabled.
func (s AppSettings) IsDevelopment() bool {
	env := strings.ToLower(strings.TrimSpace(s.Env))
	return env == "" || env == "development" || env == "dev" || env == "local"
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DB             int    `mapstructure:"db"`
	Password       string `mapstructure:"password"`
	TLSEnabled     bool   `mapstructure:"tls_enabled"`
	KeyPrefix      string `mapstructure:"key_prefix"`
	CooldownPrefix string `mapstructure:"cooldown_prefix"`
	AttemptPrefix  string `mapstructure:"attempt_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	Enabled             bool          `mapstructure:"enabled"`
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	SignInMaxAttempts   int           `mapstructure:"sign_in_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	VerifyMaxAttempts   int           `mapstructure:"verify_max_attempts"`
	SendMaxAttempts     int           `mapstructure:"send_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type JWTSettings struct {
	KeyDirectory   string        `mapstructure:"key_directory"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// VerificationSettings configures account verification codes.
type VerificationSettings struct {
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	CodeLength     int           `mapstructure:"code_length"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
	ReclaimStale   bool          `mapstructure:"reclaim_stale"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
}

// PasswordSettings configures the sign-up password policy.
type PasswordSettings struct {
	MinLength        int `mapstructure:"min_length"`
	MinStrengthScore int `mapstructure:"min_strength_score"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.public_url",
		"app.cors_origins",
		"app.read_timeout",
		"app.write_timeout",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"redis.cooldown_prefix",
		"redis.attempt_prefix",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.key_directory",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.enabled",
		"rate_limit.window_duration",
		"rate_limit.sign_in_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.verify_max_attempts",
		"rate_limit.send_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"verification.code_ttl",
		"verification.code_length",
		"verification.resend_cooldown",
		"verification.reclaim_stale",
		"verification.max_attempts",
		"password.min_length",
		"password.min_strength_score",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch {
	case c.App.Port <= 0:
		return fmt.Errorf("config: app.port must be positive")
	case c.Verification.CodeTTL <= 0:
		return fmt.Errorf("config: verification.code_ttl must be positive")
	case c.Verification.CodeLength < 4 || c.Verification.CodeLength > 10:
		return fmt.Errorf("config: verification.code_length must be between 4 and 10")
	case c.Password.MinStrengthScore < 0 || c.Password.MinStrengthScore > 4:
		return fmt.Errorf("config: password.min_strength_score must be between 0 and 4")
	case c.JWT.AccessTokenTTL <= 0:
		return fmt.Errorf("config: jwt.access_token_ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "anon-inbox")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.public_url", "http://localhost:8080")
	v.SetDefault("app.cors_origins", []string{"*"})
	v.SetDefault("app.read_timeout", "15s")
	v.SetDefault("app.write_timeout", "15s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "inbox")
	v.SetDefault("postgres.password", "inbox_password")
	v.SetDefault("postgres.database", "inbox")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "inbox:rl")
	v.SetDefault("redis.cooldown_prefix", "inbox:resend")
	v.SetDefault("redis.attempt_prefix", "inbox:attempts")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "inbox")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.key_directory", "")
	v.SetDefault("jwt.issuer", "anon-inbox")
	v.SetDefault("jwt.access_token_ttl", "24h")

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "anon-inbox")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.sign_in_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.verify_max_attempts", 5)
	v.SetDefault("rate_limit.send_max_attempts", 20)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("verification.code_ttl", "1h")
	v.SetDefault("verification.code_length", 6)
	v.SetDefault("verification.resend_cooldown", "60s")
	v.SetDefault("verification.reclaim_stale", true)
	v.SetDefault("verification.max_attempts", 5)

	v.SetDefault("password.min_length", 6)
	v.SetDefault("password.min_strength_score", 0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
