package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override config.toml
const EnvPrefix = "AGRICOOP"

// DevelopmentJWTSecret is used outside production when no secret is configured
const DevelopmentJWTSecret = "development-only-jwt-secret-change-me"

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Momo      MomoConfig      `mapstructure:"momo"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or a file path
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Port     string `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`    // expose internal error messages in API responses
	Timezone string `mapstructure:"timezone"` // IANA zone used for "today" in fee date arithmetic
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	LogLevel        string `mapstructure:"log_level"`
}

// RedisConfig is optional; with Enabled false the in-memory stores are used.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	Issuer                string        `mapstructure:"issuer"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`

	// PaymentRateLimit caps payment initiations per user per minute.
	// Zero or a negative value disables the limit.
	PaymentRateLimit int `mapstructure:"payment_rate_limit"`
}

// MomoConfig holds the mobile-money collection API settings
type MomoConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SubscriptionKey   string        `mapstructure:"subscription_key"`
	APIUser           string        `mapstructure:"api_user"`
	APIKey            string        `mapstructure:"api_key"`
	TargetEnvironment string        `mapstructure:"target_environment"`
	CallbackURL       string        `mapstructure:"callback_url"`
	Currency          string        `mapstructure:"currency"`
	CountryCode       string        `mapstructure:"country_code"`
	Timeout           time.Duration `mapstructure:"timeout"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"` // used when the provider omits expires_in
	TokenSafetyMargin time.Duration `mapstructure:"token_safety_margin"`
}

// FeesConfig holds fee applicability windows
type FeesConfig struct {
	NewMemberMonths    int     `mapstructure:"new_member_months"`
	ActiveMemberMonths int     `mapstructure:"active_member_months"`
	AmountTolerance    float64 `mapstructure:"amount_tolerance"`
}

// SchedulerConfig holds fee sweep scheduler configuration
type SchedulerConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	SweepHour         int           `mapstructure:"sweep_hour"`
	SweepMinute       int           `mapstructure:"sweep_minute"`
	CheckInterval     time.Duration `mapstructure:"check_interval"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

// TelemetryConfig controls OTLP export. Traces and logs go to the same
// collector; DBTracing adds a span per SQL statement.
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // host:port of the OTLP/gRPC receiver
	Insecure          bool    `mapstructure:"insecure"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	LogsEnabled       bool    `mapstructure:"logs_enabled"`
	LogLevel          string  `mapstructure:"log_level"` // minimum level exported, independent of log.level
	DBTracing         bool    `mapstructure:"db_tracing"`
	DBQueryVariables  bool    `mapstructure:"db_query_variables"`
}

// defaults registers every key, which also lets AutomaticEnv override keys
// that config.toml leaves out.
var defaults = map[string]any{
	"app.name":     "agricoop-backend",
	"app.env":      "development",
	"app.port":     "8080",
	"app.debug":    false,
	"app.timezone": "UTC",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "agricoop",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.log_level":          "warn",

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.issuer":                  "agricoop-backend",
	"jwt.access_token_expiration": 24 * time.Hour,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      45 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      1 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},
	"http.payment_rate_limit": 10,

	"momo.base_url":            "https://sandbox.momodeveloper.mtn.com",
	"momo.subscription_key":    "",
	"momo.api_user":            "",
	"momo.api_key":             "",
	"momo.target_environment":  "sandbox",
	"momo.callback_url":        "",
	"momo.currency":            "EUR", // the sandbox only accepts EUR
	"momo.country_code":        "256",
	"momo.timeout":             30 * time.Second,
	"momo.token_ttl":           time.Hour,
	"momo.token_safety_margin": 5 * time.Minute,

	"fees.new_member_months":    3,
	"fees.active_member_months": 6,
	"fees.amount_tolerance":     0.01,

	"scheduler.enabled":             true,
	"scheduler.sweep_hour":          1,
	"scheduler.sweep_minute":        0,
	"scheduler.check_interval":      time.Minute,
	"scheduler.max_concurrent_jobs": 1,
	"scheduler.job_timeout":         30 * time.Minute,
	"scheduler.retry_attempts":      3,
	"scheduler.retry_delay":         5 * time.Minute,

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.insecure":           true,
	"telemetry.sampling_ratio":     1.0,
	"telemetry.logs_enabled":       false,
	"telemetry.log_level":          "info",
	"telemetry.db_tracing":         true,
	"telemetry.db_query_variables": false,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. Later sources win:
//  1. built-in defaults
//  2. config.toml in the working directory or /app
//  3. .env in the working directory
//  4. AGRICOOP_ environment variables, e.g. AGRICOOP_MOMO_API_KEY
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.JWT.Secret == "" && !cfg.App.IsProduction() {
		cfg.JWT.Secret = DevelopmentJWTSecret
	}
	return &cfg, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q is not a valid IANA zone: %w", c.App.Timezone, err)
	}
	if c.Scheduler.SweepHour < 0 || c.Scheduler.SweepHour > 23 {
		return fmt.Errorf("scheduler.sweep_hour must be between 0 and 23")
	}
	if c.Scheduler.SweepMinute < 0 || c.Scheduler.SweepMinute > 59 {
		return fmt.Errorf("scheduler.sweep_minute must be between 0 and 59")
	}
	if c.Momo.TokenSafetyMargin >= c.Momo.TokenTTL {
		return fmt.Errorf("momo.token_safety_margin must be shorter than momo.token_ttl")
	}
	if strings.Trim(c.Momo.CountryCode, "0123456789") != "" {
		return fmt.Errorf("momo.country_code must contain digits only")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	if c.Telemetry.Enabled && c.Telemetry.CollectorEndpoint == "" {
		return fmt.Errorf("telemetry.collector_endpoint is required when telemetry is enabled")
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if c.JWT.Secret == DevelopmentJWTSecret {
			return fmt.Errorf("jwt.secret must not use the development default in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Momo.SubscriptionKey == "" || c.Momo.APIUser == "" || c.Momo.APIKey == "" {
			return fmt.Errorf("momo credentials are required in production")
		}
		if c.Momo.TargetEnvironment == "sandbox" {
			return fmt.Errorf("momo.target_environment cannot be 'sandbox' in production")
		}
		if c.App.Debug {
			return fmt.Errorf("app.debug must be false in production")
		}
		if c.Telemetry.DBQueryVariables {
			return fmt.Errorf("telemetry.db_query_variables must be false in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// Location returns the configured time zone
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
