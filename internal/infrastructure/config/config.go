// Package config loads portal service configuration from config.toml and
// PORTAL_-prefixed environment variables.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the portal service
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Auth      AuthConfig
	Session   SessionConfig
	MockData  MockDataConfig
	Export    ExportConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	ShutdownTimeout        time.Duration
	MaxHeaderBytes         int
	LoginRateLimitEnabled  bool
	LoginRateLimitRequests int           // attempts allowed per window and client IP
	LoginRateLimitWindow   time.Duration // refill period of the login limiter
	CORSAllowOrigins       []string
	CORSAllowMethods       []string
	CORSAllowHeaders       []string
}

// AuthConfig holds token and mock credential configuration
type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	Issuer          string
	LoginDelay      time.Duration
	BcryptCost      int

	// Mock customer accepted by the login endpoint.
	CustomerID string
	Password   string
	Name       string
	Email      string
	Company    string
	Phone      string
	Address    string
}

// SessionConfig selects and configures the session store.
type SessionConfig struct {
	Driver        string // memory, redis, sqlite, postgres
	TTL           time.Duration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	PurgeInterval time.Duration // sweep of expired rows in sql stores
	Postgres      PostgresConfig
}

// PostgresConfig holds postgres connection settings for the session store
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MockDataConfig holds settings of the generated demo data source
type MockDataConfig struct {
	Seed        int64
	Latency     time.Duration
	FailureRate float64 // probability in [0,1] that a fetch fails
}

// ExportConfig holds document export configuration
type ExportConfig struct {
	PDFRenderer   string // static, chromedp
	PDFLatency    time.Duration
	ChromePath    string
	RenderTimeout time.Duration

	ArchiveEnabled  bool
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
	S3ArchivePrefix string
}

// TelemetryConfig holds tracing and metrics configuration
type TelemetryConfig struct {
	TracingEnabled    bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsPath       string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/portal")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:            v.GetDuration("http.read_timeout"),
			WriteTimeout:           v.GetDuration("http.write_timeout"),
			IdleTimeout:            v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:        v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:         v.GetInt("http.max_header_bytes"),
			LoginRateLimitEnabled:  v.GetBool("http.login_rate_limit_enabled"),
			LoginRateLimitRequests: v.GetInt("http.login_rate_limit_requests"),
			LoginRateLimitWindow:   v.GetDuration("http.login_rate_limit_window"),
			CORSAllowOrigins:       v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:       v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:       v.GetStringSlice("http.cors_allow_headers"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("auth.jwt_secret"),
			TokenExpiration: v.GetDuration("auth.token_expiration"),
			Issuer:          v.GetString("auth.issuer"),
			LoginDelay:      v.GetDuration("auth.login_delay"),
			BcryptCost:      v.GetInt("auth.bcrypt_cost"),
			CustomerID:      v.GetString("auth.customer_id"),
			Password:        v.GetString("auth.password"),
			Name:            v.GetString("auth.name"),
			Email:           v.GetString("auth.email"),
			Company:         v.GetString("auth.company"),
			Phone:           v.GetString("auth.phone"),
			Address:         v.GetString("auth.address"),
		},
		Session: SessionConfig{
			Driver:        v.GetString("session.driver"),
			TTL:           v.GetDuration("session.ttl"),
			RedisHost:     v.GetString("session.redis_host"),
			RedisPort:     v.GetInt("session.redis_port"),
			RedisPassword: v.GetString("session.redis_password"),
			RedisDB:       v.GetInt("session.redis_db"),
			SQLitePath:    v.GetString("session.sqlite_path"),
			PurgeInterval: v.GetDuration("session.purge_interval"),
			Postgres: PostgresConfig{
				Host:     v.GetString("session.postgres.host"),
				Port:     v.GetInt("session.postgres.port"),
				User:     v.GetString("session.postgres.user"),
				Password: v.GetString("session.postgres.password"),
				DBName:   v.GetString("session.postgres.dbname"),
				SSLMode:  v.GetString("session.postgres.sslmode"),
			},
		},
		MockData: MockDataConfig{
			Seed:        v.GetInt64("mockdata.seed"),
			Latency:     v.GetDuration("mockdata.latency"),
			FailureRate: v.GetFloat64("mockdata.failure_rate"),
		},
		Export: ExportConfig{
			PDFRenderer:     v.GetString("export.pdf_renderer"),
			PDFLatency:      v.GetDuration("export.pdf_latency"),
			ChromePath:      v.GetString("export.chrome_path"),
			RenderTimeout:   v.GetDuration("export.render_timeout"),
			ArchiveEnabled:  v.GetBool("export.archive_enabled"),
			S3Bucket:        v.GetString("export.s3_bucket"),
			S3Region:        v.GetString("export.s3_region"),
			S3Endpoint:      v.GetString("export.s3_endpoint"),
			S3AccessKey:     v.GetString("export.s3_access_key"),
			S3SecretKey:     v.GetString("export.s3_secret_key"),
			S3UsePathStyle:  v.GetBool("export.s3_use_path_style"),
			S3ArchivePrefix: v.GetString("export.s3_archive_prefix"),
		},
		Telemetry: TelemetryConfig{
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsPath:       v.GetString("telemetry.metrics_path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for empty configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "customer-portal"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.LoginRateLimitRequests == 0 {
		cfg.HTTP.LoginRateLimitRequests = 5
	}
	if cfg.HTTP.LoginRateLimitWindow == 0 {
		cfg.HTTP.LoginRateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Auth.JWTSecret == "" && cfg.App.Env != "production" {
		cfg.Auth.JWTSecret = "development-secret-change-me-in-production"
	}
	if cfg.Auth.TokenExpiration == 0 {
		cfg.Auth.TokenExpiration = 12 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = cfg.App.Name
	}
	if cfg.Auth.LoginDelay == 0 {
		cfg.Auth.LoginDelay = time.Second
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Auth.CustomerID == "" {
		cfg.Auth.CustomerID = "CUST001"
	}
	if cfg.Auth.Password == "" {
		cfg.Auth.Password = "password"
	}
	if cfg.Auth.Name == "" {
		cfg.Auth.Name = "John Smith"
	}
	if cfg.Auth.Email == "" {
		cfg.Auth.Email = "john.smith@company.com"
	}
	if cfg.Auth.Company == "" {
		cfg.Auth.Company = "ABC Corporation"
	}
	if cfg.Auth.Phone == "" {
		cfg.Auth.Phone = "+1-555-0123"
	}
	if cfg.Auth.Address == "" {
		cfg.Auth.Address = "123 Business Ave, Suite 100, New York, NY 10001"
	}

	if cfg.Session.Driver == "" {
		cfg.Session.Driver = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = cfg.Auth.TokenExpiration
	}
	if cfg.Session.RedisHost == "" {
		cfg.Session.RedisHost = "localhost"
	}
	if cfg.Session.RedisPort == 0 {
		cfg.Session.RedisPort = 6379
	}
	if cfg.Session.PurgeInterval == 0 {
		cfg.Session.PurgeInterval = 10 * time.Minute
	}
	if cfg.Session.SQLitePath == "" {
		cfg.Session.SQLitePath = "portal-sessions.db"
	}
	if cfg.Session.Postgres.Host == "" {
		cfg.Session.Postgres.Host = "localhost"
	}
	if cfg.Session.Postgres.Port == 0 {
		cfg.Session.Postgres.Port = 5432
	}
	if cfg.Session.Postgres.User == "" {
		cfg.Session.Postgres.User = "postgres"
	}
	if cfg.Session.Postgres.DBName == "" {
		cfg.Session.Postgres.DBName = "portal"
	}
	if cfg.Session.Postgres.SSLMode == "" {
		cfg.Session.Postgres.SSLMode = "disable"
	}

	if cfg.MockData.Latency == 0 {
		cfg.MockData.Latency = 500 * time.Millisecond
	}

	if cfg.Export.PDFRenderer == "" {
		cfg.Export.PDFRenderer = "static"
	}
	if cfg.Export.PDFLatency == 0 {
		cfg.Export.PDFLatency = time.Second
	}
	if cfg.Export.RenderTimeout == 0 {
		cfg.Export.RenderTimeout = 30 * time.Second
	}
	if cfg.Export.S3Region == "" {
		cfg.Export.S3Region = "us-east-1"
	}
	if cfg.Export.S3ArchivePrefix == "" {
		cfg.Export.S3ArchivePrefix = "invoices/"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsPath == "" {
		cfg.Telemetry.MetricsPath = "/metrics"
	}
}

var (
	sessionDrivers = []string{"memory", "redis", "sqlite", "postgres"}
	pdfRenderers   = []string{"static", "chromedp"}
)

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !slices.Contains(sessionDrivers, c.Session.Driver) {
		return fmt.Errorf("session.driver must be one of %v, got %q", sessionDrivers, c.Session.Driver)
	}
	if !slices.Contains(pdfRenderers, c.Export.PDFRenderer) {
		return fmt.Errorf("export.pdf_renderer must be one of %v, got %q", pdfRenderers, c.Export.PDFRenderer)
	}
	if c.MockData.FailureRate < 0 || c.MockData.FailureRate > 1 {
		return fmt.Errorf("mockdata.failure_rate must be between 0.0 and 1.0, got %f", c.MockData.FailureRate)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Export.ArchiveEnabled && c.Export.S3Bucket == "" {
		return fmt.Errorf("export.s3_bucket is required when export.archive_enabled is true")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}

	if c.App.Env == "production" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
		if c.Session.Driver == "memory" {
			return fmt.Errorf("session.driver cannot be 'memory' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// RedisAddr returns host:port of the session redis
func (s *SessionConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort)
}

// DSN returns the postgres connection string with properly escaped values
func (p *PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   p.DBName,
	}
	q := u.Query()
	q.Set("sslmode", p.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
