package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	ERP       ERPConfig
	Vault     VaultConfig
	Sync      SyncConfig
	Routing   RoutingConfig
	Status    StatusMapConfig
	Storage   StorageConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings for the admin surface
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// TriggerRateLimit bounds manual sync triggers per caller per TriggerRateWindow; 0 disables
	TriggerRateLimit  int
	TriggerRateWindow time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// ERPConfig holds the ERP client settings
type ERPConfig struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	RateLimitFallback time.Duration
	MaxRateLimitWaits int
	PageSize          int
}

// VaultConfig holds the credential vault master key
type VaultConfig struct {
	MasterKey string // 64 hex chars, AES-256
}

// SyncConfig holds worker and schedule settings
type SyncConfig struct {
	WorkerEnabled        bool
	PollInterval         time.Duration
	ClaimBatch           int
	JobBaseBackoff       time.Duration
	JobMaxAttempts       int
	JobRetention         time.Duration
	StaleJobAfter        time.Duration
	StockSyncHour        int
	StatusSyncInterval   time.Duration
	StatusWindow         time.Duration
	PendingSweepInterval time.Duration
	PendingGrace         time.Duration
	PendingSweepLimit    int
	StuckRunThreshold    time.Duration
	StuckCheckInterval   time.Duration
	ImageSyncEnabled     bool
}

// RoutingConfig is the static warehouse routing table.
// Mappings are "key=inventory_id" entries; order matters.
type RoutingConfig struct {
	DefaultInventoryID string
	Prefixes           []string
	Wholesalers        []string
}

// StatusMapConfig maps ERP status ids to local statuses.
// Inbound entries are "status_id=bucket".
type StatusMapConfig struct {
	AwaitingPaymentID int
	PaidID            int
	RefundedID        int
	CancelledID       int
	Inbound           []string
}

// StorageConfig holds S3-compatible storage for mirrored product images
type StorageConfig struct {
	Type         string // s3 or stub
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	KeyPrefix    string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			TriggerRateLimit:  v.GetInt("http.trigger_rate_limit"),
			TriggerRateWindow: v.GetDuration("http.trigger_rate_window"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		ERP: ERPConfig{
			BaseURL:           v.GetString("erp.base_url"),
			RequestsPerMinute: v.GetInt("erp.requests_per_minute"),
			Timeout:           v.GetDuration("erp.timeout"),
			MaxAttempts:       v.GetInt("erp.max_attempts"),
			BaseBackoff:       v.GetDuration("erp.base_backoff"),
			MaxBackoff:        v.GetDuration("erp.max_backoff"),
			RateLimitFallback: v.GetDuration("erp.rate_limit_fallback"),
			MaxRateLimitWaits: v.GetInt("erp.max_rate_limit_waits"),
			PageSize:          v.GetInt("erp.page_size"),
		},
		Vault: VaultConfig{
			MasterKey: v.GetString("vault.master_key"),
		},
		Sync: SyncConfig{
			WorkerEnabled:        v.GetBool("sync.worker_enabled"),
			PollInterval:         v.GetDuration("sync.poll_interval"),
			ClaimBatch:           v.GetInt("sync.claim_batch"),
			JobBaseBackoff:       v.GetDuration("sync.job_base_backoff"),
			JobMaxAttempts:       v.GetInt("sync.job_max_attempts"),
			JobRetention:         v.GetDuration("sync.job_retention"),
			StaleJobAfter:        v.GetDuration("sync.stale_job_after"),
			StockSyncHour:        v.GetInt("sync.stock_sync_hour"),
			StatusSyncInterval:   v.GetDuration("sync.status_sync_interval"),
			StatusWindow:         v.GetDuration("sync.status_window"),
			PendingSweepInterval: v.GetDuration("sync.pending_sweep_interval"),
			PendingGrace:         v.GetDuration("sync.pending_grace"),
			PendingSweepLimit:    v.GetInt("sync.pending_sweep_limit"),
			StuckRunThreshold:    v.GetDuration("sync.stuck_run_threshold"),
			StuckCheckInterval:   v.GetDuration("sync.stuck_check_interval"),
			ImageSyncEnabled:     v.GetBool("sync.image_sync_enabled"),
		},
		Routing: RoutingConfig{
			DefaultInventoryID: v.GetString("routing.default_inventory_id"),
			Prefixes:           v.GetStringSlice("routing.prefixes"),
			Wholesalers:        v.GetStringSlice("routing.wholesalers"),
		},
		Status: StatusMapConfig{
			AwaitingPaymentID: v.GetInt("status.awaiting_payment_id"),
			PaidID:            v.GetInt("status.paid_id"),
			RefundedID:        v.GetInt("status.refunded_id"),
			CancelledID:       v.GetInt("status.cancelled_id"),
			Inbound:           v.GetStringSlice("status.inbound"),
		},
		Storage: StorageConfig{
			Type:         v.GetString("storage.type"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			KeyPrefix:    v.GetString("storage.key_prefix"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers defaults for keys where the zero value is a valid setting
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("sync.stock_sync_hour", 3)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ordersync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ordersync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "ordersync.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "ordersync"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.TriggerRateWindow == 0 {
		cfg.HTTP.TriggerRateWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ordersync"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	// ERP client fields left at zero are filled by erp.Config.Validate

	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 5 * time.Second
	}
	if cfg.Sync.ClaimBatch == 0 {
		cfg.Sync.ClaimBatch = 10
	}
	if cfg.Sync.JobBaseBackoff == 0 {
		cfg.Sync.JobBaseBackoff = 30 * time.Second
	}
	if cfg.Sync.JobMaxAttempts == 0 {
		cfg.Sync.JobMaxAttempts = 8
	}
	if cfg.Sync.JobRetention == 0 {
		cfg.Sync.JobRetention = 7 * 24 * time.Hour
	}
	if cfg.Sync.StaleJobAfter == 0 {
		cfg.Sync.StaleJobAfter = 15 * time.Minute
	}
	if cfg.Sync.StatusSyncInterval == 0 {
		cfg.Sync.StatusSyncInterval = 15 * time.Minute
	}
	if cfg.Sync.StatusWindow == 0 {
		cfg.Sync.StatusWindow = 6 * time.Hour
	}
	if cfg.Sync.PendingSweepInterval == 0 {
		cfg.Sync.PendingSweepInterval = 10 * time.Minute
	}
	if cfg.Sync.PendingGrace == 0 {
		cfg.Sync.PendingGrace = 30 * time.Minute
	}
	if cfg.Sync.PendingSweepLimit == 0 {
		cfg.Sync.PendingSweepLimit = 50
	}
	if cfg.Sync.StuckRunThreshold == 0 {
		cfg.Sync.StuckRunThreshold = 2 * time.Hour
	}
	if cfg.Sync.StuckCheckInterval == 0 {
		cfg.Sync.StuckCheckInterval = 10 * time.Minute
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "stub"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "products"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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
	if c.Sync.StockSyncHour < 0 || c.Sync.StockSyncHour > 23 {
		return fmt.Errorf("sync.stock_sync_hour must be between 0 and 23, got %d", c.Sync.StockSyncHour)
	}
	if c.Storage.Type != "s3" && c.Storage.Type != "stub" {
		return fmt.Errorf("storage.type must be s3 or stub, got %q", c.Storage.Type)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Vault.MasterKey == "" {
			return fmt.Errorf("vault.master_key is required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
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

// Addr returns the Redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
