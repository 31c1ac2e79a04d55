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
	App      AppConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	PosAPI   PosAPIConfig
	TPI      TPIConfig
	QPay     QPayConfig
	Receipt  ReceiptConfig
	Notify   NotifyConfig
	Jobs     JobsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// PublicBaseURL is the externally reachable base URL, used to derive
	// the payment callback address
	PublicBaseURL string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
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
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
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

// PosAPIConfig holds settings for the local receipt daemon
type PosAPIConfig struct {
	BaseURL        string
	APIKey         string
	BasicAuthUser  string
	BasicAuthPass  string
	Timeout        time.Duration
	ReceiptTimeout time.Duration
	// Fallback branch routing when the daemon reports no branches
	BranchNo     string
	PosNo        string
	DistrictCode string
}

// TPIConfig holds settings for the tax authority's remote services
type TPIConfig struct {
	BaseURL     string
	AuthURL     string
	Username    string
	Password    string
	ClientID    string
	TokenLeeway time.Duration
	Timeout     time.Duration
}

// QPayConfig holds settings for the QR payment gateway
type QPayConfig struct {
	BaseURL     string
	Username    string
	Password    string
	InvoiceCode string
	CallbackURL string
	TokenBuffer time.Duration
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// ReceiptConfig holds receipt issuance behavior
type ReceiptConfig struct {
	// PersistEnabled stores issued receipts in the database
	PersistEnabled bool
	// QREnabled renders a QR PNG for issued receipts
	QREnabled bool
	// EmailEnabled sends receipt notification emails
	EmailEnabled bool
	// SpecialTaxRates maps tax type name to percentage rate
	SpecialTaxRates map[string]float64
	// SpecialTaxDefault names the rate applied when none is given
	SpecialTaxDefault string
	// CityTaxRate is the city tax percentage applied on payments
	CityTaxRate float64
}

// NotifyConfig holds SMTP settings for receipt emails
type NotifyConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// JobsConfig holds background job configuration
type JobsConfig struct {
	// PollEnabled runs the pending-invoice reconciliation poller
	PollEnabled  bool
	PollInterval time.Duration
	PollBatch    int
	// ScrubEnabled runs the personal-data retention job
	ScrubEnabled   bool
	ScrubInterval  time.Duration
	ScrubRetention time.Duration
	ScrubBatch     int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MNPAY_ prefix (e.g. MNPAY_QPAY_PASSWORD)
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

	v.SetEnvPrefix("MNPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:          v.GetString("app.name"),
			Env:           v.GetString("app.env"),
			Port:          v.GetString("app.port"),
			PublicBaseURL: v.GetString("app.public_base_url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
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
		PosAPI: PosAPIConfig{
			BaseURL:        v.GetString("posapi.base_url"),
			APIKey:         v.GetString("posapi.api_key"),
			BasicAuthUser:  v.GetString("posapi.basic_auth_user"),
			BasicAuthPass:  v.GetString("posapi.basic_auth_pass"),
			Timeout:        v.GetDuration("posapi.timeout"),
			ReceiptTimeout: v.GetDuration("posapi.receipt_timeout"),
			BranchNo:       v.GetString("posapi.branch_no"),
			PosNo:          v.GetString("posapi.pos_no"),
			DistrictCode:   v.GetString("posapi.district_code"),
		},
		TPI: TPIConfig{
			BaseURL:     v.GetString("tpi.base_url"),
			AuthURL:     v.GetString("tpi.auth_url"),
			Username:    v.GetString("tpi.username"),
			Password:    v.GetString("tpi.password"),
			ClientID:    v.GetString("tpi.client_id"),
			TokenLeeway: v.GetDuration("tpi.token_leeway"),
			Timeout:     v.GetDuration("tpi.timeout"),
		},
		QPay: QPayConfig{
			BaseURL:     v.GetString("qpay.base_url"),
			Username:    v.GetString("qpay.username"),
			Password:    v.GetString("qpay.password"),
			InvoiceCode: v.GetString("qpay.invoice_code"),
			CallbackURL: v.GetString("qpay.callback_url"),
			TokenBuffer: v.GetDuration("qpay.token_buffer"),
			Timeout:     v.GetDuration("qpay.timeout"),
			MaxRetries:  v.GetInt("qpay.max_retries"),
			RetryDelay:  v.GetDuration("qpay.retry_delay"),
		},
		Receipt: ReceiptConfig{
			PersistEnabled:    v.GetBool("receipt.persist_enabled"),
			QREnabled:         v.GetBool("receipt.qr_enabled"),
			EmailEnabled:      v.GetBool("receipt.email_enabled"),
			SpecialTaxDefault: v.GetString("receipt.special_tax_default"),
			CityTaxRate:       v.GetFloat64("receipt.city_tax_rate"),
		},
		Notify: NotifyConfig{
			Host:     v.GetString("notify.host"),
			Port:     v.GetInt("notify.port"),
			Username: v.GetString("notify.username"),
			Password: v.GetString("notify.password"),
			From:     v.GetString("notify.from"),
		},
		Jobs: JobsConfig{
			PollEnabled:    v.GetBool("jobs.poll_enabled"),
			PollInterval:   v.GetDuration("jobs.poll_interval"),
			PollBatch:      v.GetInt("jobs.poll_batch"),
			ScrubEnabled:   v.GetBool("jobs.scrub_enabled"),
			ScrubInterval:  v.GetDuration("jobs.scrub_interval"),
			ScrubRetention: v.GetDuration("jobs.scrub_retention"),
			ScrubBatch:     v.GetInt("jobs.scrub_batch"),
		},
	}

	// special tax rates arrive as a nested table of type name -> rate
	rates := v.GetStringMap("receipt.special_tax_rates")
	if len(rates) > 0 {
		cfg.Receipt.SpecialTaxRates = make(map[string]float64, len(rates))
		for name := range rates {
			cfg.Receipt.SpecialTaxRates[name] = v.GetFloat64("receipt.special_tax_rates." + name)
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mnpay-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
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
		cfg.Database.DBName = "mnpay"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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
	if cfg.Jobs.PollInterval == 0 {
		cfg.Jobs.PollInterval = time.Minute
	}
	if cfg.Jobs.PollBatch == 0 {
		cfg.Jobs.PollBatch = 50
	}
	if cfg.Jobs.ScrubInterval == 0 {
		cfg.Jobs.ScrubInterval = 24 * time.Hour
	}
	if cfg.Jobs.ScrubRetention == 0 {
		cfg.Jobs.ScrubRetention = 90 * 24 * time.Hour
	}
	if cfg.Jobs.ScrubBatch == 0 {
		cfg.Jobs.ScrubBatch = 500
	}
	if cfg.Notify.Port == 0 {
		cfg.Notify.Port = 587
	}
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

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Receipt.EmailEnabled && c.Notify.Host == "" {
			return fmt.Errorf("notify.host is required when receipt.email_enabled is set")
		}
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

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
