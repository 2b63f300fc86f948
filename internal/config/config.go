package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	defaultAddress          = ":4001"
	defaultDriver           = "mysql"
	defaultCurrency         = "USD"
	defaultTolerance        = 5 * time.Minute
	defaultCheckoutTTL      = 24 * time.Hour
	defaultPendingTTL       = 72 * time.Hour
	defaultReaperInterval   = 10 * time.Minute
	defaultStandardPercent  = 20
	defaultProPercent       = 10
	defaultQueueSize        = 1024
	defaultWorkers          = 4
	defaultAttempts         = 3
	defaultRealtimeChannel  = "booking-events"
	defaultShutdownDeadline = 15 * time.Second
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Database struct {
		Driver  string `yaml:"driver"`
		URL     string `yaml:"url"`
		Migrate bool   `yaml:"migrate"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Payments struct {
		Provider           string        `yaml:"provider"`
		BaseURL            string        `yaml:"base_url"`
		APIKey             string        `yaml:"api_key"`
		WebhookSecret      string        `yaml:"webhook_secret"`
		SignatureTolerance time.Duration `yaml:"signature_tolerance"`
		Currency           string        `yaml:"currency"`
		CheckoutTTL        time.Duration `yaml:"checkout_ttl"`
		PendingTTL         time.Duration `yaml:"pending_ttl"`
		SuccessURL         string        `yaml:"success_url"`
		CancelURL          string        `yaml:"cancel_url"`
	} `yaml:"payments"`
	Commission struct {
		StandardPercent int `yaml:"standard_percent"`
		ProPercent      int `yaml:"pro_percent"`
	} `yaml:"commission"`
	Notifications struct {
		QueueSize int `yaml:"queue_size"`
		Workers   int `yaml:"workers"`
		Attempts  int `yaml:"attempts"`
	} `yaml:"notifications"`
	Firebase struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`
	Archive struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"archive"`
	Reaper struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"reaper"`
}

// Load reads the optional .env file, the YAML file named by CONFIG_PATH and
// then applies environment overrides and defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile builds a Config from path (may be empty) plus the environment.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Address, "ADDR")
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Payments.BaseURL, "PAYMENTS_BASE_URL")
	setString(&cfg.Payments.APIKey, "PAYMENTS_API_KEY")
	setString(&cfg.Payments.WebhookSecret, "PAYMENTS_WEBHOOK_SECRET")
	setString(&cfg.Payments.Currency, "PAYMENTS_CURRENCY")
	setString(&cfg.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS")
	setString(&cfg.Archive.Bucket, "ARCHIVE_BUCKET")
	setString(&cfg.Archive.AccessKey, "ARCHIVE_ACCESS_KEY")
	setString(&cfg.Archive.SecretKey, "ARCHIVE_SECRET_KEY")

	if v, err := readBoolEnv("DATABASE_MIGRATE"); err != nil {
		return fmt.Errorf("parse DATABASE_MIGRATE: %w", err)
	} else if v != nil {
		cfg.Database.Migrate = *v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"REDIS_DB", &cfg.Redis.DB},
		{"COMMISSION_STANDARD_PERCENT", &cfg.Commission.StandardPercent},
		{"COMMISSION_PRO_PERCENT", &cfg.Commission.ProPercent},
		{"NOTIFY_QUEUE_SIZE", &cfg.Notifications.QueueSize},
		{"NOTIFY_WORKERS", &cfg.Notifications.Workers},
		{"NOTIFY_ATTEMPTS", &cfg.Notifications.Attempts},
	}
	for _, it := range ints {
		v, err := readIntEnv(it.name)
		if err != nil {
			return fmt.Errorf("parse %s: %w", it.name, err)
		}
		if v != nil {
			*it.dst = *v
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"PAYMENTS_CHECKOUT_TTL", &cfg.Payments.CheckoutTTL},
		{"PAYMENTS_PENDING_TTL", &cfg.Payments.PendingTTL},
		{"PAYMENTS_SIGNATURE_TOLERANCE", &cfg.Payments.SignatureTolerance},
		{"REAPER_INTERVAL", &cfg.Reaper.Interval},
	}
	for _, it := range durations {
		if v := os.Getenv(it.name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", it.name, err)
			}
			*it.dst = d
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownDeadline
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDriver
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = defaultRealtimeChannel
	}
	if cfg.Payments.Provider == "" {
		cfg.Payments.Provider = "stripe"
	}
	if cfg.Payments.Currency == "" {
		cfg.Payments.Currency = defaultCurrency
	}
	if cfg.Payments.SignatureTolerance <= 0 {
		cfg.Payments.SignatureTolerance = defaultTolerance
	}
	if cfg.Payments.CheckoutTTL <= 0 {
		cfg.Payments.CheckoutTTL = defaultCheckoutTTL
	}
	if cfg.Payments.PendingTTL <= 0 {
		cfg.Payments.PendingTTL = defaultPendingTTL
	}
	if cfg.Commission.StandardPercent == 0 && cfg.Commission.ProPercent == 0 {
		cfg.Commission.StandardPercent = defaultStandardPercent
		cfg.Commission.ProPercent = defaultProPercent
	}
	if cfg.Notifications.QueueSize <= 0 {
		cfg.Notifications.QueueSize = defaultQueueSize
	}
	if cfg.Notifications.Workers <= 0 {
		cfg.Notifications.Workers = defaultWorkers
	}
	if cfg.Notifications.Attempts <= 0 {
		cfg.Notifications.Attempts = defaultAttempts
	}
	if cfg.Reaper.Interval <= 0 {
		cfg.Reaper.Interval = defaultReaperInterval
	}
}

// Validate reports configuration that would make the service unsafe to start.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "pgx":
	default:
		return fmt.Errorf("database driver %q is not supported", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Payments.WebhookSecret == "" {
		return fmt.Errorf("PAYMENTS_WEBHOOK_SECRET is required")
	}
	if c.Commission.StandardPercent < 0 || c.Commission.StandardPercent > 100 ||
		c.Commission.ProPercent < 0 || c.Commission.ProPercent > 100 {
		return fmt.Errorf("commission percentages must be between 0 and 100")
	}
	if c.Payments.CheckoutTTL > c.Payments.PendingTTL {
		return fmt.Errorf("payments checkout_ttl must not exceed pending_ttl")
	}
	return nil
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readBoolEnv(name string) (*bool, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
