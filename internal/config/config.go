package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChatModel   = "gemini-3-flash-preview"
	DefaultChatTimeout = 30 * time.Second
)

type Config struct {
	App          AppConfig        `yaml:"app"`
	HTTP         HTTPConfig       `yaml:"http"`
	GRPC         GRPCConfig       `yaml:"grpc"`
	Database     DatabaseConfig   `yaml:"database"`
	Bookings     BookingsConfig   `yaml:"bookings"`
	Chat         ChatConfig       `yaml:"chat"`
	Redis        RedisConfig      `yaml:"redis"`
	Backup       BackupConfig     `yaml:"backup"`
	Monitoring   MonitoringConfig `yaml:"monitoring"`
	Logging      LoggingConfig    `yaml:"logging"`
	Google       GoogleConfig     `yaml:"google"`
	Telegram     TelegramConfig   `yaml:"telegram"`
	Sync         SyncConfig       `yaml:"sync"`
	ServicesPath string           `yaml:"services_path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	StaticDir       string        `yaml:"static_dir"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type BookingsConfig struct {
	// EnforceTransitions rejects status changes outside the lifecycle graph.
	// Unset means true.
	EnforceTransitions *bool `yaml:"enforce_transitions"`
}

func (c BookingsConfig) Enforce() bool {
	return c.EnforceTransitions == nil || *c.EnforceTransitions
}

type ChatConfig struct {
	APIKey       string         `yaml:"api_key"`
	Model        string         `yaml:"model"`
	SystemPrompt string         `yaml:"system_prompt"`
	Timeout      *time.Duration `yaml:"timeout"`
	SessionTTL   time.Duration  `yaml:"session_ttl"`
	MaxMessages  int            `yaml:"max_messages"`
}

// CallTimeout is the upper bound for one completion call. Zero disables it.
func (c ChatConfig) CallTimeout() time.Duration {
	if c.Timeout == nil {
		return DefaultChatTimeout
	}
	if *c.Timeout < 0 {
		return 0
	}
	return *c.Timeout
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	BookingsSheet         string `yaml:"bookings_sheet"`
	// ResyncOnStart rewrites the whole sheet from the database at startup.
	ResyncOnStart bool `yaml:"resync_on_start"`
}

func (c GoogleConfig) Enabled() bool {
	return c.CredentialsFile != "" && c.BookingsSpreadsheetID != ""
}

type TelegramConfig struct {
	BotToken   string  `yaml:"bot_token"`
	ManagerIDs []int64 `yaml:"manager_chat_ids"`
	Debug      bool    `yaml:"debug"`
}

type SyncConfig struct {
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	MaxRetries    int           `yaml:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	BatchSize     int           `yaml:"batch_size"`
}

// Load reads the YAML config at configPath, expanding ${VAR} references from
// the environment and an optional .env file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.GRPC.Enabled && c.GRPC.Port == c.HTTP.Port {
		return errors.New("grpc and http ports must differ")
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == c.HTTP.Port {
		return errors.New("prometheus and http ports must differ")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		return errors.New("backup storage path is required when backups are enabled")
	}
	if c.Sync.MaxRetries < 0 {
		return errors.New("sync max_retries must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "skyline"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.Port == 0 {
		c.GRPC.Port = 3001
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/bookings.db"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = DefaultChatModel
	}
	if c.Chat.SessionTTL == 0 {
		c.Chat.SessionTTL = 24 * time.Hour
	}
	if c.Chat.MaxMessages == 0 {
		c.Chat.MaxMessages = 100
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Google.BookingsSheet == "" {
		c.Google.BookingsSheet = "Bookings"
	}
	if c.Sync.RatePerSecond == 0 {
		c.Sync.RatePerSecond = 1
	}
	if c.Sync.Burst == 0 {
		c.Sync.Burst = 5
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 5
	}
	if c.Sync.BaseDelay == 0 {
		c.Sync.BaseDelay = 2 * time.Second
	}
	if c.Sync.MaxDelay == 0 {
		c.Sync.MaxDelay = 5 * time.Minute
	}
	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = 2 * time.Second
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 20
	}
	if c.ServicesPath == "" {
		c.ServicesPath = "configs/services.yaml"
	}
}
