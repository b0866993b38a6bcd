// Package config handles loading and parsing application configuration.
// It supports two sources for the file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every field can also be overridden by its env:"..." variable, which is how
// secrets (database DSN, API keys) are passed in production.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging", "prod".
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	Storage    Storage    `yaml:"storage"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Redis      Redis      `yaml:"redis"`
	IEC        IEC        `yaml:"iec"`
	SMS        SMS        `yaml:"sms"`
	Upload     Upload     `yaml:"upload"`
}

// Storage selects the database backend.
type Storage struct {
	// Driver is "sqlite3" or "mysql".
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite3"`

	// DSN is a file path for sqlite3, a go-sql-driver DSN for mysql.
	DSN string `yaml:"dsn" env:"STORAGE_DSN" env-required:"true"`

	// BackupDir receives the files written by POST /api/v1/backups.
	BackupDir string `yaml:"backup_dir" env:"STORAGE_BACKUP_DIR" env-default:"backups"`
}

// HTTPServer is the API listener. WriteTimeout bounds a whole request,
// so it must leave room for a synchronous bulk upload.
type HTTPServer struct {
	Addr         string        `yaml:"address"       env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env-default:"60s"`
}

// Redis backs the IEC lookup cache. An empty address falls back to an
// in-process cache.
type Redis struct {
	Addr     string        `yaml:"address"  env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"       env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl"      env-default:"24h"`
}

// IEC points at the Electoral Commission API. An empty BaseURL disables
// voter verification and mapping discovery; the endpoints answer 503.
type IEC struct {
	BaseURL string        `yaml:"base_url" env:"IEC_BASE_URL"`
	APIKey  string        `yaml:"api_key"  env:"IEC_API_KEY"`
	Timeout time.Duration `yaml:"timeout"  env-default:"15s"`

	// VerifyUploads turns on voter-roll checks for every bulk upload.
	// Individual uploads can still request it explicitly.
	VerifyUploads bool `yaml:"verify_uploads" env:"IEC_VERIFY_UPLOADS"`
}

// SMS configures the JSON Applink gateway.
type SMS struct {
	BaseURL  string        `yaml:"base_url"  env:"SMS_BASE_URL"`
	APIKey   string        `yaml:"api_key"   env:"SMS_API_KEY"`
	SenderID string        `yaml:"sender_id" env:"SMS_SENDER_ID" env-default:"MEMBERS"`
	Timeout  time.Duration `yaml:"timeout"   env-default:"10s"`
}

// Upload tunes the bulk member import. Rows are written BatchSize at a
// time, one transaction per batch; files over MaxRows are refused outright.
// Excel reports are kept under ReportDir.
type Upload struct {
	BatchSize int    `yaml:"batch_size" env:"UPLOAD_BATCH_SIZE" env-default:"500"`
	MaxRows   int    `yaml:"max_rows"   env:"UPLOAD_MAX_ROWS"   env-default:"50000"`
	ReportDir string `yaml:"report_dir" env:"UPLOAD_REPORT_DIR" env-default:"reports"`
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	switch cfg.Storage.Driver {
	case "sqlite3", "mysql":
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Upload.BatchSize <= 0 {
		return nil, fmt.Errorf("upload.batch_size must be positive, got %d", cfg.Upload.BatchSize)
	}

	return &cfg, nil
}

// MustLoad resolves the config path from CONFIG_PATH or --config and loads
// it. It exits the process if anything is wrong: if it returns, the config
// is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}
	return cfg
}
