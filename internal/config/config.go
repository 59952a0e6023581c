package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Import    ImportConfig    `mapstructure:"import"`
	Migration MigrationConfig `mapstructure:"migration"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" default:"8080"`
	Mode            string        `mapstructure:"mode" default:"release"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" default:"0s"` // SSE streams stay open
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"15s"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb" default:"20"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" default:"127.0.0.1"`
	Port            int           `mapstructure:"port" default:"5432"`
	User            string        `mapstructure:"user" default:"tracker"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname" default:"machine_dashboard"`
	SSLMode         string        `mapstructure:"sslmode" default:"disable"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" default:"20"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" default:"1h"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" default:"10m"`
	LogLevel        string        `mapstructure:"log_level" default:"warn"`
}

// DSN postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" default:"6379"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size" default:"10"`
	// Channel carries change notifications between instances
	Channel  string `mapstructure:"channel" default:"machine-dashboard:changes"`
}

// Enabled redis is optional; without it previews and change events stay in process.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// StorageConfig S3-compatible object storage for drawing images
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket" default:"drawings"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" default:"info"`
	Format     string `mapstructure:"format" default:"json"`
	Output     string `mapstructure:"output" default:"stdout"`
	FilePath   string `mapstructure:"file_path" default:"logs/tracker.log"`
	MaxSize    int    `mapstructure:"max_size" default:"100"`
	MaxBackups int    `mapstructure:"max_backups" default:"7"`
	MaxAge     int    `mapstructure:"max_age" default:"30"`
	Compress   bool   `mapstructure:"compress" default:"true"`
}

type ImportConfig struct {
	// KeylessPolicy isolate | reject
	KeylessPolicy string        `mapstructure:"keyless_policy" default:"isolate"`
	PreviewTTL    time.Duration `mapstructure:"preview_ttl" default:"30m"`
}

// MigrationConfig re-hosting of drawing images from legacy hosts
type MigrationConfig struct {
	Workers       int           `mapstructure:"workers" default:"4"`
	Timeout       time.Duration `mapstructure:"timeout" default:"30s"`
	LegacyHosts   []string      `mapstructure:"legacy_hosts" default:"[\"googleusercontent.com\"]"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes" default:"10485760"`
}

// Load reads configs/config.yaml or ./config.yaml, then environment
// variables. path, when set, names the config file explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate catches settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Import.KeylessPolicy {
	case "isolate", "reject":
	default:
		return fmt.Errorf("import.keyless_policy must be isolate or reject, got %q", c.Import.KeylessPolicy)
	}
	if c.Migration.Workers < 1 {
		return fmt.Errorf("migration.workers must be positive")
	}
	return nil
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Object storage
	v.BindEnv("storage.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.bucket", "MINIO_BUCKET")
	v.BindEnv("storage.public_base_url", "MINIO_PUBLIC_BASE_URL")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.output", "LOG_OUTPUT")
}
