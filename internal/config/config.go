package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/shopcart/internal/log"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverRedis    = "redis"
	StorageDriverPostgres = "postgres"
)

type Application struct {
	Env         string `mapstructure:"env"          json:"env"`
	Host        string `mapstructure:"host"         json:"host"`
	SecretKey   string `mapstructure:"secret_key"   json:"-"`
	LogFilePath string `mapstructure:"log_filepath" json:"log_filepath"`
	Port        int    `mapstructure:"port"         json:"port"`
}

type Breaker struct {
	Interval         time.Duration `mapstructure:"interval"          json:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"           json:"timeout"`
	MaxRequests      uint32        `mapstructure:"max_requests"      json:"max_requests"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" json:"failure_threshold"`
	Enabled          bool          `mapstructure:"enabled"           json:"enabled"`
}

type Storage struct {
	Driver    string  `mapstructure:"driver"     json:"driver"`
	KeyPrefix string  `mapstructure:"key_prefix" json:"key_prefix"`
	Breaker   Breaker `mapstructure:"breaker"    json:"breaker"`
}

// Checkout bounds the checkout sessions kept in memory. An idle session expires after SessionTTL.
type Checkout struct {
	SessionTTL  time.Duration `mapstructure:"session_ttl"  json:"session_ttl"`
	MaxSessions int           `mapstructure:"max_sessions" json:"max_sessions"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Storage     `mapstructure:"storage"     json:"storage"`
	Checkout    `mapstructure:"checkout"    json:"checkout"`
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

func (o Otel) Endpoint() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

var (
	once   sync.Once
	config *Config
	errCfg error
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.log_filepath", "/var/log/shopcart.log")
	v.SetDefault("storage.driver", StorageDriverMemory)
	v.SetDefault("storage.key_prefix", "carts")
	v.SetDefault("storage.breaker.enabled", true)
	v.SetDefault("storage.breaker.max_requests", 1)
	v.SetDefault("storage.breaker.interval", time.Minute)
	v.SetDefault("storage.breaker.timeout", 30*time.Second)
	v.SetDefault("storage.breaker.failure_threshold", 5)
	v.SetDefault("checkout.session_ttl", 30*time.Minute)
	v.SetDefault("checkout.max_sessions", 10000)
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
}

// Load reads <configPath>/<filename>.yaml, lets SHOPCART_* environment variables override it
// and unmarshals the result. A missing file is not an error, defaults and env still apply.
func Load(c context.Context, configPath string, filename string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(filename)
	v.AddConfigPath(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SHOPCART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			err = fmt.Errorf("error when reading config with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Warn().Msg("config file not found, using defaults and environment")
	}
	logger.Info().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("error unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Any(log.KeyConfig, cfg).Msg("unmarshaled config")

	return &cfg, nil
}

// InitConfig loads the process configuration once from ./env.
func InitConfig(c context.Context, filename string) (*Config, error) {
	once.Do(func() {
		config, errCfg = Load(c, "./env", filename)
	})
	return config, errCfg
}
