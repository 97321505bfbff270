package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

const AppName = "TakkMatching"

// CliFlags are the global command line flags.
type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required|min:1|max:65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error"`
	Pretty bool   `mapstructure:"pretty"`
}

// StoreConfig selects the document store backend. Type decides which of the
// remaining fields are read.
type StoreConfig struct {
	Type            string `mapstructure:"type" validate:"required|in:dynamodb,sqlite,memory"`
	TablePrefix     string `mapstructure:"tablePrefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	SQLitePath      string `mapstructure:"sqlitePath"`
}

type PhotosConfig struct {
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	PresignTTL time.Duration `mapstructure:"presignTTL"`
}

type MatchingConfig struct {
	MinMatches        int           `mapstructure:"minMatches" validate:"required|min:1"`
	MaxMatches        int           `mapstructure:"maxMatches" validate:"required|min:1"`
	Timezone          string        `mapstructure:"timezone" validate:"required"`
	CountdownInterval time.Duration `mapstructure:"countdownInterval"`
	ReconcileInterval time.Duration `mapstructure:"reconcileInterval"`
	RequestTimeout    time.Duration `mapstructure:"requestTimeout"`
	AtomicGeneration  bool          `mapstructure:"atomicGeneration"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	SizeMB  int           `mapstructure:"sizeMB"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	AppName  string
	Debug    bool
	Path     string
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Store    StoreConfig    `mapstructure:"store"`
	Photos   PhotosConfig   `mapstructure:"photos"`
	Matching MatchingConfig `mapstructure:"matching"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty", false)

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.tablePrefix", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.accessKeyId", "")
	v.SetDefault("store.secretAccessKey", "")
	v.SetDefault("store.sqlitePath", "takk.db")

	v.SetDefault("photos.bucket", "")
	v.SetDefault("photos.region", "")
	v.SetDefault("photos.presignTTL", 5*time.Minute)

	v.SetDefault("matching.minMatches", 1)
	v.SetDefault("matching.maxMatches", 3)
	v.SetDefault("matching.timezone", "UTC")
	v.SetDefault("matching.countdownInterval", time.Second)
	v.SetDefault("matching.reconcileInterval", 30*time.Second)
	v.SetDefault("matching.requestTimeout", 5*time.Second)
	v.SetDefault("matching.atomicGeneration", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.sizeMB", 8)
	v.SetDefault("cache.ttl", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
}

// NewConfig reads the yaml file named by flags (optional), applies TAKK_*
// environment overrides and validates the result.
func NewConfig(flags *CliFlags) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TAKK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("server.port", "TAKK_SERVER_PORT", "PORT")
	v.BindEnv("store.region", "TAKK_STORE_REGION", "AWS_REGION")
	v.BindEnv("photos.bucket", "TAKK_PHOTOS_BUCKET", "S3_BUCKET_NAME")

	if flags.ConfigPath != "" {
		filename := filepath.Base(flags.ConfigPath)
		v.AddConfigPath(filepath.Dir(flags.ConfigPath))
		v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	if err := Validate(&conf); err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode
	if conf.Debug {
		conf.Logger.Level = "debug"
	}
	return &conf, nil
}

// Validate checks struct rules per section, then the rules that span fields.
func Validate(conf *Config) error {
	sections := map[string]interface{}{
		"server":   &conf.Server,
		"logger":   &conf.Logger,
		"store":    &conf.Store,
		"matching": &conf.Matching,
	}
	for name, section := range sections {
		v := validate.Struct(section)
		if !v.Validate() {
			return fmt.Errorf("invalid %s config: %w", name, v.Errors)
		}
	}

	if conf.Matching.MaxMatches < conf.Matching.MinMatches {
		return fmt.Errorf("invalid matching config: maxMatches %d is below minMatches %d",
			conf.Matching.MaxMatches, conf.Matching.MinMatches)
	}
	if _, err := time.LoadLocation(conf.Matching.Timezone); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}
	switch conf.Store.Type {
	case "dynamodb":
		if conf.Store.Region == "" {
			return errors.New("invalid store config: region required for dynamodb")
		}
	case "sqlite":
		if conf.Store.SQLitePath == "" {
			return errors.New("invalid store config: sqlitePath required for sqlite")
		}
	}
	if conf.Cache.Enabled && conf.Cache.SizeMB <= 0 {
		return errors.New("invalid cache config: sizeMB must be positive when enabled")
	}
	return nil
}

// Location returns the timezone epochs are computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Matching.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
