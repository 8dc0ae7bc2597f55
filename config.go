package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Database struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Session struct {
		Secret      string        `mapstructure:"secret"`
		Secure      bool          `mapstructure:"secure"`
		IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"session"`
	Storage struct {
		Dir       string `mapstructure:"dir"`
		PublicURL string `mapstructure:"public_url"`
	} `mapstructure:"storage"`
	Static struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"static"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// devSecret is the placeholder session secret. It is only accepted with the
// memory driver.
const devSecret = "dev-only-session-secret-change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8084")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost port=5432 user=postgres password=1 dbname=eng_portal sslmode=disable")
	v.SetDefault("session.secret", devSecret)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("storage.dir", "./uploads")
	v.SetDefault("storage.public_url", "http://localhost:8084/files")
	v.SetDefault("static.dir", "./static")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// loadConfig reads defaults, then the optional config file, then
// ENGPORTAL_* environment variables, then flags.
func loadConfig(path string, flags *pflag.FlagSet) (config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ENGPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if flags != nil {
		for key, name := range map[string]string{
			"server.addr":     "addr",
			"database.driver": "driver",
			"database.dsn":    "dsn",
			"log.level":       "log-level",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return config{}, err
				}
			}
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("session.secret must be at least 16 bytes")
	}
	if c.Session.Secret == devSecret && c.Database.Driver != "memory" {
		return errors.New("session.secret must be set when database.driver is postgres")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("session.idle_timeout must be positive")
	}
	return nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
