package main

import (
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Store struct {
		Backend string `mapstructure:"backend"`
		SQLite  struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		MySQL struct {
			DSN string `mapstructure:"dsn"`
		} `mapstructure:"mysql"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"store"`
	Log struct {
		Format string `mapstructure:"format"`
		Debug  bool   `mapstructure:"debug"`
	} `mapstructure:"log"`
	Engine struct {
		MaxCASAttempts int `mapstructure:"max_cas_attempts"`
	} `mapstructure:"engine"`
}

const (
	backendMemory = "memory"
	backendSQLite = "sqlite"
	backendMySQL  = "mysql"
	backendRedis  = "redis"

	logFormatJSON     = "json"
	logFormatJettison = "jettison"
)

var ErrInvalidConfig = errors.New("invalid config", j.C("ERR_6a0d3f9c2e1b8457"))

// loadConfig reads configuration from the optional YAML file at path and from STAGEFLOW_ prefixed environment
// variables, with the environment taking precedence.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.backend", backendMemory)
	v.SetDefault("store.sqlite.path", "stageflow.db")
	v.SetDefault("store.mysql.dsn", "")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("log.format", logFormatJSON)
	v.SetDefault("log.debug", false)
	v.SetDefault("engine.max_cas_attempts", 10)

	v.SetEnvPrefix("stageflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config", j.MKV{"path": path})
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	switch cfg.Store.Backend {
	case backendMemory, backendSQLite, backendRedis:
	case backendMySQL:
		if cfg.Store.MySQL.DSN == "" {
			return nil, errors.Wrap(ErrInvalidConfig, "mysql backend requires store.mysql.dsn")
		}
	default:
		return nil, errors.Wrap(ErrInvalidConfig, "unknown store backend", j.MKV{"backend": cfg.Store.Backend})
	}

	switch cfg.Log.Format {
	case logFormatJSON, logFormatJettison:
	default:
		return nil, errors.Wrap(ErrInvalidConfig, "unknown log format", j.MKV{"format": cfg.Log.Format})
	}

	return &cfg, nil
}
