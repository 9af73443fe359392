package config

import (
	"time"

	"github.com/spf13/pflag"
)

type ServerConfig struct {
	Addr       string        `mapstructure:"addr" validate:"required"`
	ModelDir   string        `mapstructure:"model-dir" validate:"required"`
	ModelKey   string        `mapstructure:"model-key" validate:"required,excludesall=/\\"`
	Store      string        `mapstructure:"store" validate:"oneof=file sqlite redis"`
	SQLitePath string        `mapstructure:"sqlite-path" validate:"required_if=Store sqlite"`
	RedisAddr  string        `mapstructure:"redis-addr" validate:"required_if=Store redis"`
	APIKey     string        `mapstructure:"api-key"`
	CacheSize  int           `mapstructure:"cache-size" validate:"gt=0"`
	Watch      bool          `mapstructure:"watch"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

func LoadServer(args []string) (*ServerConfig, error) {
	fs := pflag.NewFlagSet("api", pflag.ContinueOnError)
	fs.String("addr", ":8080", "listen address")
	fs.String("model-dir", "model", "directory holding the saved model")
	fs.String("model-key", "model.gob", "key of the model to serve")
	fs.String("store", StoreFile, "model store: file, sqlite or redis")
	fs.String("sqlite-path", "", "SQLite database path for --store=sqlite")
	fs.String("redis-addr", "", "Redis address for --store=redis")
	fs.String("api-key", "", "when set, requests must carry it in X-API-Key")
	fs.Int("cache-size", 4, "decoded models kept in memory")
	fs.Bool("watch", true, "reload the model when its file changes")
	fs.Duration("timeout", 10*time.Second, "server read and write timeout")

	v, err := load(fs, args, map[string][]string{
		"model-dir": {"SM_MODEL_DIR"},
	})
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := check(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
