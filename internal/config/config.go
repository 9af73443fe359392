// Package config resolves command configuration from flags, environment and an optional YAML file.
//
// Precedence, highest first: explicit flag, CARDFRAUD_* or SageMaker-style env var, config file, flag default.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "CARDFRAUD"

var ErrInvalid = errors.New("config: invalid configuration")

var validate = validator.New()

// load parses args into fs and returns a viper instance layered over the parsed flags.
// aliases maps a flag name to extra env vars consulted after the CARDFRAUD_ one.
func load(fs *pflag.FlagSet, args []string, aliases map[string][]string) (*viper.Viper, error) {
	fs.String("config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, envs := range aliases {
		names := append([]string{envName(key)}, envs...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer("-", "_").Replace(key))
}

func check(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ParseVector reads a comma separated list of numbers; empty input yields nil.
func ParseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: vector element %d: %v", ErrInvalid, i, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: vector element %d is %v", ErrInvalid, i, f)
		}
		out[i] = f
	}
	return out, nil
}
