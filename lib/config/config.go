// Package config loads simulator settings from flags, environment variables
// and an optional config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Scenario    string
	Out         string
	PgDSN       string
	Token0      string
	Token1      string
	Fee         int
	TickSpacing int
	BatchSize   int
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("token0", "TOKEN0")
	v.SetDefault("token1", "TOKEN1")
	v.SetDefault("fee", 3000)
	v.SetDefault("tick-spacing", 60)
	v.SetDefault("batch-size", 256)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Scenario:    v.GetString("scenario"),
		Out:         v.GetString("out"),
		PgDSN:       v.GetString("pg-dsn"),
		Token0:      v.GetString("token0"),
		Token1:      v.GetString("token1"),
		Fee:         v.GetInt("fee"),
		TickSpacing: v.GetInt("tick-spacing"),
		BatchSize:   v.GetInt("batch-size"),
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}
