package config

// Package config provides a reusable loader for a node's configuration
// file and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"meridian-node/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration surface for a node (SPEC_FULL.md
// §6.1). It mirrors config/default.yaml's structure and is unmarshalled
// through mapstructure tags after viper.AutomaticEnv overlays any matching
// KURA_*/TORII_*/... environment variables.
type Config struct {
	Kura struct {
		InitMode       string `mapstructure:"init_mode" json:"init_mode"`
		BlockStorePath string `mapstructure:"block_store_path" json:"block_store_path"`
	} `mapstructure:"kura" json:"kura"`

	Torii struct {
		URL        string `mapstructure:"url" json:"url"`
		ConnectURL string `mapstructure:"connect_url" json:"connect_url"`
	} `mapstructure:"torii" json:"torii"`

	IrohaPublicKey string `mapstructure:"iroha_public_key" json:"iroha_public_key"`

	Transaction struct {
		DefaultTTLMs int64 `mapstructure:"default_ttl_ms" json:"default_ttl_ms"`
		MaxTTLMs     int64 `mapstructure:"max_ttl_ms" json:"max_ttl_ms"`
	} `mapstructure:"transaction" json:"transaction"`

	Consensus struct {
		TickIntervalMs int64 `mapstructure:"tick_interval_ms" json:"tick_interval_ms"`
		PipelineTimeMs int64 `mapstructure:"pipeline_time_ms" json:"pipeline_time_ms"`
	} `mapstructure:"consensus" json:"consensus"`

	Peer struct {
		TrustedPeers []string `mapstructure:"trusted_peers" json:"trusted_peers"`
	} `mapstructure:"peer" json:"peer"`

	Queue struct {
		Capacity int `mapstructure:"capacity" json:"capacity"`
	} `mapstructure:"queue" json:"queue"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// validInitModes are the only values KURA_INIT_MODE/kura.init_mode accept.
var validInitModes = map[string]bool{"strict": true, "fast": true}

// Load reads config/default.yaml (and an optional env-named overlay, e.g.
// config/production.yaml), merges environment-variable overrides via
// viper.AutomaticEnv, and unmarshals into AppConfig. Unknown keys are
// ignored; KURA_INIT_MODE values outside {strict, fast} fail with a plain
// wrapped error naming the invalid value (spec.md §6).
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if AppConfig.Kura.InitMode == "" {
		AppConfig.Kura.InitMode = "fast"
	}
	if !validInitModes[AppConfig.Kura.InitMode] {
		return nil, utils.Wrap(fmt.Errorf("must be one of strict, fast, got %q", AppConfig.Kura.InitMode),
			"invalid kura.init_mode")
	}
	if AppConfig.Kura.BlockStorePath == "" {
		AppConfig.Kura.BlockStorePath = "./blocks"
	}
	if AppConfig.Queue.Capacity <= 0 {
		AppConfig.Queue.Capacity = 100
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the MERIDIAN_ENV environment
// variable to select an optional overlay file.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("MERIDIAN_ENV", ""))
}
