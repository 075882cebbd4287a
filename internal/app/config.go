package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the CodeMate backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Collab     CollabConfig     `mapstructure:"collab"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// CollabConfig tunes the room synchronization protocol.
type CollabConfig struct {
	Chat  ChatConfig  `mapstructure:"chat"`
	Rooms RoomsConfig `mapstructure:"rooms"`
}

// ChatConfig controls chat relay scoping. Room scoping is opt-in: the default
// relays chat to every connected session, matching the historical protocol.
type ChatConfig struct {
	RoomScoped bool `mapstructure:"room_scoped"`
}

// RoomsConfig controls cached workspace retention for empty rooms.
type RoomsConfig struct {
	ExpireEmpty   bool   `mapstructure:"expire_empty"`
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// ExecutionConfig describes the upstream code execution service.
type ExecutionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CODEMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("collab.chat.room_scoped", false)
	v.SetDefault("collab.rooms.expire_empty", false)
	v.SetDefault("collab.rooms.sweep_schedule", "@every 5m")

	v.SetDefault("execution.base_url", "http://127.0.0.1:9090")
	v.SetDefault("execution.timeout", "30s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
