// Package config loads the runtime's ActorSystemConfig the way the teacher
// loads config.Config: pflag registers the flag set, viper binds it plus
// environment variables and an optional YAML file, and fsnotify
// (via viper.WatchConfig) hot-reloads the scheduler and dispatcher knobs on
// file change.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SchedulerConfig mirrors spec.md §6's scheduler_config: resolution, wheel
// depth, and tick buffer capacity.
type SchedulerConfig struct {
	Resolution         time.Duration `mapstructure:"resolution"`
	WheelDepth         int           `mapstructure:"wheel_depth"`
	TickBufferCapacity int           `mapstructure:"tick_buffer_capacity"`
}

// TickDriverKind selects which TickDriver implementation the runtime
// installs at bootstrap.
type TickDriverKind string

const (
	TickDriverAuto     TickDriverKind = "auto"
	TickDriverManual   TickDriverKind = "manual"
	TickDriverHardware TickDriverKind = "hardware"
)

// DispatcherConfig mirrors spec.md §6's default_dispatcher_config.
type DispatcherConfig struct {
	Throughput         int           `mapstructure:"throughput"`
	ThroughputDeadline time.Duration `mapstructure:"throughput_deadline"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

// Config is the root of the loaded, hot-reloadable runtime configuration.
type Config struct {
	SystemName      string `mapstructure:"system_name"`
	DefaultGuardian string `mapstructure:"default_guardian"`

	Scheduler  SchedulerConfig  `mapstructure:"scheduler_config"`
	TickDriver TickDriverKind   `mapstructure:"tick_driver_config"`
	Dispatcher DispatcherConfig `mapstructure:"default_dispatcher_config"`

	DebugServerAddr  string `mapstructure:"debug_server_addr"`
	ControlPlaneAddr string `mapstructure:"control_plane_addr"`
	LogLevel         string `mapstructure:"log_level"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("system_name", "default-system")
	v.SetDefault("default_guardian", "user")
	v.SetDefault("scheduler_config.resolution", 10*time.Millisecond)
	v.SetDefault("scheduler_config.wheel_depth", 512)
	v.SetDefault("scheduler_config.tick_buffer_capacity", 1024)
	v.SetDefault("tick_driver_config", string(TickDriverAuto))
	v.SetDefault("default_dispatcher_config.throughput", 30)
	v.SetDefault("default_dispatcher_config.throughput_deadline", 25*time.Millisecond)
	v.SetDefault("default_dispatcher_config.max_retries", 3)
	v.SetDefault("debug_server_addr", ":9090")
	v.SetDefault("control_plane_addr", ":9091")
	v.SetDefault("log_level", "info")
}

// Flags registers the flag set consumed by LoadConfig, mirroring the
// teacher's "config_file" cli.StringFlag.
func Flags(fs *pflag.FlagSet) {
	fs.String("config_file", "", "path to the configuration file")
}

// LoadConfig binds fs (already parsed by the caller, matching the
// teacher's cmd/cmd.go flag wiring), environment variables, and an
// optional YAML file into a Config, then arms fsnotify-driven hot reload
// for the scheduler, dispatcher and tick-driver knobs.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("fraktor")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(in fsnotify.Event) {
			// Re-unmarshal in place on every change. Only cfg is
			// updated: nothing re-applies scheduler_config,
			// default_dispatcher_config or tick_driver_config to a
			// system that is already running.
			_ = v.Unmarshal(cfg)
		})
	}

	return cfg, nil
}
