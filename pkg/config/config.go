// Package config loads the service configuration from file, environment
// and defaults via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Retention RetentionConfig `mapstructure:"retention"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the listen address in host:port form
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PipelineConfig configures the media pipeline stages
type PipelineConfig struct {
	StagingDir       string        `mapstructure:"staging_dir"`
	OutputDir        string        `mapstructure:"output_dir"`
	FFprobePath      string        `mapstructure:"ffprobe_path"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	FetchHeadTimeout time.Duration `mapstructure:"fetch_head_timeout"`
}

// RetentionConfig configures job eviction
type RetentionConfig struct {
	Window        time.Duration `mapstructure:"window"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

// ArtifactsConfig configures completed-output handling
type ArtifactsConfig struct {
	// MirrorURI, when non-empty, is the storage URI completed output
	// directories are uploaded under
	MirrorURI string `mapstructure:"mirror_uri"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	File       string `mapstructure:"file"`   // empty means stdout
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads the configuration. A missing config file is fine; every key
// has a default and can be overridden through STREAMFORGE_* environment
// variables.
func Load() (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("STREAMFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 4500)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)

	viper.SetDefault("pipeline.staging_dir", "uploads")
	viper.SetDefault("pipeline.output_dir", "hls_output")
	viper.SetDefault("pipeline.ffprobe_path", "ffprobe")
	viper.SetDefault("pipeline.ffmpeg_path", "ffmpeg")
	viper.SetDefault("pipeline.probe_timeout", 30*time.Second)
	viper.SetDefault("pipeline.fetch_head_timeout", 10*time.Second)

	viper.SetDefault("retention.window", 24*time.Hour)
	viper.SetDefault("retention.sweep_schedule", "@every 1h")

	viper.SetDefault("artifacts.mirror_uri", "")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)
}

func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Pipeline.StagingDir == "" {
		return fmt.Errorf("pipeline staging dir is not set")
	}
	if config.Pipeline.OutputDir == "" {
		return fmt.Errorf("pipeline output dir is not set")
	}
	if config.Pipeline.FFprobePath == "" || config.Pipeline.FFmpegPath == "" {
		return fmt.Errorf("ffprobe and ffmpeg paths are not set")
	}
	if config.Retention.Window <= 0 {
		return fmt.Errorf("retention window must be positive")
	}
	if config.Retention.SweepSchedule == "" {
		return fmt.Errorf("retention sweep schedule is not set")
	}
	switch config.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", config.Log.Format)
	}
	return nil
}
