package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/core"
)

type NetConfig struct {
	ReceiveBatch   int           `mapstructure:"receive_batch"`
	MaxMessageSize int           `mapstructure:"max_message_size"`
	SendMode       string        `mapstructure:"send_mode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	LingerTimeout  time.Duration `mapstructure:"linger_timeout"`
	MaxInbound     int           `mapstructure:"max_inbound"`
	MaxBuffered    uint64        `mapstructure:"max_buffered"`
}

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	Secret           string        `mapstructure:"secret"`
	LogLevel         string        `mapstructure:"log_level"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	SignalURL        string        `mapstructure:"signal_url"`
	ICEServers       []string      `mapstructure:"ice_servers"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	JoinRateLimit    int           `mapstructure:"join_rate_limit"`
	JoinRateInterval time.Duration `mapstructure:"join_rate_interval"`
	Net              NetConfig     `mapstructure:"net"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, dev by default.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFrom(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFrom reads fileName if it exists, applies defaults and PEERLINK_* env overrides.
func LoadFrom(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "peerlink-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("tick_interval", "10ms")
	v.SetDefault("join_rate_limit", 5)
	v.SetDefault("join_rate_interval", "10s")
	v.SetDefault("net.receive_batch", link.DefaultReceiveBatch)
	v.SetDefault("net.max_message_size", link.DefaultMaxMessageSize)
	v.SetDefault("net.send_mode", "reliable")
	v.SetDefault("net.connect_timeout", "10s")
	v.SetDefault("net.linger_timeout", "2s")
	v.SetDefault("net.max_inbound", 1024)
	v.SetDefault("net.max_buffered", 1<<20)

	v.SetEnvPrefix("PEERLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("log_level", cfg.LogLevel).Msg("config ready")
	return &cfg, nil
}

// Level is the zerolog level named by LogLevel, info when unknown.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) ChannelOptions() link.ChannelOptions {
	return link.ChannelOptions{
		ReceiveBatch:   c.Net.ReceiveBatch,
		MaxMessageSize: c.Net.MaxMessageSize,
		Flags:          core.ParseSendMode(c.Net.SendMode),
	}
}
