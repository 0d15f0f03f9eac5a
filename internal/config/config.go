package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel     string        `mapstructure:"log_level"`
	StaticPath   string        `mapstructure:"static_path"`
	Secret       string        `mapstructure:"secret" validate:"required"`
	ReadLimit    int64         `mapstructure:"read_limit" validate:"min=1024"`
	PingPeriod   time.Duration `mapstructure:"ping_period" validate:"min=1s"`
	WriteWait    time.Duration `mapstructure:"write_wait" validate:"gt=0s"`
	SendBuffer   int           `mapstructure:"send_buffer" validate:"min=1"`
	InboundQueue int           `mapstructure:"inbound_queue" validate:"min=1"`
	HistoryLimit int           `mapstructure:"history_limit" validate:"min=0"`
	RateLimit    RateLimit     `mapstructure:"rate_limit"`
	STT          STT           `mapstructure:"stt"`
}

type RateLimit struct {
	Frames   int           `mapstructure:"frames" validate:"min=0"`
	Interval time.Duration `mapstructure:"interval"`
}

type STT struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=openai disabled"`
	APIKey        string        `mapstructure:"api_key" validate:"required_if=Backend openai"`
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model         string        `mapstructure:"model"`
	Language      string        `mapstructure:"language"`
	SampleRate    int           `mapstructure:"sample_rate" validate:"min=8000"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent" validate:"min=1"`
}

// Flags declares the command line overrides bound into viper.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("transcriber", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (overrides CONFIG_ENV lookup)")
	fs.Int("port", 0, "listen port")
	fs.String("mode", "", "gin mode: debug, release or test")
	fs.String("log_level", "", "zerolog level")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8001)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("read_limit", 4<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("inbound_queue", 16)
	v.SetDefault("history_limit", 1000)
	v.SetDefault("rate_limit.frames", 20)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("stt.backend", "disabled")
	v.SetDefault("stt.model", "whisper-1")
	v.SetDefault("stt.sample_rate", 16000)
	v.SetDefault("stt.timeout", "60s")
	v.SetDefault("stt.max_concurrent", 2)
}

// Load reads config/config.<CONFIG_ENV>.yaml, env vars prefixed TRANSCRIBER_
// and the given flags, in increasing priority. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("TRANSCRIBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileName := ""
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, nil, fmt.Errorf("bind flags: %w", err)
		}
		fileName, _ = fs.GetString("config")
	}
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("stt", cfg.STT.Backend).Msg("config ready")
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyLogLevel sets the global zerolog level; unknown levels fall back to info.
func ApplyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// WatchLogLevel re-applies log_level whenever the config file changes.
func WatchLogLevel(v *viper.Viper) {
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		level := v.GetString("log_level")
		ApplyLogLevel(level)
		log.Info().Str("module", "config").Str("file", e.Name).Str("log_level", level).Msg("config changed")
	})
	v.WatchConfig()
}
