// Package config loads pdf2docx settings from defaults, an optional config
// file and PDF2DOCX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"github.com/thywilljoshua/pdf-to-docx/internal/logging"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
)

const (
	EnvPrefix = "PDF2DOCX"
	FileName  = "pdf2docx"
)

type Config struct {
	Convert ConvertConfig `mapstructure:"convert"`
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Log     LogConfig     `mapstructure:"log"`
}

type ConvertConfig struct {
	Mode          string  `mapstructure:"mode"`
	Scale         float64 `mapstructure:"scale"`
	ImageWidth    float64 `mapstructure:"image_width"`
	Workers       int     `mapstructure:"workers"`
	Engine        string  `mapstructure:"engine"`
	MaxInputBytes int64   `mapstructure:"max_input_bytes"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type AIConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("convert.mode", convert.TextAndImages.String())
	v.SetDefault("convert.scale", convert.DefaultScale)
	v.SetDefault("convert.image_width", convert.DefaultImageWidth)
	v.SetDefault("convert.workers", 1)
	v.SetDefault("convert.engine", string(pdf.EngineFitz))
	v.SetDefault("convert.max_input_bytes", int64(256<<20))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", int64(64<<20))
	v.SetDefault("server.timeout", 2*time.Minute)

	v.SetDefault("ai.provider", string(ai.ProviderOff))
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", ai.DefaultGeminiModel)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Setup wires environment lookup and the config file search into v. An
// explicit cfgFile replaces the search.
func Setup(v *viper.Viper, cfgFile string) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "GOOGLE_API_KEY")
}

// ReadFile reads the configured file. A missing file is not an error unless
// it was named explicitly.
func ReadFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load decodes and validates v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := convert.ParseMode(c.Convert.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := pdf.ParseEngine(c.Convert.Engine); err != nil {
		errs = append(errs, err)
	}
	if c.Convert.Scale <= 0 {
		errs = append(errs, fmt.Errorf("convert.scale must be > 0, got %v", c.Convert.Scale))
	}
	if c.Convert.ImageWidth <= 0 {
		errs = append(errs, fmt.Errorf("convert.image_width must be > 0, got %v", c.Convert.ImageWidth))
	}
	if c.Convert.Workers < 1 {
		errs = append(errs, fmt.Errorf("convert.workers must be >= 1, got %d", c.Convert.Workers))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be > 0, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, fmt.Errorf("server.timeout must not be negative, got %s", c.Server.Timeout))
	}
	if _, err := ai.ParseProvider(c.AI.Provider); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want %s)", c.Log.Format, strings.Join(logging.Formats, "|")))
	}
	return errors.Join(errs...)
}

// ConvertRequest returns the validated conversion defaults as a run config.
func (c Config) ConvertRequest() (convert.Config, error) {
	mode, err := convert.ParseMode(c.Convert.Mode)
	if err != nil {
		return convert.Config{}, err
	}
	return convert.Config{
		Mode:          mode,
		Scale:         c.Convert.Scale,
		ImageWidth:    c.Convert.ImageWidth,
		MaxInputBytes: c.Convert.MaxInputBytes,
	}, nil
}
