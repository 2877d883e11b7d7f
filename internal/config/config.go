// Package config loads serialdiag settings from defaults, an optional
// config file, SERIALDIAG_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SERIALDIAG_PORT_NAME.
const EnvPrefix = "SERIALDIAG"

// Config is the full set of runtime settings.
type Config struct {
	Port   PortConfig   `mapstructure:"port"`
	Report ReportConfig `mapstructure:"report"`
	Log    LogConfig    `mapstructure:"log"`
}

// PortConfig selects the device to probe.
type PortConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

// ReportConfig controls the status report written to stdout.
type ReportConfig struct {
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultPortName is COM4 on Windows and /dev/ttyUSB0 elsewhere.
func DefaultPortName() string {
	if runtime.GOOS == "windows" {
		return "COM4"
	}
	return "/dev/ttyUSB0"
}

// flag name -> config key
var flagKeys = map[string]string{
	"port":       "port.name",
	"format":     "report.format",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
}

// RegisterFlags adds the configurable flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", DefaultPortName(), "serial port to probe")
	fs.StringP("format", "f", "text", "report format (text, json)")
	fs.String("log-level", "warn", "log level (trace, debug, info, warn, error, disabled)")
	fs.String("log-format", "console", "log format (console, json)")
	fs.String("log-file", "", "also write logs to this file (rotated)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port.name", DefaultPortName())
	v.SetDefault("report.format", "text")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

// Load builds a Config. file may be empty. fs may be nil; only flags the
// user actually set override the file and environment.
func Load(file string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its field constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
