package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultListen          = "127.0.0.1:6123"
	DefaultLogLevel        = LogLevelInfo
	DefaultRefreshTimeout  = 30
	DefaultSendQueue       = 64
	DefaultIPEndpoint      = "https://ipinfo.io/json"
	DefaultWeatherEndpoint = "https://api.open-meteo.com/v1/forecast"
	DefaultPIDFile         = "/run/sysfeed.pid"

	defaultEnvPrefix = "SYSFEED"
	configName       = "sysfeed"
)

type Config struct {
	Listen          string `mapstructure:"listen"`
	LogLevel        string `mapstructure:"log_level"`
	Debug           bool   `mapstructure:"debug"`
	Verbose         bool   `mapstructure:"verbose"`
	RefreshTimeout  int    `mapstructure:"refresh_timeout"`
	SendQueue       int    `mapstructure:"send_queue"`
	IPEndpoint      string `mapstructure:"ip_endpoint"`
	WeatherEndpoint string `mapstructure:"weather_endpoint"`
	PIDFile         string `mapstructure:"pid_file"`

	file string
}

// Load reads settings from defaults, the config file, SYSFEED_* environment
// variables and command line flags, in increasing precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: defaultEnvPrefix,
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	defineFlags(flags)
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := o.configPath
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}
	if fromFlag, _ := flags.GetString("config"); fromFlag != "" {
		path = fromFlag
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{file: v.ConfigFileUsed()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("log_level", DefaultLogLevel.String())
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("refresh_timeout", DefaultRefreshTimeout)
	v.SetDefault("send_queue", DefaultSendQueue)
	v.SetDefault("ip_endpoint", DefaultIPEndpoint)
	v.SetDefault("weather_endpoint", DefaultWeatherEndpoint)
	v.SetDefault("pid_file", DefaultPIDFile)
}

func defineFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to the configuration file")
	flags.String("listen", DefaultListen, "Address for the websocket server")
	flags.String("log_level", DefaultLogLevel.String(), "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Int("refresh_timeout", DefaultRefreshTimeout, "Timeout in seconds for network bound refreshes")
	flags.Int("send_queue", DefaultSendQueue, "Outbound messages buffered per connection")
	flags.String("pid_file", DefaultPIDFile, "Path to the PID file")
}

func searchPaths() []string {
	paths := []string{"/etc/sysfeed"}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		paths = append(paths, filepath.Join(dir, configName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}

	return paths
}

// Validate checks ranges and enumerations of every setting.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Listen == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "listen address must not be empty")
	}
	if c.RefreshTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "refresh_timeout must be positive")
	}
	if c.SendQueue <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "send_queue must be positive")
	}
	if c.IPEndpoint == "" || c.WeatherEndpoint == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "provider endpoints must not be empty")
	}

	return nil
}

// File returns the config file that was read, or an empty string if
// settings came from defaults, environment and flags only.
func (c *Config) File() string {
	return c.file
}

func (c *Config) GetListen() string {
	return c.Listen
}

func (c *Config) GetLogLevel() string {
	return c.LogLevel
}

func (c *Config) IsDebug() bool {
	return c.Debug
}

func (c *Config) IsVerbose() bool {
	return c.Verbose
}

func (c *Config) GetRefreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeout) * time.Second
}

func (c *Config) GetSendQueue() int {
	return c.SendQueue
}

func (c *Config) GetIPEndpoint() string {
	return c.IPEndpoint
}

func (c *Config) GetWeatherEndpoint() string {
	return c.WeatherEndpoint
}

func (c *Config) GetPIDFile() string {
	return c.PIDFile
}
