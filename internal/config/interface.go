package config

import (
	"strings"
	"time"
)

// Provider defines the interface for accessing daemon settings.
// Values are immutable after loading; Watch produces a fresh Provider
// on every reload.
type Provider interface {
	// GetListen returns the address the websocket server binds to
	GetListen() string

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// IsDebug returns whether debug logging was requested
	IsDebug() bool

	// IsVerbose returns whether verbose logging was requested
	IsVerbose() bool

	// GetRefreshTimeout returns the timeout applied to each network bound refresh
	GetRefreshTimeout() time.Duration

	// GetSendQueue returns the outbound buffer size per connection
	GetSendQueue() int

	// GetIPEndpoint returns the geolocation lookup URL
	GetIPEndpoint() string

	// GetWeatherEndpoint returns the forecast lookup URL
	GetWeatherEndpoint() string

	// GetPIDFile returns the path of the single-instance PID file
	GetPIDFile() string
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "SYSFEED"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = strings.ToUpper(prefix)
		return nil
	}
}

// WithArgs replaces os.Args[1:] as the source of command line flags
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
