// Package config holds the process configuration of the wire server and
// loads it from a YAML file, WIRE_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/wire/httpwire"
	"github.com/vitalvas/wire/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WIRE"

const maxPortProbe = 100

// Configuration errors.
var (
	ErrConfigNotFound   = errors.New("config: file not found")
	ErrConfigReadFailed = errors.New("config: read failed")
	ErrInvalidConfig    = errors.New("config: invalid")
)

// Config is read-only after startup and shared by every connection.
type Config struct {
	// Address is the host:port to listen on.
	Address string `mapstructure:"address" yaml:"address"`

	// StaticDir is the root for GET requests.
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`

	// PortProbe is how many successive ports to try when Address is busy.
	PortProbe int `mapstructure:"port_probe" yaml:"port_probe"`

	// MaxConnections caps concurrently served connections. Zero is unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`

	MaxHeaderBytes int   `mapstructure:"max_header_bytes" yaml:"max_header_bytes"`
	MaxBodyBytes   int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxFrameBytes  int64 `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`

	// PingInterval is the WebSocket keep-alive period.
	PingInterval time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`

	// ServerName is the default "server" response header.
	ServerName string `mapstructure:"server_name" yaml:"server_name"`

	// KeepAliveTimeout is the idle time allowed between requests on a
	// persistent connection; KeepAliveMax the number of requests served on it.
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout" yaml:"keep_alive_timeout"`
	KeepAliveMax     int           `mapstructure:"keep_alive_max" yaml:"keep_alive_max"`

	// TrustRequestID reuses an incoming x-request-id instead of generating one.
	TrustRequestID bool `mapstructure:"trust_request_id" yaml:"trust_request_id"`

	// RequestIDVersion selects the UUID version of generated request IDs:
	// "v4" (random) or "v7" (time ordered).
	RequestIDVersion string `mapstructure:"request_id_version" yaml:"request_id_version"`

	Log logging.Config `mapstructure:"log" yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Address:          "127.0.0.1:8080",
		StaticDir:        "./static",
		MaxHeaderBytes:   httpwire.DefaultMaxHeaderBytes,
		MaxBodyBytes:     httpwire.DefaultMaxBodyBytes,
		MaxFrameBytes:    10 << 20,
		PingInterval:     30 * time.Second,
		ServerName:       httpwire.DefaultServerName,
		KeepAliveTimeout: 5 * time.Second,
		KeepAliveMax:     100,
		RequestIDVersion: "v4",
		Log:              logging.DefaultConfig(),
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	_, port, err := net.SplitHostPort(c.Address)
	if err != nil {
		return fmt.Errorf("%w: address %q: %w", ErrInvalidConfig, c.Address, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%w: address %q: bad port", ErrInvalidConfig, c.Address)
	}

	switch {
	case strings.TrimSpace(c.StaticDir) == "":
		return fmt.Errorf("%w: static_dir must not be empty", ErrInvalidConfig)
	case c.PortProbe < 0 || c.PortProbe > maxPortProbe:
		return fmt.Errorf("%w: port_probe must be between 0 and %d", ErrInvalidConfig, maxPortProbe)
	case c.MaxConnections < 0:
		return fmt.Errorf("%w: max_connections must not be negative", ErrInvalidConfig)
	case c.MaxHeaderBytes <= 0:
		return fmt.Errorf("%w: max_header_bytes must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.MaxFrameBytes <= 0:
		return fmt.Errorf("%w: max_frame_bytes must be positive", ErrInvalidConfig)
	case c.PingInterval <= 0:
		return fmt.Errorf("%w: ping_interval must be positive", ErrInvalidConfig)
	case c.KeepAliveTimeout < time.Second:
		return fmt.Errorf("%w: keep_alive_timeout must be at least 1s", ErrInvalidConfig)
	case c.KeepAliveMax <= 0:
		return fmt.Errorf("%w: keep_alive_max must be positive", ErrInvalidConfig)
	case c.RequestIDVersion != "v4" && c.RequestIDVersion != "v7":
		return fmt.Errorf("%w: request_id_version must be v4 or v7", ErrInvalidConfig)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Limits returns the request size limits.
func (c *Config) Limits() httpwire.Limits {
	return httpwire.Limits{
		MaxHeaderBytes: c.MaxHeaderBytes,
		MaxBodyBytes:   c.MaxBodyBytes,
	}
}

// KeepAliveHeader returns the value advertised in the keep-alive header.
func (c *Config) KeepAliveHeader() string {
	return fmt.Sprintf("timeout=%d, max=%d", int(c.KeepAliveTimeout/time.Second), c.KeepAliveMax)
}

// WriteOptions returns the response header defaults for c.
func (c *Config) WriteOptions() httpwire.WriteOptions {
	return httpwire.WriteOptions{
		ServerName: c.ServerName,
		KeepAlive:  c.KeepAliveHeader(),
	}
}

// YAML renders c as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"address":         "address",
	"static-dir":      "static_dir",
	"port-probe":      "port_probe",
	"max-connections": "max_connections",
	"ping-interval":   "ping_interval",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
}

// RegisterFlags defines the configuration flags.
func RegisterFlags(flags *pflag.FlagSet) {
	def := Default()

	flags.StringP("config", "c", "", "path to a YAML config file")
	flags.StringP("address", "a", def.Address, "listen address (host:port)")
	flags.String("static-dir", def.StaticDir, "directory served to GET requests")
	flags.Int("port-probe", def.PortProbe, "successive ports to try when the address is busy")
	flags.Int("max-connections", def.MaxConnections, "maximum concurrent connections (0 = unlimited)")
	flags.Duration("ping-interval", def.PingInterval, "WebSocket ping interval")
	flags.String("log-level", def.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", def.Log.Format, "log format (json, console)")
	flags.String("log-file", def.Log.File, "also write logs to this rotating file")
}

// Load builds the configuration from defaults, the file named by the
// "config" flag, WIRE_* environment variables and explicitly set flags, in
// increasing order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFile string
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}

		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %w", ErrConfigNotFound, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrConfigReadFailed, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigReadFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("address", def.Address)
	v.SetDefault("static_dir", def.StaticDir)
	v.SetDefault("port_probe", def.PortProbe)
	v.SetDefault("max_connections", def.MaxConnections)
	v.SetDefault("max_header_bytes", def.MaxHeaderBytes)
	v.SetDefault("max_body_bytes", def.MaxBodyBytes)
	v.SetDefault("max_frame_bytes", def.MaxFrameBytes)
	v.SetDefault("ping_interval", def.PingInterval)
	v.SetDefault("server_name", def.ServerName)
	v.SetDefault("keep_alive_timeout", def.KeepAliveTimeout)
	v.SetDefault("keep_alive_max", def.KeepAliveMax)
	v.SetDefault("trust_request_id", def.TrustRequestID)
	v.SetDefault("request_id_version", def.RequestIDVersion)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
	v.SetDefault("log.compress", def.Log.Compress)
}
