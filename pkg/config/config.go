package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adfharrison1/go-nosql/pkg/wal"
)

// EnvPrefix prefixes every environment override, e.g. GONOSQL_DATA_DIR
const EnvPrefix = "GONOSQL"

// Config is the server configuration
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	HTTPPort int    `mapstructure:"http_port"`
	// Workers bounds concurrent line protocol connections
	Workers int `mapstructure:"workers"`

	Log LogConfig `mapstructure:"log"`
	WAL WALConfig `mapstructure:"wal"`

	// Collections are created at startup before the log is replayed
	Collections []string `mapstructure:"collections"`
	// Indexes maps a collection to the fields indexed at startup
	Indexes map[string][]string `mapstructure:"indexes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
}

type WALConfig struct {
	MaxFileSize   int64  `mapstructure:"max_file_size"`
	Durability    string `mapstructure:"durability"`
	ArchiveSealed bool   `mapstructure:"archive_sealed"`
}

// flagKeys maps command line flag names onto config keys
var flagKeys = map[string]string{
	"data-dir":  "data_dir",
	"host":      "host",
	"port":      "port",
	"http-port": "http_port",
	"workers":   "workers",
	"log-level": "log.level",
	"debug":     "log.debug",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("host", "")
	v.SetDefault("port", 8888)
	v.SetDefault("http_port", 8889)
	v.SetDefault("workers", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", false)
	v.SetDefault("wal.max_file_size", wal.DefaultMaxFileSize)
	v.SetDefault("wal.durability", "os")
	v.SetDefault("wal.archive_sealed", false)
	v.SetDefault("collections", []string{"users"})
	v.SetDefault("indexes", map[string][]string{})
}

// Load reads configuration from defaults, an optional config file,
// GONOSQL_* environment variables and changed flags, in increasing order of
// precedence. With an empty path, go-nosql.{yaml,json,toml} in the working
// directory is used when present.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("go-nosql")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.WAL.MaxFileSize <= 0 {
		return fmt.Errorf("wal.max_file_size must be positive, got %d", c.WAL.MaxFileSize)
	}
	if _, ok := wal.ParseDurability(c.WAL.Durability); !ok {
		return fmt.Errorf("unknown wal.durability %q", c.WAL.Durability)
	}
	return nil
}

// Durability returns the parsed WAL durability level
func (c *Config) Durability() wal.DurabilityLevel {
	level, _ := wal.ParseDurability(c.WAL.Durability)
	return level
}

// TCPAddr is the line protocol listen address
func (c *Config) TCPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPAddr is the HTTP API listen address
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}
