// Package config provides configuration loading for the gateway and its
// admin CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the gateway's full configuration.
type Config struct {
	RoutingRules  RoutingRulesConfig  `mapstructure:"routingRules"`
	RequestRouter RequestRouterConfig `mapstructure:"requestRouter"`
	Backends      []BackendConfig     `mapstructure:"backends"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	Routing       RoutingConfig       `mapstructure:"routing"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Database      DatabaseConfig      `mapstructure:"database"`
}

// RoutingRulesConfig controls the rules engine.
type RoutingRulesConfig struct {
	RulesEngineEnabled bool   `mapstructure:"rulesEngineEnabled"`
	RulesConfigPath    string `mapstructure:"rulesConfigPath"`
	// Selector chooses the Routing Group Selector variant: "header",
	// "rules", or "header-with-rules-fallback".
	Selector string `mapstructure:"selector"`
}

// RequestRouterConfig controls the client-facing listener.
type RequestRouterConfig struct {
	Port         int    `mapstructure:"port"`
	SSL          bool   `mapstructure:"ssl"`
	KeystorePath string `mapstructure:"keystorePath"`
	ExternalURL  string `mapstructure:"externalUrl"`
}

// BackendConfig is the initial backend set loaded at startup.
type BackendConfig struct {
	Name         string `mapstructure:"name"`
	ProxyTo      string `mapstructure:"proxyTo"`
	ExternalURL  string `mapstructure:"externalUrl"`
	RoutingGroup string `mapstructure:"routingGroup"`
	Active       bool   `mapstructure:"active"`
	DeepProbe    bool   `mapstructure:"deepProbe"`
}

// MonitorConfig controls backend health probing.
type MonitorConfig struct {
	ProbeIntervalSeconds int `mapstructure:"probeIntervalSeconds"`
	ProbeTimeoutMs       int `mapstructure:"probeTimeoutMs"`
}

// RoutingConfig controls the query-id binding cache.
type RoutingConfig struct {
	BindingTTLSeconds          int `mapstructure:"bindingTtlSeconds"`
	TerminalEvictionGraceSecs  int `mapstructure:"terminalEvictionGraceSeconds"`
	SweepIntervalSeconds       int `mapstructure:"sweepIntervalSeconds"`
	ShardCount                 int `mapstructure:"shardCount"`
}

// AdminConfig controls the separate administrative listener.
type AdminConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	// AuthTokens maps bearer tokens to the operator name they authenticate.
	// An empty map leaves the admin API unauthenticated, appropriate only
	// on a trusted internal network.
	AuthTokens map[string]string `mapstructure:"authTokens"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds optional Postgres configuration for the query-history sink.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		RoutingRules: RoutingRulesConfig{
			RulesEngineEnabled: false,
			RulesConfigPath:    "",
			Selector:           "header-with-rules-fallback",
		},
		RequestRouter: RequestRouterConfig{
			Port:        8080,
			SSL:         false,
			ExternalURL: "http://localhost:8080",
		},
		Monitor: MonitorConfig{
			ProbeIntervalSeconds: 5,
			ProbeTimeoutMs:       1000,
		},
		Routing: RoutingConfig{
			BindingTTLSeconds:         3600,
			TerminalEvictionGraceSecs: 15,
			SweepIntervalSeconds:      60,
			ShardCount:                32,
		},
		Admin: AdminConfig{
			Enabled: true,
			Port:    8081,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    5432,
			User:    "trinogateway",
			Name:    "trinogateway",
			SSLMode: "disable",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".trino-gateway"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("TRINOGW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("routingRules.rulesEngineEnabled", d.RoutingRules.RulesEngineEnabled)
	v.SetDefault("routingRules.selector", d.RoutingRules.Selector)
	v.SetDefault("requestRouter.port", d.RequestRouter.Port)
	v.SetDefault("requestRouter.ssl", d.RequestRouter.SSL)
	v.SetDefault("requestRouter.externalUrl", d.RequestRouter.ExternalURL)
	v.SetDefault("monitor.probeIntervalSeconds", d.Monitor.ProbeIntervalSeconds)
	v.SetDefault("monitor.probeTimeoutMs", d.Monitor.ProbeTimeoutMs)
	v.SetDefault("routing.bindingTtlSeconds", d.Routing.BindingTTLSeconds)
	v.SetDefault("routing.terminalEvictionGraceSeconds", d.Routing.TerminalEvictionGraceSecs)
	v.SetDefault("routing.sweepIntervalSeconds", d.Routing.SweepIntervalSeconds)
	v.SetDefault("routing.shardCount", d.Routing.ShardCount)
	v.SetDefault("admin.enabled", d.Admin.Enabled)
	v.SetDefault("admin.port", d.Admin.Port)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("database.enabled", d.Database.Enabled)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
}
