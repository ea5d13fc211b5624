package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	ChannelsCSVPath string
	DBPath          string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Crawl settings
	WorkerCount   int
	Interval      time.Duration
	RetentionDays int
	FetchTimeout  time.Duration
	UserAgent     string

	// Event settings; an empty NATSURL disables publishing
	NATSURL     string
	NATSSubject string

	// Log settings
	LogLevel zerolog.Level
	LogJSON  bool
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		ChannelsCSVPath: DefaultChannelsCSVPath,
		DBPath:          DefaultDBPath,
		ServerHost:      DefaultServerHost,
		ServerPort:      DefaultServerPort,
		WorkerCount:     DefaultWorkerCount,
		Interval:        time.Duration(DefaultInterval) * time.Minute,
		RetentionDays:   DefaultRetentionDays,
		FetchTimeout:    DefaultFetchTimeout,
		UserAgent:       DefaultUserAgent,
		NATSSubject:     DefaultNATSSubject,
		LogLevel:        logLevel,
	}
}

// FromEnv returns the defaults overridden by FOLIO_* environment variables.
// Command-line flags are applied on top of this by the CLI.
func FromEnv() *Config {
	c := DefaultConfig()

	c.ChannelsCSVPath = GetEnvString(EnvChannelsCSVPath, c.ChannelsCSVPath)
	c.DBPath = GetEnvString(EnvDBPath, c.DBPath)
	c.ServerHost = GetEnvString(EnvServerHost, c.ServerHost)
	c.ServerPort = GetEnvInt(EnvServerPort, c.ServerPort)
	c.APIKey = GetEnvString(EnvAPIKey, c.APIKey)
	c.WorkerCount = GetEnvInt(EnvWorkerCount, c.WorkerCount)
	c.Interval = GetEnvDuration(EnvInterval, c.Interval)
	c.RetentionDays = GetEnvInt(EnvRetentionDays, c.RetentionDays)
	c.FetchTimeout = GetEnvDuration(EnvFetchTimeout, c.FetchTimeout)
	c.UserAgent = GetEnvString(EnvUserAgent, c.UserAgent)
	c.NATSURL = GetEnvString(EnvNATSURL, c.NATSURL)
	c.NATSSubject = GetEnvString(EnvNATSSubject, c.NATSSubject)
	c.LogLevel = GetEnvLogLevel(EnvLogLevel, c.LogLevel)
	c.LogJSON = GetEnvBool(EnvLogJSON, c.LogJSON)

	return c
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.ServerPort))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("retention days cannot be negative, got %d", c.RetentionDays))
	}
	return errors.Join(errs...)
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
