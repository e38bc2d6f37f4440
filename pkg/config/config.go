// Package config loads and validates the gateway configuration.
//
// Configuration comes from a YAML file with sane defaults; cmd/gateway
// layers flag overrides on top. Validation failures are the only fatal
// error class in the gateway - every later failure is isolated to a
// single message.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultBrokerPort         = 8883
	DefaultSkewBudgetSeconds  = 300
	DefaultReplayCacheSize    = 1000
	DefaultHTTPTimeoutSeconds = 10
	DefaultMessageDeadline    = 15
	DefaultCommandListenAddr  = ":8081"
)

// Config is the gateway configuration.
type Config struct {
	// Broker endpoint for the ingress subscription.
	BrokerHost string `yaml:"broker_host"`
	BrokerPort int    `yaml:"broker_port"`

	// Trust anchor and gateway identity for mutual TLS.
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// BackendBaseURL is the URL prefix for backend forwarding.
	BackendBaseURL string `yaml:"backend_base_url"`

	// SkewBudgetSeconds is the freshness tolerance.
	SkewBudgetSeconds int64 `yaml:"skew_budget_seconds"`

	// ReplayCacheSize is the per-device identifier retention.
	ReplayCacheSize int `yaml:"replay_cache_size"`

	// HTTPTimeoutSeconds bounds each backend request.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`

	// MessageDeadlineSeconds bounds the whole per-message pipeline.
	// Must exceed the HTTP timeout.
	MessageDeadlineSeconds int `yaml:"message_deadline_seconds"`

	// CommandBearerToken is the shared secret accepted by the command
	// endpoint.
	CommandBearerToken string `yaml:"command_bearer_token"`

	// CommandListenAddr is the bind address for the command endpoint.
	CommandListenAddr string `yaml:"command_listen_addr"`

	// CredentialsPath is the path to the devices table.
	CredentialsPath string `yaml:"credentials_path"`

	// AuditLogPath enables the CBOR audit trail when set.
	AuditLogPath string `yaml:"audit_log_path"`

	// ForwardBackendErrors routes non-2xx backend bodies to the device's
	// response topic. 2xx bodies are always routed.
	ForwardBackendErrors bool `yaml:"forward_backend_errors"`

	// PublishFailureResponses surfaces backend transport failures on the
	// response topic. Disabled by default.
	PublishFailureResponses bool `yaml:"publish_failure_responses"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a configuration populated with defaults.
func Default() Config {
	return Config{
		BrokerHost:             "localhost",
		BrokerPort:             DefaultBrokerPort,
		SkewBudgetSeconds:      DefaultSkewBudgetSeconds,
		ReplayCacheSize:        DefaultReplayCacheSize,
		HTTPTimeoutSeconds:     DefaultHTTPTimeoutSeconds,
		MessageDeadlineSeconds: DefaultMessageDeadline,
		CommandListenAddr:      DefaultCommandListenAddr,
		LogLevel:               "info",
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for startup.
func (c *Config) Validate() error {
	if c.BrokerHost == "" {
		return fmt.Errorf("broker_host is required")
	}
	if c.BrokerPort <= 0 || c.BrokerPort > 65535 {
		return fmt.Errorf("broker_port %d is out of range", c.BrokerPort)
	}
	if c.CAFile == "" || c.CertFile == "" || c.KeyFile == "" {
		return fmt.Errorf("ca_file, cert_file and key_file are required")
	}
	if c.BackendBaseURL == "" {
		return fmt.Errorf("backend_base_url is required")
	}
	if c.CommandBearerToken == "" {
		return fmt.Errorf("command_bearer_token is required")
	}
	if c.CredentialsPath == "" {
		return fmt.Errorf("credentials_path is required")
	}
	if c.SkewBudgetSeconds <= 0 {
		return fmt.Errorf("skew_budget_seconds must be positive")
	}
	if c.ReplayCacheSize <= 0 {
		return fmt.Errorf("replay_cache_size must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http_timeout_seconds must be positive")
	}
	if c.MessageDeadlineSeconds <= c.HTTPTimeoutSeconds {
		return fmt.Errorf("message_deadline_seconds (%d) must exceed http_timeout_seconds (%d)",
			c.MessageDeadlineSeconds, c.HTTPTimeoutSeconds)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// HTTPTimeout returns the backend request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// MessageDeadline returns the per-message pipeline deadline as a duration.
func (c *Config) MessageDeadline() time.Duration {
	return time.Duration(c.MessageDeadlineSeconds) * time.Second
}
