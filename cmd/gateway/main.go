// Command gateway runs the SecureIoT gateway.
//
// The gateway terminates mutually-authenticated MQTT connections from
// field devices, validates every message against the five-check policy
// (schema, identity, freshness, replay, signature) and forwards accepted
// payloads to the backend over HTTP. A command endpoint lets the backend
// push signed commands to individual devices.
//
// Usage:
//
//	gateway [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-broker string      Broker host override
//	-backend string     Backend base URL override
//	-listen string      Command endpoint bind address override
//	-audit string       Audit log path override
//	-log-level string   Log level: debug, info, warn, error
//
// Examples:
//
//	# Run with a config file
//	gateway -config /etc/secureiot/gateway.yaml
//
//	# Override the broker host for a staging run
//	gateway -config gateway.yaml -broker staging-broker.internal
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/secureiot/gateway-go/pkg/config"
	"github.com/secureiot/gateway-go/pkg/gateway"
)

var (
	configPath string
	brokerHost string
	backendURL string
	listenAddr string
	auditPath  string
	logLevel   string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&brokerHost, "broker", "", "Broker host override")
	flag.StringVar(&backendURL, "backend", "", "Backend base URL override")
	flag.StringVar(&listenAddr, "listen", "", "Command endpoint bind address override")
	flag.StringVar(&auditPath, "audit", "", "Audit log path override")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg.LogLevel)

	gw, err := gateway.New(gateway.Options{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = gw.Start(startCtx)
	cancel()
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("shutting down", "signal", sig.String())
	gw.Stop()

	stats := gw.Stats()
	logger.Info("final statistics",
		"received", stats.Received,
		"validated", stats.Validated,
		"rejected", stats.Rejected,
		"forwarded", stats.Forwarded)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}
	if brokerHost != "" {
		cfg.BrokerHost = brokerHost
	}
	if backendURL != "" {
		cfg.BackendBaseURL = backendURL
	}
	if listenAddr != "" {
		cfg.CommandListenAddr = listenAddr
	}
	if auditPath != "" {
		cfg.AuditLogPath = auditPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

// setupLogging builds the process-wide slog logger.
func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
