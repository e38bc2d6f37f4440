package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/secureiot/gateway-go/pkg/bridge"
	"github.com/secureiot/gateway-go/pkg/broker"
	"github.com/secureiot/gateway-go/pkg/command"
	"github.com/secureiot/gateway-go/pkg/config"
	"github.com/secureiot/gateway-go/pkg/credentials"
	"github.com/secureiot/gateway-go/pkg/log"
	"github.com/secureiot/gateway-go/pkg/replay"
	"github.com/secureiot/gateway-go/pkg/sign"
	"github.com/secureiot/gateway-go/pkg/transport"
	"github.com/secureiot/gateway-go/pkg/validate"
)

// drainTimeout bounds how long Stop waits for in-flight messages.
const drainTimeout = 20 * time.Second

// Options configures a Gateway. Only Config is required; the remaining
// fields override the components the gateway would otherwise build from
// the configuration (used by tests and embedders).
type Options struct {
	Config config.Config

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Audit overrides the audit sink built from Config.AuditLogPath.
	Audit log.Logger

	// Credentials overrides the SQLite store loaded from
	// Config.CredentialsPath.
	Credentials credentials.Store

	// Forwarder overrides the backend HTTP client.
	Forwarder bridge.Forwarder

	// Responder overrides the broker response publisher.
	Responder Responder

	// Clock overrides the system clock.
	Clock sign.Clock
}

// Gateway supervises the validation and bridging pipeline.
type Gateway struct {
	mu    sync.RWMutex
	state ServiceState

	cfg    config.Config
	logger *slog.Logger
	audit  log.Logger
	clock  sign.Clock

	// Owned audit file, closed on Stop (nil when audit is injected or
	// disabled)
	auditFile *log.FileLogger

	creds     credentials.Store
	cache     *replay.Cache
	validator *validate.Validator
	forwarder bridge.Forwarder
	responder Responder
	broker    *broker.Client
	cmdSrv    *command.Server

	// In-flight message tracking for shutdown draining
	inflight sync.WaitGroup

	// Messages forwarded to the backend
	forwarded atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	httpErrCh chan error
}

// New creates a gateway from options. Start brings it up.
func New(opts Options) (*Gateway, error) {
	if err := opts.Config.Validate(); err != nil {
		// Injected components can satisfy requirements the file config
		// leaves blank, so only hard-fail when nothing overrides them.
		if opts.Credentials == nil || opts.Forwarder == nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = sign.SystemClock{}
	}

	g := &Gateway{
		state:     StateStopped,
		cfg:       opts.Config,
		logger:    opts.Logger,
		audit:     opts.Audit,
		clock:     opts.Clock,
		creds:     opts.Credentials,
		forwarder: opts.Forwarder,
		responder: opts.Responder,
	}
	return g, nil
}

// State returns the current lifecycle state.
func (g *Gateway) State() ServiceState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Start brings the gateway up in dependency order and marks it ready.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.state != StateStopped {
		g.mu.Unlock()
		return fmt.Errorf("gateway already started (state %s)", g.state)
	}
	g.state = StateStarting
	g.mu.Unlock()

	g.ctx, g.cancel = context.WithCancel(context.Background())

	if err := g.start(ctx); err != nil {
		g.teardown()
		g.setState(StateStopped)
		return err
	}

	g.setState(StateRunning)
	g.logger.Info("gateway ready",
		"broker", fmt.Sprintf("%s:%d", g.cfg.BrokerHost, g.cfg.BrokerPort),
		"backend", g.cfg.BackendBaseURL,
		"devices", g.creds.Len())
	return nil
}

func (g *Gateway) start(ctx context.Context) error {
	// Audit sink
	if g.audit == nil {
		if g.cfg.AuditLogPath != "" {
			fl, err := log.NewFileLogger(g.cfg.AuditLogPath)
			if err != nil {
				return fmt.Errorf("failed to open audit log: %w", err)
			}
			g.auditFile = fl
			g.audit = fl
		} else {
			g.audit = log.NoopLogger{}
		}
	}

	// Credentials
	if g.creds == nil {
		store, err := credentials.LoadSQLite(g.cfg.CredentialsPath)
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		g.creds = store
		g.logger.Info("credentials loaded",
			"path", g.cfg.CredentialsPath, "devices", store.Len())
	}

	// Replay cache and validator
	g.cache = replay.NewCache(g.cfg.ReplayCacheSize)
	g.validator = validate.New(validate.Config{
		Credentials: g.creds,
		Cache:       g.cache,
		Clock:       g.clock,
		SkewBudget:  g.cfg.SkewBudgetSeconds,
		Logger:      g.logger,
		Audit:       g.audit,
	})

	// Backend forwarder
	if g.forwarder == nil {
		client, err := bridge.NewClient(g.cfg.BackendBaseURL, g.cfg.HTTPTimeout())
		if err != nil {
			return err
		}
		g.forwarder = client
	}

	// Broker connection
	tlsConf, err := transport.NewClientTLSConfig(&transport.TLSConfig{
		CAFile:   g.cfg.CAFile,
		CertFile: g.cfg.CertFile,
		KeyFile:  g.cfg.KeyFile,
	})
	if err != nil {
		return fmt.Errorf("failed to build broker TLS config: %w", err)
	}
	g.broker, err = broker.NewClient(broker.Config{
		Host:    g.cfg.BrokerHost,
		Port:    g.cfg.BrokerPort,
		TLS:     tlsConf,
		Handler: g.dispatch,
		Logger:  g.logger,
		Audit:   g.audit,
	})
	if err != nil {
		return err
	}
	if err := g.broker.Start(ctx); err != nil {
		return err
	}
	if g.responder == nil {
		g.responder = g.broker
	}

	// Command HTTP server
	g.cmdSrv, err = command.NewServer(command.Config{
		Addr:        g.cfg.CommandListenAddr,
		BearerToken: g.cfg.CommandBearerToken,
		Credentials: g.creds,
		Publisher:   g.broker,
		Clock:       g.clock,
		Logger:      g.logger,
		Audit:       g.audit,
	})
	if err != nil {
		return err
	}
	g.httpErrCh = make(chan error, 1)
	if err := g.cmdSrv.Start(g.httpErrCh); err != nil {
		return err
	}

	// Data subscription last: no message arrives before the rest is up
	if err := g.broker.Subscribe(); err != nil {
		return err
	}
	return nil
}

// Stop drains the gateway and releases resources.
func (g *Gateway) Stop() {
	g.mu.Lock()
	if g.state != StateRunning && g.state != StateStarting {
		g.mu.Unlock()
		return
	}
	g.state = StateStopping
	g.mu.Unlock()

	g.logger.Info("gateway stopping")

	// Stop accepting new HTTP requests
	if g.cmdSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := g.cmdSrv.Shutdown(ctx); err != nil {
			g.logger.Warn("command server shutdown failed", "error", err)
		}
		cancel()
	}

	// Stop accepting new publications
	if g.broker != nil {
		g.broker.Close()
	}

	// Drain in-flight validations to a terminal state
	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		g.logger.Warn("drain timed out, abandoning in-flight messages")
	}

	// Cancel whatever remains and release resources
	g.teardown()
	g.setState(StateStopped)
	g.logger.Info("gateway stopped")
}

func (g *Gateway) teardown() {
	if g.cancel != nil {
		g.cancel()
	}
	if g.auditFile != nil {
		if err := g.auditFile.Close(); err != nil {
			g.logger.Warn("audit log close failed", "error", err)
		}
		g.auditFile = nil
	}
}

func (g *Gateway) setState(s ServiceState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Stats is a point-in-time snapshot of the gateway counters.
type Stats struct {
	validate.Snapshot
	Forwarded uint64 `json:"messages_forwarded"`
}

// Stats returns the gateway counters.
func (g *Gateway) Stats() Stats {
	var s Stats
	if g.validator != nil {
		s.Snapshot = g.validator.Stats()
	}
	s.Forwarded = g.forwarded.Load()
	return s
}
