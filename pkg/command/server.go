package command

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secureiot/gateway-go/pkg/broker"
	"github.com/secureiot/gateway-go/pkg/credentials"
	"github.com/secureiot/gateway-go/pkg/log"
	"github.com/secureiot/gateway-go/pkg/sign"
	"github.com/secureiot/gateway-go/pkg/wire"
)

// maxBodySize caps the accepted command payload size.
const maxBodySize = 1 << 20 // 1 MiB

// Config configures the command server.
type Config struct {
	// Addr is the listen address, e.g. ":8081".
	Addr string

	// BearerToken is the shared secret the backend must present.
	BearerToken string

	// Credentials resolves target devices to their signing secrets.
	Credentials credentials.Store

	// Publisher delivers signed commands to the broker.
	Publisher broker.Publisher

	// Clock supplies command timestamps. Defaults to the system clock.
	Clock sign.Clock

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Audit receives one event per command request. Defaults to NoopLogger.
	Audit log.Logger
}

// Server is the command ingress HTTP server.
type Server struct {
	addr      string
	tokenHash [sha256.Size]byte
	creds     credentials.Store
	publisher broker.Publisher
	clock     sign.Clock
	logger    *slog.Logger
	audit     log.Logger

	httpSrv *http.Server
}

// NewServer creates a command server. Start must be called to serve.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = sign.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = log.NoopLogger{}
	}

	s := &Server{
		addr:      cfg.Addr,
		tokenHash: sha256.Sum256([]byte(cfg.BearerToken)),
		creds:     cfg.Credentials,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		audit:     cfg.Audit,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/command/", s.handleCommand)
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins serving on the configured address. It returns once the
// listener is bound; serving continues in a background goroutine whose
// terminal error is delivered to errCh (nil on clean shutdown).
func (s *Server) Start(errCh chan<- error) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("command listener failed: %w", err)
	}
	s.logger.Info("command server listening", "addr", ln.Addr().String())

	go func() {
		err := s.httpSrv.Serve(ln)
		if err == http.ErrServerClosed {
			err = nil
		}
		if errCh != nil {
			errCh <- err
		}
	}()
	return nil
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleCommand serves POST /command/{device_id}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.reply(w, r, "", http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	deviceID := strings.TrimPrefix(r.URL.Path, "/command/")
	if deviceID == "" || strings.Contains(deviceID, "/") {
		s.reply(w, r, deviceID, http.StatusNotFound, "unknown device")
		return
	}

	if !s.authorized(r) {
		s.reply(w, r, deviceID, http.StatusUnauthorized, "invalid bearer token")
		return
	}

	secret, ok := s.creds.Lookup(deviceID)
	if !ok {
		s.reply(w, r, deviceID, http.StatusNotFound, "unknown device")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.reply(w, r, deviceID, http.StatusBadRequest, "unreadable body")
		return
	}
	payload, err := compactObject(body)
	if err != nil {
		s.reply(w, r, deviceID, http.StatusBadRequest, "body is not a JSON object")
		return
	}

	cmd := &wire.Command{
		Timestamp: s.clock.Now(),
		MessageID: uuid.NewString(),
		Payload:   payload,
	}
	cmd.Signature = sign.SignCommand(cmd.Timestamp, cmd.MessageID, cmd.Payload, secret)

	encoded, err := wire.EncodeCommand(cmd)
	if err != nil {
		s.reply(w, r, deviceID, http.StatusInternalServerError, "encode failed")
		return
	}

	topic := broker.CommandTopic(deviceID)
	if err := s.publisher.Publish(topic, encoded); err != nil {
		s.logger.Warn("command publish failed",
			"device_id", deviceID, "topic", topic, "error", err)
		s.reply(w, r, deviceID, http.StatusBadGateway, "publish failed")
		return
	}

	s.logger.Info("command published",
		"device_id", deviceID,
		"message_id", cmd.MessageID,
		"topic", topic)
	s.audit.Log(log.Event{
		Timestamp: time.Now(),
		Kind:      log.KindCommand,
		DeviceID:  deviceID,
		MessageID: cmd.MessageID,
		Command:   &log.CommandEvent{Status: http.StatusAccepted, Topic: topic},
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"status":"accepted","message_id":%q}`, cmd.MessageID)
}

// authorized compares the bearer token in constant time. Both sides are
// hashed first so the comparison never leaks token length.
func (s *Server) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	presented := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(presented[:], s.tokenHash[:]) == 1
}

// reply writes an error status and records the audit event.
func (s *Server) reply(w http.ResponseWriter, _ *http.Request, deviceID string, status int, msg string) {
	s.audit.Log(log.Event{
		Timestamp: time.Now(),
		Kind:      log.KindCommand,
		DeviceID:  deviceID,
		Command:   &log.CommandEvent{Status: status},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

// compactObject validates that body is a JSON object and returns it in
// compact form. The compact bytes are both signed and published, so the
// device verifies exactly what the gateway serialized.
func compactObject(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
