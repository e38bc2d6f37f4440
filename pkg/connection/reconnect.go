package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// State represents the broker link state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc is called to establish a connection.
// It should return nil on success or an error on failure.
type ConnectFunc func(ctx context.Context) error

// Manager manages connection lifecycle with automatic reconnection.
type Manager struct {
	mu sync.RWMutex

	// Current state
	state State

	// Backoff calculator
	backoff *Backoff

	// Connection function
	connectFn ConnectFunc

	// Auto-reconnect enabled
	autoReconnect bool

	// Per-attempt timeout applied during reconnection
	attemptTimeout time.Duration

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for reconnection goroutine
	wg sync.WaitGroup

	// Channel to signal reconnection should start
	reconnectCh chan struct{}

	// Callbacks
	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a new connection manager.
func NewManager(connectFn ConnectFunc) *Manager {
	return NewManagerWithBackoff(connectFn, NewBackoff())
}

// NewManagerWithBackoff creates a connection manager with a custom backoff.
func NewManagerWithBackoff(connectFn ConnectFunc, backoff *Backoff) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:          StateDisconnected,
		backoff:        backoff,
		connectFn:      connectFn,
		autoReconnect:  true,
		attemptTimeout: 30 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
		reconnectCh:    make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// OnStateChange registers a callback invoked on every state transition.
// Must be called before Connect.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.onStateChange = fn
}

// OnConnected registers a callback invoked after each successful connection.
// Must be called before Connect.
func (m *Manager) OnConnected(fn func()) {
	m.onConnected = fn
}

// OnDisconnected registers a callback invoked when the connection is lost.
// Must be called before Connect.
func (m *Manager) OnDisconnected(fn func()) {
	m.onDisconnected = fn
}

// OnReconnecting registers a callback invoked before each reconnect attempt.
// Must be called before Connect.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.onReconnecting = fn
}

// Connect initiates a connection.
// Returns ErrAlreadyConnected if already connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrConnectionClosed
	}

	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(oldState, StateConnecting)
	}

	err := m.connectFn(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		if m.onStateChange != nil {
			m.onStateChange(StateConnecting, StateDisconnected)
		}
		return err
	}

	m.state = StateConnected
	m.backoff.Reset()
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(StateConnecting, StateConnected)
	}
	if m.onConnected != nil {
		m.onConnected()
	}

	return nil
}

// NotifyConnectionLost should be called when a connection loss is detected.
// This triggers automatic reconnection if enabled.
func (m *Manager) NotifyConnectionLost() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	autoReconnect := m.autoReconnect

	if autoReconnect {
		m.state = StateReconnecting
	} else {
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(oldState, m.state)
	}
	if m.onDisconnected != nil {
		m.onDisconnected()
	}

	if autoReconnect {
		m.triggerReconnect()
	}
}

// StartReconnectLoop starts the background reconnection loop.
// Must be called once before reconnection will work.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close shuts down the connection manager.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(oldState, StateClosed)
	}

	m.cancel()
	m.wg.Wait()
}

// triggerReconnect signals that reconnection should be attempted.
func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

// reconnectLoop runs in a goroutine and handles reconnection attempts.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// attemptReconnect performs reconnection with backoff.
func (m *Manager) attemptReconnect() {
	for {
		m.mu.RLock()
		state := m.state
		m.mu.RUnlock()

		if state == StateClosed || state == StateConnected {
			return
		}

		delay := m.backoff.Next()
		attempts := m.backoff.Attempts()

		if m.onReconnecting != nil {
			m.onReconnecting(attempts, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		if m.state == StateClosed || m.state == StateConnected {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(m.ctx, m.attemptTimeout)
		err := m.connectFn(ctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			oldState := m.state
			m.state = StateConnected
			m.backoff.Reset()
			m.mu.Unlock()

			if m.onStateChange != nil {
				m.onStateChange(oldState, StateConnected)
			}
			if m.onConnected != nil {
				m.onConnected()
			}
			return
		}
		// Connection failed, loop for another attempt
	}
}
