package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureiot/gateway-go/pkg/bridge"
	"github.com/secureiot/gateway-go/pkg/config"
	"github.com/secureiot/gateway-go/pkg/credentials"
	"github.com/secureiot/gateway-go/pkg/log"
	"github.com/secureiot/gateway-go/pkg/replay"
	"github.com/secureiot/gateway-go/pkg/sign"
	"github.com/secureiot/gateway-go/pkg/validate"
)

const (
	testDevice = "sensor_001"
	testNow    = int64(1727712050)
)

var testSecret = []byte("supersecretkey123")

// fakeForwarder records Forward calls and replies from a script.
type fakeForwarder struct {
	mu       sync.Mutex
	devices  []string
	payloads [][]byte
	resp     *bridge.Response
	err      error
}

func (f *fakeForwarder) Forward(_ context.Context, deviceID string, payload []byte) (*bridge.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.devices = append(f.devices, deviceID)
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return f.resp, nil
}

func (f *fakeForwarder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

// fakeResponder records response publications.
type fakeResponder struct {
	mu      sync.Mutex
	devices []string
	bodies  [][]byte
	err     error
}

func (r *fakeResponder) Respond(deviceID string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.devices = append(r.devices, deviceID)
	r.bodies = append(r.bodies, append([]byte(nil), body...))
	return nil
}

func (r *fakeResponder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

func newTestGateway(t *testing.T, cfg config.Config, fwd *fakeForwarder, rsp *fakeResponder) *Gateway {
	t.Helper()

	store, err := credentials.NewMemoryStore([]credentials.Record{
		{DeviceID: testDevice, SharedSecret: testSecret},
	})
	require.NoError(t, err)

	g, err := New(Options{
		Config:      cfg,
		Audit:       log.NoopLogger{},
		Credentials: store,
		Forwarder:   fwd,
		Responder:   rsp,
		Clock:       sign.FixedClock(testNow),
	})
	require.NoError(t, err)

	// Wire the pipeline directly; broker and HTTP server stay out of
	// these tests.
	g.cache = replay.NewCache(replay.DefaultCapacity)
	g.validator = validate.New(validate.Config{
		Credentials: store,
		Cache:       g.cache,
		Clock:       g.clock,
		SkewBudget:  cfg.SkewBudgetSeconds,
	})
	g.ctx, g.cancel = context.WithCancel(context.Background())
	t.Cleanup(g.cancel)
	return g
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.BackendBaseURL = "http://backend:9000"
	return cfg
}

func signedMessage(deviceID string, timestamp int64, messageID, payload string) []byte {
	sig := sign.Sign(deviceID, timestamp, messageID, []byte(payload), testSecret)
	return []byte(fmt.Sprintf(
		`{"device_id":%q,"timestamp":%d,"message_id":%q,"payload":%s,"signature":%q}`,
		deviceID, timestamp, messageID, payload, sig))
}

func TestDispatchForwardsExactPayload(t *testing.T) {
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 200, Body: []byte(`{"ok":true}`)}}
	rsp := &fakeResponder{}
	g := newTestGateway(t, testConfig(), fwd, rsp)

	payload := `{"temperature": 22.5, "humidity": 60}`
	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", payload))

	require.Equal(t, 1, fwd.calls())
	assert.Equal(t, testDevice, fwd.devices[0])
	assert.Equal(t, payload, string(fwd.payloads[0]),
		"forwarded body must be the verbatim on-wire payload bytes")

	require.Equal(t, 1, rsp.calls())
	assert.Equal(t, testDevice, rsp.devices[0])
	assert.Equal(t, `{"ok":true}`, string(rsp.bodies[0]))

	assert.Equal(t, uint64(1), g.Stats().Forwarded)
}

func TestDispatchRejectedMessageNotForwarded(t *testing.T) {
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 200}}
	rsp := &fakeResponder{}
	g := newTestGateway(t, testConfig(), fwd, rsp)

	g.dispatch(testDevice, []byte(`garbage`))
	g.dispatch(testDevice, signedMessage("sensor_002", testNow, "msg-1", `{"a":1}`))

	assert.Zero(t, fwd.calls())
	assert.Zero(t, rsp.calls())
	assert.Equal(t, uint64(2), g.Stats().Rejected)
}

func TestDispatchReplayForwardsOnce(t *testing.T) {
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 200, Body: []byte(`{}`)}}
	rsp := &fakeResponder{}
	g := newTestGateway(t, testConfig(), fwd, rsp)

	raw := signedMessage(testDevice, testNow, "msg-1", `{"a":1}`)
	g.dispatch(testDevice, raw)
	g.dispatch(testDevice, raw)
	g.dispatch(testDevice, raw)

	assert.Equal(t, 1, fwd.calls(), "duplicates must reach the backend exactly once")
	s := g.Stats()
	assert.Equal(t, uint64(3), s.Received)
	assert.Equal(t, uint64(1), s.Validated)
	assert.Equal(t, uint64(2), s.Rejected)
	assert.Equal(t, uint64(1), s.Forwarded)
}

func TestDispatchBackendErrorNotRouted(t *testing.T) {
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 503, Body: []byte(`{"error":"overloaded"}`)}}
	rsp := &fakeResponder{}
	g := newTestGateway(t, testConfig(), fwd, rsp)

	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", `{"a":1}`))

	assert.Equal(t, 1, fwd.calls())
	assert.Zero(t, rsp.calls(), "backend errors stay away from the device by default")
	assert.Equal(t, uint64(1), g.Stats().Forwarded,
		"a delivered non-2xx reply still counts as forwarded")
}

func TestDispatchBackendErrorRoutedWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.ForwardBackendErrors = true
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 503, Body: []byte(`{"error":"overloaded"}`)}}
	rsp := &fakeResponder{}
	g := newTestGateway(t, cfg, fwd, rsp)

	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", `{"a":1}`))

	require.Equal(t, 1, rsp.calls())
	assert.Equal(t, `{"error":"overloaded"}`, string(rsp.bodies[0]))
}

func TestDispatchTransportFailure(t *testing.T) {
	fwd := &fakeForwarder{err: errors.New("connection refused")}
	rsp := &fakeResponder{}
	g := newTestGateway(t, testConfig(), fwd, rsp)

	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", `{"a":1}`))

	assert.Zero(t, rsp.calls(), "no failure response unless configured")
	assert.Zero(t, g.Stats().Forwarded)
}

func TestDispatchTransportFailureResponseWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.PublishFailureResponses = true
	fwd := &fakeForwarder{err: errors.New("connection refused")}
	rsp := &fakeResponder{}
	g := newTestGateway(t, cfg, fwd, rsp)

	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", `{"a":1}`))

	require.Equal(t, 1, rsp.calls())
	assert.JSONEq(t, `{"error":"backend unavailable"}`, string(rsp.bodies[0]))
}

func TestDispatchResponsePublishFailureIsNonFatal(t *testing.T) {
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 200, Body: []byte(`{}`)}}
	rsp := &fakeResponder{err: errors.New("not connected")}
	g := newTestGateway(t, testConfig(), fwd, rsp)

	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", `{"a":1}`))

	// The next message is unaffected
	rsp.err = nil
	g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-2", `{"a":2}`))
	assert.Equal(t, 2, fwd.calls())
	assert.Equal(t, uint64(2), g.Stats().Forwarded)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	fwd := &fakeForwarder{resp: &bridge.Response{StatusCode: 200}}
	rsp := &fakeResponder{}
	g := newTestGateway(t, testConfig(), fwd, rsp)
	g.validator = nil // force a panic inside process

	assert.NotPanics(t, func() {
		g.dispatch(testDevice, signedMessage(testDevice, testNow, "msg-1", `{"a":1}`))
	})
}

func TestGatewayLifecycleGuards(t *testing.T) {
	g := newTestGateway(t, testConfig(), &fakeForwarder{}, &fakeResponder{})

	assert.Equal(t, StateStopped, g.State())

	// Stop on a never-started gateway is a no-op
	g.Stop()
	assert.Equal(t, StateStopped, g.State())
}

func TestNewRequiresValidConfig(t *testing.T) {
	// No injected components and an empty config: hard failure
	_, err := New(Options{Config: config.Config{}})
	assert.Error(t, err)
}
