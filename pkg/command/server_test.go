package command

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureiot/gateway-go/pkg/credentials"
	"github.com/secureiot/gateway-go/pkg/sign"
	"github.com/secureiot/gateway-go/pkg/wire"
)

const (
	testToken = "backend-token-1"
	testNow   = int64(1727712050)
)

var testSecret = []byte("supersecretkey123")

// fakePublisher records published commands and optionally fails.
type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestServer(t *testing.T, pub *fakePublisher) *Server {
	t.Helper()

	store, err := credentials.NewMemoryStore([]credentials.Record{
		{DeviceID: "sensor_001", SharedSecret: testSecret},
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Addr:        ":0",
		BearerToken: testToken,
		Credentials: store,
		Publisher:   pub,
		Clock:       sign.FixedClock(testNow),
	})
	require.NoError(t, err)
	return srv
}

func postCommand(srv *Server, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCommandAccepted(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, pub)

	rec := postCommand(srv, "/command/sensor_001", testToken, `{"action": "reboot", "delay": 5}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var reply struct {
		Status    string `json:"status"`
		MessageID string `json:"message_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "accepted", reply.Status)
	assert.NotEmpty(t, reply.MessageID)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "device/sensor_001/command", pub.topics[0])

	// The published command carries the gateway's timestamp, the returned
	// message_id, the compacted payload and a verifiable signature.
	var cmd wire.Command
	require.NoError(t, json.Unmarshal(pub.payloads[0], &cmd))
	assert.Equal(t, testNow, cmd.Timestamp)
	assert.Equal(t, reply.MessageID, cmd.MessageID)
	assert.Equal(t, `{"action":"reboot","delay":5}`, string(cmd.Payload))
	assert.True(t, sign.VerifyCommand(cmd.Timestamp, cmd.MessageID, cmd.Payload, testSecret, cmd.Signature))
}

func TestCommandUnauthorized(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, pub)

	t.Run("WrongToken", func(t *testing.T) {
		rec := postCommand(srv, "/command/sensor_001", "wrong-token", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("NoToken", func(t *testing.T) {
		rec := postCommand(srv, "/command/sensor_001", "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("NotBearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/command/sensor_001", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Basic "+testToken)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	assert.Empty(t, pub.topics, "unauthorized requests must not publish")
}

func TestCommandUnknownDevice(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, pub)

	rec := postCommand(srv, "/command/sensor_999", testToken, `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, pub.topics)
}

func TestCommandBadPath(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, pub)

	for _, path := range []string{"/command/", "/command/a/b"} {
		rec := postCommand(srv, path, testToken, `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestCommandBadBody(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, pub)

	for _, body := range []string{``, `not json`, `[1,2]`, `"scalar"`, `42`} {
		rec := postCommand(srv, "/command/sensor_001", testToken, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, pub.topics)
}

func TestCommandMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/command/sensor_001", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCommandPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	srv := newTestServer(t, pub)

	rec := postCommand(srv, "/command/sensor_001", testToken, `{"action":"reboot"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCommandUniqueMessageIDs(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, pub)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		rec := postCommand(srv, "/command/sensor_001", testToken, `{"n":1}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		var reply struct {
			MessageID string `json:"message_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
		assert.False(t, seen[reply.MessageID], "duplicate message_id %s", reply.MessageID)
		seen[reply.MessageID] = true
	}
}

func TestNewServerValidation(t *testing.T) {
	store, err := credentials.NewMemoryStore(nil)
	require.NoError(t, err)

	cases := []Config{
		{BearerToken: "t", Credentials: store, Publisher: &fakePublisher{}},
		{Addr: ":0", Credentials: store, Publisher: &fakePublisher{}},
		{Addr: ":0", BearerToken: "t", Publisher: &fakePublisher{}},
		{Addr: ":0", BearerToken: "t", Credentials: store},
	}
	for i, cfg := range cases {
		if _, err := NewServer(cfg); err == nil {
			t.Errorf("case %d: NewServer() error = nil", i)
		}
	}
}
