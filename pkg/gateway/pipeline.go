package gateway

import (
	"context"
	"time"

	"github.com/secureiot/gateway-go/pkg/log"
)

// Responder publishes backend response bodies to a device's response
// topic. Satisfied by the broker client; faked in tests.
type Responder interface {
	Respond(deviceID string, body []byte) error
}

// dispatch is the broker message handler. Each publication runs under the
// per-message pipeline deadline; a panic is an internal error that
// abandons the message without taking down the process.
func (g *Gateway) dispatch(transportIdentity string, raw []byte) {
	g.inflight.Add(1)
	defer g.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("internal error, message abandoned",
				"transport_identity", transportIdentity, "panic", r)
			g.audit.Log(log.Event{
				Timestamp:         time.Now(),
				Kind:              log.KindError,
				TransportIdentity: transportIdentity,
				Error: &log.ErrorEventData{
					Message: "panic during message processing",
					Context: "dispatch",
				},
			})
		}
	}()

	ctx, cancel := context.WithTimeout(g.ctx, g.cfg.MessageDeadline())
	defer cancel()
	g.process(ctx, transportIdentity, raw)
}

// process runs one message through validation, forwarding and response
// routing. Validation failures end the pipeline silently (the device sees
// no response); forwarding failures are isolated to this message.
func (g *Gateway) process(ctx context.Context, transportIdentity string, raw []byte) {
	res := g.validator.Validate(transportIdentity, raw)
	if !res.Accepted {
		return
	}

	resp, err := g.forwarder.Forward(ctx, res.DeviceID, res.Payload)
	if err != nil {
		g.logger.Warn("backend forwarding failed",
			"device_id", res.DeviceID,
			"message_id", res.MessageID,
			"error", err)
		g.audit.Log(log.Event{
			Timestamp: time.Now(),
			Kind:      log.KindForward,
			DeviceID:  res.DeviceID,
			MessageID: res.MessageID,
			Forward:   &log.ForwardEvent{TransportError: err.Error()},
		})
		if g.cfg.PublishFailureResponses {
			g.respond(res.DeviceID, []byte(`{"error":"backend unavailable"}`))
		}
		return
	}
	g.forwarded.Add(1)

	// Non-2xx is still successful bridging: the device observes the
	// backend's error when error forwarding is enabled.
	responded := false
	if resp.OK() || g.cfg.ForwardBackendErrors {
		responded = g.respond(res.DeviceID, resp.Body)
	}

	g.audit.Log(log.Event{
		Timestamp: time.Now(),
		Kind:      log.KindForward,
		DeviceID:  res.DeviceID,
		MessageID: res.MessageID,
		Forward: &log.ForwardEvent{
			Status:    resp.StatusCode,
			BodySize:  len(resp.Body),
			Responded: responded,
		},
	})
}

// respond routes body to the device's response topic. Publish failures
// are per-message and non-fatal.
func (g *Gateway) respond(deviceID string, body []byte) bool {
	if err := g.responder.Respond(deviceID, body); err != nil {
		g.logger.Warn("response publish failed",
			"device_id", deviceID, "error", err)
		return false
	}
	return true
}
