package osc

import (
	"fmt"
	"log/slog"

	goosc "github.com/hypebeast/go-osc/osc"
)

// Client sends [key, value] pairs to the sound backend over UDP. Dispatch is
// fire-and-forget: no acknowledgement, no retry. Send errors are logged at
// the boundary and reported to the caller, but a lost packet never corrupts
// session state — the backend simply misses one update.
//
// Client is safe for concurrent use; the underlying UDP client carries no
// per-send state.
type Client struct {
	client *goosc.Client
}

// NewClient creates a client targeting the backend's OSC port (Sonic Pi
// defaults to 4560).
func NewClient(host string, port int) *Client {
	return &Client{client: goosc.NewClient(host, port)}
}

// Send transmits one [key, value] message to /ai. value must be a float64,
// an int, or a string; OSC carries them as float32, int32, and string.
func (c *Client) Send(key string, value any) error {
	msg := goosc.NewMessage(Address)
	msg.Append(key)
	switch v := value.(type) {
	case float64:
		msg.Append(float32(v))
	case float32:
		msg.Append(v)
	case int:
		msg.Append(int32(v))
	case int32:
		msg.Append(v)
	case string:
		msg.Append(v)
	default:
		return fmt.Errorf("osc: unsupported value type %T for key %q", value, key)
	}
	if err := c.client.Send(msg); err != nil {
		slog.Warn("osc send failed", "key", key, "err", err)
		return fmt.Errorf("osc: send %q: %w", key, err)
	}
	return nil
}

// SendBatch transmits the pairs in order. The first error is returned but
// the remaining messages are still attempted — a partial update is better
// than none for a best-effort control surface.
func (c *Client) SendBatch(msgs []Message) error {
	var firstErr error
	for _, m := range msgs {
		if err := c.Send(m.Key, m.Value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
