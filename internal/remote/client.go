package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/thingforge/thingforge/internal/protocol"
)

// Client drives a remote worker over a websocket.
type Client struct {
	conn *connection
}

// Dial connects to a server started with Serve or mounted as a Server.
func Dial(rawURL, secret string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{conn: newConnection(logger)}
	if err := c.conn.dial(rawURL, secret); err != nil {
		return nil, err
	}
	return c, nil
}

// Submit sends cmd and returns its request id.
func (c *Client) Submit(cmd protocol.Command) (string, error) {
	env, err := protocol.NewEnvelope(uuid.NewString(), cmd)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}
	return env.ID, c.Send(env)
}

// Send writes a raw envelope.
func (c *Client) Send(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.conn.send(data)
}

// Notifications streams everything the server publishes.
func (c *Client) Notifications() <-chan protocol.Command {
	return c.conn.notifyCh
}

// Await reads notifications until the Result of id arrives. Every other
// notification is passed to seen when it is not nil.
func (c *Client) Await(ctx context.Context, id string, seen func(protocol.Command)) (protocol.Result, error) {
	for {
		select {
		case n := <-c.conn.notifyCh:
			if r, ok := n.(protocol.Result); ok && r.RequestID == id {
				return r, nil
			}
			if seen != nil {
				seen(n)
			}
		case <-ctx.Done():
			return protocol.Result{}, ctx.Err()
		case <-c.conn.done:
			return protocol.Result{}, fmt.Errorf("connection closed while waiting for %s", id)
		}
	}
}

// Do submits cmd and waits for its result. When ctx ends first the server
// is asked to cancel the request.
func (c *Client) Do(ctx context.Context, cmd protocol.Command, seen func(protocol.Command)) (protocol.Result, error) {
	id, err := c.Submit(cmd)
	if err != nil {
		return protocol.Result{}, err
	}
	res, err := c.Await(ctx, id, seen)
	if err != nil && ctx.Err() != nil {
		// The caller gave up, so the server stops the request too.
		if _, cancelErr := c.Submit(protocol.Cancel{RequestID: id}); cancelErr != nil {
			c.conn.logger.Debug("cancel not sent", "request", id, "error", cancelErr)
		}
	}
	return res, err
}

// Close sends a close frame and stops the connection.
func (c *Client) Close() error {
	return c.conn.close()
}
