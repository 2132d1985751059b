package hookrelay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Client sends requests to a running Server.
type Client struct {
	conn    *nats.Conn
	subject string
}

// Dial connects a client to the subject in cfg.
func Dial(cfg NATSConfig) (*Client, error) {
	conn, err := connect(cfg, "hookrelay-client")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Client{conn: conn, subject: cfg.Subject}, nil
}

// Dispatch asks the server to evaluate one event.
func (c *Client) Dispatch(ctx context.Context, event, subject string, payload json.RawMessage) (*Reply, error) {
	return c.Do(ctx, Request{Op: OpDispatch, Event: event, Subject: subject, Payload: payload})
}

// Compose asks the server to expand a slash command.
func (c *Client) Compose(ctx context.Context, text, sessionID string) (*Reply, error) {
	return c.Do(ctx, Request{Op: OpCompose, Text: text, SessionID: sessionID})
}

// Do sends req and waits for the reply or for ctx to end.
func (c *Client) Do(ctx context.Context, req Request) (*Reply, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	data, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	msg, err := c.conn.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", req.ID, err)
	}

	var reply Reply
	if err := sonic.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return &reply, nil
}

// Close closes the NATS connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
