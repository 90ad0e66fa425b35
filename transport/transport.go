// Package transport implements the persistent WebSocket connection (C5):
// dialing, reconnection with a resume token, ping/pong latency, and the
// session lifecycle that pairing and setup gating hang off of.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/printerlink/agent/engine"
)

// Status is the coarse connection lifecycle state a Session moves
// through.
type Status int

const (
	Disconnected Status = iota
	Connecting
	AwaitingHello
	Paired
	InSetup
	Operational
	Reconnecting
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingHello:
		return "awaiting_hello"
	case Paired:
		return "paired"
	case InSetup:
		return "in_setup"
	case Operational:
		return "operational"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const apiVersion = "0.1"

// connectTimeout bounds how long Dial waits for the handshake, per §6.1.
const connectTimeout = 5 * time.Second

// Endpoint addresses a single-client connection target, §6.1.
type Endpoint struct {
	Host           string
	PrinterID      int64
	Token          string
	ReconnectToken string
}

// URL renders the wss:// dial target. A zero PrinterID/empty Token
// produces the pending-pairing address (id=0, token=0).
func (e Endpoint) URL() string {
	id, token := "0", "0"
	if e.PrinterID != 0 {
		id = fmt.Sprintf("%d", e.PrinterID)
	}
	if e.Token != "" {
		token = e.Token
	}

	u := url.URL{Scheme: "wss", Host: e.Host, Path: fmt.Sprintf("/%s/p/%s/%s", apiVersion, id, token)}
	if e.ReconnectToken != "" {
		u.Path += "/" + e.ReconnectToken
	}
	return u.String()
}

// Conn wraps a single live WebSocket, providing the text-frame
// send/receive primitives the rest of the pipeline depends on.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger
}

// Dial opens a new connection to ep, failing if the handshake does not
// complete within connectTimeout.
func Dial(ctx context.Context, ep Endpoint, logger *slog.Logger) (*Conn, error) {
	return DialURL(ctx, ep.URL(), logger)
}

// DialURL is Dial's underlying primitive: it dials a raw URL rather than
// rendering one from an Endpoint, which is what lets tests point a
// Session at an httptest server instead of a real wss:// host.
func DialURL(ctx context.Context, url string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	logger.Info("connecting", "component", "transport", "url", url)

	ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, &engine.TransportError{Err: err}
	}
	return &Conn{ws: ws, logger: logger}, nil
}

// Send writes a single text frame.
func (c *Conn) Send(raw []byte) error {
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return &engine.TransportError{Err: err}
	}
	return nil
}

// SendJSON marshals v and writes it as a text frame.
func (c *Conn) SendJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(raw)
}

// Read blocks for the next text frame. A close (clean or abrupt) is
// reported as a *TransportError and the caller should treat the
// connection as dead.
func (c *Conn) Read() ([]byte, error) {
	kind, raw, err := c.ws.ReadMessage()
	if err != nil {
		c.logRead(err)
		return nil, &engine.TransportError{Err: err}
	}
	if kind != websocket.TextMessage {
		return nil, &engine.ProtocolError{Reason: "expected text frame"}
	}
	return raw, nil
}

func (c *Conn) logRead(err error) {
	if ce, ok := err.(*websocket.CloseError); ok {
		c.logger.Info("disconnected", "component", "transport", "code", ce.Code, "reason", ce.Text)
		return
	}
	c.logger.Info("disconnected", "component", "transport", "err", err)
}

// Close sends a clean close frame and releases the socket.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}
