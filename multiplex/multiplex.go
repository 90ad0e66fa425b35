// Package multiplex implements the multi-connection multiplexer (C7): a
// single physical WebSocket carrying many logical printer sessions, each
// tagged on the wire by a "for" id equal to the client's unique id or
// numeric printer id (§4.7, §6.2). The multiplexer owns the real socket;
// each logical session sees a virtualised read/write pair — an unbounded
// per-pid inbound queue and a shared, FIFO outbound queue.
package multiplex

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/printerlink/agent/engine"
	"github.com/printerlink/agent/events"
	"github.com/printerlink/agent/transport"
)

// Endpoint addresses the multi-printer dial target, §6.1.
type Endpoint struct {
	Host string
}

func (e Endpoint) URL() string {
	return "wss://" + e.Host + "/0.1/mp"
}

// routingEnvelope peeks at an inbound frame's type and "for" tag without
// committing to the single-client InboundEnvelope shape, since
// multiplexed frames carry the extra routing field.
type routingEnvelope struct {
	Type string          `json:"type"`
	For  string          `json:"for"`
	Data json.RawMessage `json:"data"`
}

type outboundFrame struct {
	pid string
	raw []byte
}

// errClosed is returned by a Session's Read once its inbox has been torn
// down by Unregister.
var errClosed = errors.New("multiplex: session closed")

// unboundedQueue is a growable FIFO of frames guarded by a mutex, with a
// single-slot "doorbell" channel waking a blocked reader. Per §4.7/§5,
// per-pid inbound queues must be unbounded: the remote server is the
// only producer for any one pid and is slow relative to local delivery,
// so a fixed-size buffer would let one stalled consumer's queue fill up
// and block the single shared ReaderLoop goroutine, starving every other
// multiplexed session on the same socket. push never blocks.
type unboundedQueue struct {
	mu     sync.Mutex
	items  [][]byte
	notify chan struct{}
	closed bool
}

func newUnboundedQueue() *unboundedQueue {
	return &unboundedQueue{notify: make(chan struct{}, 1)}
}

func (q *unboundedQueue) push(raw []byte) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, raw)
	q.mu.Unlock()
	q.ring()
}

func (q *unboundedQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.ring()
}

func (q *unboundedQueue) ring() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *unboundedQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *unboundedQueue) pop(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			raw := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return raw, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, &engine.TransportError{Err: errClosed}
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Session is the virtualised read/write pair a logical printer client
// sees: Send stamps and enqueues onto the shared write queue, Read pulls
// frames the reader loop has routed to this pid.
type Session struct {
	pid   string
	inbox *unboundedQueue
	mux   *Multiplexer
}

// Send implements orchestrator.Sender: it hands raw (already carrying
// this session's "for" tag, per events.Marshal) to the multiplexer's
// shared writer queue.
func (s *Session) Send(raw []byte) error { return s.mux.enqueue(s.pid, raw) }

// Read blocks for the next frame routed to this session, or until ctx is
// done or the session is unregistered.
func (s *Session) Read(ctx context.Context) ([]byte, error) {
	return s.inbox.pop(ctx)
}

// Multiplexer owns one physical *transport.Conn and fans outbound frames
// from every registered Session into it, while routing inbound frames
// back out by their "for" tag.
type Multiplexer struct {
	conn   *transport.Conn
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	writeq   chan outboundFrame
}

// New wraps conn as a multiplexed carrier. writeBuffer bounds the shared
// outbound queue; a producer blocks once it's full, mirroring the bus
// worker's backpressure policy rather than dropping frames.
func New(conn *transport.Conn, writeBuffer int, logger *slog.Logger) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	if writeBuffer <= 0 {
		writeBuffer = 1024
	}
	return &Multiplexer{
		conn:     conn,
		logger:   logger,
		sessions: make(map[string]*Session),
		writeq:   make(chan outboundFrame, writeBuffer),
	}
}

// Register creates the logical session for pid, with a genuinely
// unbounded inbound queue (see unboundedQueue).
func (m *Multiplexer) Register(pid string) *Session {
	s := &Session{pid: pid, inbox: newUnboundedQueue(), mux: m}
	m.mu.Lock()
	m.sessions[pid] = s
	m.mu.Unlock()
	return s
}

// Unregister removes pid's session and closes its inbox, waking any
// blocked Read with errClosed.
func (m *Multiplexer) Unregister(pid string) {
	m.mu.Lock()
	s, ok := m.sessions[pid]
	delete(m.sessions, pid)
	m.mu.Unlock()
	if ok {
		s.inbox.close()
	}
}

// Sessions implements engine.SessionReporter: a snapshot of every
// currently-registered pid and its pending inbound queue depth, for the
// debug HTTP surface.
func (m *Multiplexer) Sessions() []engine.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]engine.SessionInfo, 0, len(m.sessions))
	for pid, s := range m.sessions {
		out = append(out, engine.SessionInfo{PID: pid, QueueDepth: s.inbox.len()})
	}
	return out
}

// Session implements engine.SessionReporter for a single pid.
func (m *Multiplexer) Session(pid string) (engine.SessionInfo, bool) {
	m.mu.Lock()
	s, ok := m.sessions[pid]
	m.mu.Unlock()
	if !ok {
		return engine.SessionInfo{}, false
	}
	return engine.SessionInfo{PID: pid, QueueDepth: s.inbox.len()}, true
}

func (m *Multiplexer) enqueue(pid string, raw []byte) error {
	m.writeq <- outboundFrame{pid: pid, raw: raw}
	return nil
}

// WriterLoop drains the shared outbound queue and writes each frame to
// the physical socket in FIFO order, §4.7. It's meant to be handed to an
// engine.ProcMgr (or run directly by the caller) and exits when stop
// fires or the socket errors.
func (m *Multiplexer) WriterLoop(stop *engine.Stoppable) error {
	for {
		select {
		case f := <-m.writeq:
			if err := m.conn.Send(f.raw); err != nil {
				return err
			}
		case <-stop.Done():
			return nil
		}
	}
}

// ReaderLoop decodes frames off the physical socket and either routes
// them to the pid-addressed session's inbox, or — for the two
// connection-lifecycle events that aren't addressed to any single
// session — republishes them on bus under "server.<type>", mirroring
// orchestrator.HandleInbound's convention for events with no local
// per-field handler. A frame addressed to an unregistered pid is
// dropped: the printer it names has already left this process.
func (m *Multiplexer) ReaderLoop(dispatcher events.Dispatcher, stop *engine.Stoppable) error {
	for {
		raw, err := m.conn.Read()
		if err != nil {
			return err
		}

		var env routingEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
			m.logger.Debug("malformed multiplexed frame", "component", "multiplex", "err", jsonErr)
			continue
		}

		if env.Type == "add_connection" || env.Type == "remove_connection" {
			dispatcher.Dispatch("server."+env.Type, env.Data, func(topic string, err error) {
				m.logger.Error("error handling server event", "component", "multiplex", "topic", topic, "err", err)
			})
			continue
		}

		if env.For == "" {
			m.logger.Debug("multiplexed frame without a for tag", "component", "multiplex", "type", env.Type)
			continue
		}

		m.mu.Lock()
		s, ok := m.sessions[env.For]
		m.mu.Unlock()
		if !ok {
			m.logger.Debug("multiplexed frame for unknown pid", "component", "multiplex", "pid", env.For)
			continue
		}

		s.inbox.push(raw)
	}
}

// AddConnectionPayload mirrors the server's add_connection event,
// announcing that a logical printer has joined the multiplex.
type AddConnectionPayload struct {
	PID      string `json:"pid"`
	UniqueID string `json:"unique_id"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

// RemoveConnectionPayload mirrors the server's remove_connection event.
type RemoveConnectionPayload struct {
	PID      string `json:"pid"`
	UniqueID string `json:"unique_id"`
	Deleted  bool   `json:"deleted"`
	Code     int    `json:"code"`
	Reason   string `json:"reason"`
}
