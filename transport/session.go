package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/printerlink/agent/config"
	"github.com/printerlink/agent/engine"
	"github.com/printerlink/agent/events"
	"github.com/printerlink/agent/intervals"
	"github.com/printerlink/agent/state"
)

// Session owns one printer's connection lifecycle: dialing, the
// connected/complete_setup/interval_change/pong handshake events, and
// reconnection with a resume token on transport failure.
type Session struct {
	mu     sync.Mutex
	host   string
	cfg    *config.Config
	store  config.Store
	state  *state.PrinterState
	bus    *events.Bus
	clocks *intervals.Registry
	logger *slog.Logger
	stop   *engine.Stoppable

	status         Status
	conn           *Conn
	reconnectToken string
	dial           DialFunc
}

// DialFunc opens a connection to ep. It exists so tests can point a
// Session at an httptest server instead of a real wss:// host; NewSession
// defaults it to Dial.
type DialFunc func(ctx context.Context, ep Endpoint, logger *slog.Logger) (*Conn, error)

// NewSession builds a Session for cfg, addressing host. clocks receives
// interval updates pushed down from the connected/interval_change
// events.
func NewSession(host string, cfg *config.Config, store config.Store, st *state.PrinterState, bus *events.Bus, clocks *intervals.Registry, logger *slog.Logger, stop *engine.Stoppable) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		host:   host,
		cfg:    cfg,
		store:  store,
		state:  st,
		bus:    bus,
		clocks: clocks,
		logger: logger,
		stop:   stop,
		status: Disconnected,
		dial:   Dial,
	}
}

// SetDialFunc overrides how Connect dials, for tests that need to point
// at something other than a real wss:// endpoint.
func (s *Session) SetDialFunc(f DialFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dial = f
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// InSetup reports whether the printer is currently gated by the setup
// whitelist (§3.2 invariant 5).
func (s *Session) InSetup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.InSetup
}

// Config returns the session's backing Config. Callers must not mutate
// it concurrently with the session's own handlers without holding
// whatever lock the caller itself uses to serialize access; NewSession's
// caller owns this Config and is expected to treat the session as the
// sole mutator once handed off.
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Session) endpoint() Endpoint {
	return Endpoint{
		Host:           s.host,
		PrinterID:      s.cfg.PrinterID,
		Token:          s.cfg.Token,
		ReconnectToken: s.reconnectToken,
	}
}

// Connect dials, transitioning through Connecting/AwaitingHello. It
// returns the live Conn on success, or a *engine.TransportError.
func (s *Session) Connect(ctx context.Context) (*Conn, error) {
	s.mu.Lock()
	s.status = Connecting
	ep := s.endpoint()
	dial := s.dial
	s.mu.Unlock()

	conn, err := dial(ctx, ep, s.logger)
	if err != nil {
		s.mu.Lock()
		s.status = Reconnecting
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.conn = conn
	s.status = AwaitingHello
	s.mu.Unlock()
	return conn, nil
}

// HandleNewToken applies a "new_token" event: the server re-issues the
// pairing token and short id, and a non-empty short id means the
// printer is (re)entering setup. Per §3.3, Config is persisted on every
// change, so the newly assigned token and short id survive a restart
// even if the handshake never reaches complete_setup.
func (s *Session) HandleNewToken(ctx context.Context, token, shortID string) error {
	s.mu.Lock()
	s.cfg.NewToken(token)
	s.cfg.ShortID = shortID
	s.cfg.InSetup = shortID != ""
	cfg := s.cfg
	store := s.store
	s.mu.Unlock()

	if store != nil {
		return store.Put(ctx, cfg)
	}
	return nil
}

// HandleConnected applies the "connected" handshake event: §4.5. Per
// §3.3, Config is persisted immediately since this is the point the
// server hands the client its short id and resume token.
func (s *Session) HandleConnected(ctx context.Context, shortID, name, reconnectToken string, inSetup bool, intervalOverrides map[intervals.Name]time.Duration) error {
	s.mu.Lock()

	s.reconnectToken = reconnectToken
	s.cfg.Name = name
	s.cfg.ShortID = shortID
	s.cfg.InSetup = inSetup

	for clock, d := range intervalOverrides {
		s.clocks.Set(clock, d)
	}

	if inSetup {
		s.status = InSetup
		s.state.SetCurrentDisplayMessage("In setup with Code: " + shortID)
	} else {
		s.status = Paired
	}

	cfg := s.cfg
	store := s.store
	s.mu.Unlock()

	if store != nil {
		return store.Put(ctx, cfg)
	}
	return nil
}

// HandleSetupComplete applies the "complete_setup" event: marks
// state_change and machine_data always-dirty so the server sees a fresh
// snapshot immediately after pairing, clears in_setup, and persists the
// now-paired config.
func (s *Session) HandleSetupComplete(ctx context.Context, printerID int64) error {
	s.mu.Lock()
	s.cfg.CompleteSetup(printerID)
	s.cfg.InSetup = false
	s.status = Operational
	s.mu.Unlock()

	s.state.MarkEventDirty(state.EventStateChange)
	s.state.MarkEventDirty(state.EventMachineData)
	s.state.SetCurrentDisplayMessage("Setup complete")

	if s.store != nil {
		return s.store.Put(ctx, s.cfg)
	}
	return nil
}

// HandleIntervalChange applies an "interval_change" event.
func (s *Session) HandleIntervalChange(overrides map[intervals.Name]time.Duration) {
	for name, d := range overrides {
		s.clocks.Set(name, d)
	}
}

// HandlePong stamps latency.pong with now (seconds since epoch, matching
// the original's time.time() units).
func (s *Session) HandlePong(now time.Time) {
	state.SetField(&s.state.Latency.Node, "pong", &s.state.Latency.Pong, float64(now.UnixNano())/1e9)
}

// Disconnect records a transport failure: reconnect token is preserved
// (so the next Connect resumes the session) and status demotes to
// Reconnecting.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.status = Reconnecting
}

// DisconnectClean drops the reconnect token, since a clean close means
// the server ended the session deliberately rather than the transport
// failing underneath it.
func (s *Session) DisconnectClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.reconnectToken = ""
	s.status = Disconnected
}
