package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// SessionInfo is one multiplexed session's debug snapshot: its pid and how
// many frames are currently queued for it, unread.
type SessionInfo struct {
	PID        string `json:"pid"`
	QueueDepth int    `json:"queue_depth"`
}

// SessionReporter is the introspection surface DebugServer needs from
// whatever is actually multiplexing connections. multiplex.Multiplexer
// satisfies it; this package doesn't import multiplex (which already
// imports engine) to avoid a cycle.
type SessionReporter interface {
	Sessions() []SessionInfo
	Session(pid string) (SessionInfo, bool)
}

// DebugServer exposes a minimal operability surface — not a product UI,
// which is explicitly out of scope, but a read-only view of live
// multiplexed sessions and their pending inbound queue depth, for an
// operator to poke at: GET /debug/sessions and GET /debug/sessions/:pid.
type DebugServer struct {
	reporter SessionReporter
	logger   *slog.Logger
	router   *httprouter.Router
}

// NewDebugServer builds a DebugServer reading from reporter.
func NewDebugServer(reporter SessionReporter, logger *slog.Logger) *DebugServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DebugServer{reporter: reporter, logger: logger}
	router := httprouter.New()
	router.GET("/debug/sessions", s.handleList)
	router.GET("/debug/sessions/:pid", s.handleOne)
	s.router = router
	return s
}

func (s *DebugServer) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Serve runs the debug HTTP server until ctx is cancelled, suitable for
// handing to an engine.ProcMgr.
func (s *DebugServer) Serve(addr string) func(context.Context) error {
	return func(ctx context.Context) error {
		svr := &http.Server{Addr: addr, Handler: s}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svr.Shutdown(shutdownCtx)
		}()
		if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *DebugServer) handleList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.reporter.Sessions())
}

func (s *DebugServer) handleOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	info, ok := s.reporter.Session(ps.ByName("pid"))
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
