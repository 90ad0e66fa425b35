// Package pairing exposes a small local HTTP surface an operator (or the
// printer's own touchscreen, where one exists) can hit while a printer is
// still unclaimed: a status endpoint describing where setup stands, and a
// QR code encoding the claim URL so a phone can finish the handshake
// without anyone typing the short setup code by hand.
//
// This never talks to the remote service directly — it only reads
// whatever config.Store already has on disk, the same row the transport
// session itself reads and writes.
package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/printerlink/agent/config"
)

const qrSize = 256

// Server serves the local pairing status/QR endpoints.
type Server struct {
	store    config.Store
	uniqueID string
	claimURL string
	logger   *slog.Logger

	router *httprouter.Router
}

// New builds a Server. claimURLFmt is a fmt.Sprintf pattern with a single
// %s verb for the setup short id, e.g. "https://simplyprint.io/claim/%s".
func New(store config.Store, uniqueID, claimURLFmt string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, uniqueID: uniqueID, claimURL: claimURLFmt, logger: logger}

	router := httprouter.New()
	router.GET("/setup/status", s.handleStatus)
	router.GET("/setup/qrcode", s.handleQRCode)
	s.router = router
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Serve runs the HTTP server until ctx is cancelled, in the style of this
// module's other background loops: a blocking call suitable for
// engine.ProcMgr.Add.
func (s *Server) Serve(addr string) func(context.Context) error {
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

type statusResponse struct {
	InSetup  bool   `json:"in_setup"`
	ShortID  string `json:"short_id,omitempty"`
	ClaimURL string `json:"claim_url,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg, err := s.store.Get(r.Context(), s.uniqueID)
	if err != nil {
		cfg = config.NewPending(s.uniqueID)
	}

	resp := statusResponse{InSetup: cfg.InSetup}
	if cfg.InSetup && cfg.ShortID != "" {
		resp.ShortID = cfg.ShortID
		resp.ClaimURL = fmt.Sprintf(s.claimURL, cfg.ShortID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg, err := s.store.Get(r.Context(), s.uniqueID)
	if err != nil || !cfg.InSetup || cfg.ShortID == "" {
		http.Error(w, "no pending setup code", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(fmt.Sprintf(s.claimURL, cfg.ShortID), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("failed to render setup qr code", "component", "pairing", "err", err)
		http.Error(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
