package pairing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/require"

	"github.com/printerlink/agent/config"
	"github.com/printerlink/agent/engine"
)

func newTestStore(t *testing.T) config.Store {
	db := engine.OpenTestDB(t)
	store, err := config.NewSQLiteStore(db)
	require.NoError(t, err)
	return store
}

func TestServer_StatusDuringSetup(t *testing.T) {
	store := newTestStore(t)
	cfg := config.NewPending("unique-1")
	cfg.ShortID = "ABC123"
	require.NoError(t, store.Put(t.Context(), cfg))

	srv := New(store, "unique-1", "https://simplyprint.io/claim/%s", nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	obj := e.GET("/setup/status").
		Expect().
		Status(http.StatusOK).JSON().Object()

	obj.Value("in_setup").IsEqual(true)
	obj.Value("short_id").IsEqual("ABC123")
	obj.Value("claim_url").IsEqual("https://simplyprint.io/claim/ABC123")
}

func TestServer_StatusAfterSetup(t *testing.T) {
	store := newTestStore(t)
	cfg := config.NewPending("unique-2")
	cfg.CompleteSetup(42)
	require.NoError(t, store.Put(t.Context(), cfg))

	srv := New(store, "unique-2", "https://simplyprint.io/claim/%s", nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	obj := e.GET("/setup/status").
		Expect().
		Status(http.StatusOK).JSON().Object()

	obj.Value("in_setup").IsEqual(false)
	obj.NotContainsKey("short_id")
}

func TestServer_QRCode(t *testing.T) {
	store := newTestStore(t)
	cfg := config.NewPending("unique-3")
	cfg.ShortID = "XYZ789"
	require.NoError(t, store.Put(t.Context(), cfg))

	srv := New(store, "unique-3", "https://simplyprint.io/claim/%s", nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	e.GET("/setup/qrcode").
		Expect().
		Status(http.StatusOK).
		ContentType("image/png")
}

func TestServer_QRCode_NotFoundWhenAlreadyPaired(t *testing.T) {
	store := newTestStore(t)
	cfg := config.NewPending("unique-4")
	cfg.CompleteSetup(7)
	require.NoError(t, store.Put(t.Context(), cfg))

	srv := New(store, "unique-4", "https://simplyprint.io/claim/%s", nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	e.GET("/setup/qrcode").
		Expect().
		Status(http.StatusNotFound)
}
