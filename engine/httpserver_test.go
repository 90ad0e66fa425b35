package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
)

type fakeReporter struct {
	sessions map[string]SessionInfo
}

func (f fakeReporter) Sessions() []SessionInfo {
	out := make([]SessionInfo, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out
}

func (f fakeReporter) Session(pid string) (SessionInfo, bool) {
	s, ok := f.sessions[pid]
	return s, ok
}

func TestDebugServer_ListSessions(t *testing.T) {
	reporter := fakeReporter{sessions: map[string]SessionInfo{
		"42": {PID: "42", QueueDepth: 3},
	}}
	srv := NewDebugServer(reporter, nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	arr := e.GET("/debug/sessions").
		Expect().
		Status(http.StatusOK).JSON().Array()
	arr.Length().IsEqual(1)
	arr.Value(0).Object().Value("pid").IsEqual("42")
	arr.Value(0).Object().Value("queue_depth").IsEqual(3)
}

func TestDebugServer_OneSession_NotFound(t *testing.T) {
	srv := NewDebugServer(fakeReporter{sessions: map[string]SessionInfo{}}, nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	e.GET("/debug/sessions/missing").
		Expect().
		Status(http.StatusNotFound)
}

func TestDebugServer_OneSession_Found(t *testing.T) {
	reporter := fakeReporter{sessions: map[string]SessionInfo{
		"7": {PID: "7", QueueDepth: 0},
	}}
	srv := NewDebugServer(reporter, nil)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	e := httpexpect.Default(t, httpSrv.URL)

	obj := e.GET("/debug/sessions/7").
		Expect().
		Status(http.StatusOK).JSON().Object()
	obj.Value("pid").IsEqual("7")
	obj.Value("queue_depth").IsEqual(0)
}
