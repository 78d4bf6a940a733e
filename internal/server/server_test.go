package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Options{
		DBPath:   filepath.Join(t.TempDir(), "archive.db"),
		LogLevel: "error",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		s.mgr.Shutdown()
		s.alerts.Close()
		s.db.Close()
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" || resp["service"] != "physlab" {
		t.Errorf("resp = %v, want status ok from physlab", resp)
	}
}

func TestListLabs(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/labs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Labs []labInfo `json:"labs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Labs) != 5 {
		t.Fatalf("got %d labs, want 5", len(resp.Labs))
	}

	var fusion *labInfo
	for i := range resp.Labs {
		if resp.Labs[i].Name == "fusion" {
			fusion = &resp.Labs[i]
		}
	}
	if fusion == nil {
		t.Fatal("fusion lab missing from listing")
	}
	if len(fusion.Knobs) == 0 || len(fusion.Phases) < 2 {
		t.Errorf("fusion listing incomplete: %+v", fusion)
	}
}

func TestCreateSessionUnknownLab(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{"lab": "warpcore"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateSessionMissingLab(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{"seed": 3})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{
		"lab":   "fusion",
		"seed":  7,
		"rate":  240,
		"knobs": map[string]float64{"heater": 60},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var info SessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}
	if info.ID == "" || info.Lab != "fusion" {
		t.Fatalf("info = %+v, want an ID and lab fusion", info)
	}

	// Let the wall-clock loop advance before poking at the session.
	deadline := time.Now().Add(5 * time.Second)
	for {
		w = doJSON(t, s, http.MethodGet, "/api/sessions/"+info.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get status = %d, want 200", w.Code)
		}
		var snap struct {
			Lab  string `json:"lab"`
			Tick uint64 `json:"tick"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			t.Fatalf("unmarshal snapshot: %v", err)
		}
		if snap.Tick > 0 {
			if snap.Lab != "fusion" {
				t.Fatalf("snapshot lab = %q, want fusion", snap.Lab)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never ticked")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w = doJSON(t, s, http.MethodPost, "/api/sessions/"+info.ID+"/intents", map[string]any{
		"intents": []map[string]any{
			{"type": "set_knob", "name": "heater", "value": 85},
			{"type": "inject", "kind": "primary", "count": 5, "energy": 10},
		},
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("intents status = %d, want 202: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/sessions/"+info.ID+"/intents", map[string]any{
		"intents": []map[string]any{{"type": "inject", "kind": "tachyon"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad intent status = %d, want 400", w.Code)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/sessions/"+info.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/sessions/"+info.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}

	// Stop waits for the archive, so the run is visible immediately.
	w = doJSON(t, s, http.MethodGet, "/api/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("runs status = %d, want 200", w.Code)
	}
	var runsResp struct {
		Runs []RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &runsResp); err != nil {
		t.Fatalf("unmarshal runs: %v", err)
	}
	if len(runsResp.Runs) != 1 {
		t.Fatalf("got %d archived runs, want 1", len(runsResp.Runs))
	}
	if runsResp.Runs[0].ID != info.ID || runsResp.Runs[0].Lab != "fusion" {
		t.Errorf("archived run = %+v, want the stopped session", runsResp.Runs[0])
	}

	w = doJSON(t, s, http.MethodGet, "/api/runs/"+info.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, want 200", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/runs/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSpectatorStream(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.router)
	defer ts.Close()

	info, err := s.mgr.Create("decay", 0, 120, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.mgr.Stop(info.ID)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + info.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Frames batch with newline separators; the first line is a snapshot.
	first := bytes.SplitN(msg, []byte{'\n'}, 2)[0]
	var snap struct {
		Lab string `json:"lab"`
	}
	if err := json.Unmarshal(first, &snap); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if snap.Lab != "decay" {
		t.Errorf("frame lab = %q, want decay", snap.Lab)
	}
}

func TestSpectateUnknownSession(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/ws/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
