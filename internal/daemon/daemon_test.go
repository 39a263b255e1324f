package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/miniview-io/miniview/internal/config"
	configstore "github.com/miniview-io/miniview/internal/config/store"
	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/logging"
	"github.com/miniview-io/miniview/internal/testutil"
)

func startTestDaemon(t *testing.T) *Daemon {
	t.Helper()

	journal, cleanup := testutil.OpenStore(t)
	t.Cleanup(cleanup)

	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"

	d, err := New(Options{
		Config:       cfg,
		Journal:      journal,
		Logger:       logging.Nop(),
		SkipLockFile: true,
	})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() { d.Shutdown() })
	return d
}

func dialHost(t *testing.T, d *Daemon) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws/host?host_id=h-test", d.Gateway().Addr())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial host ws: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func sendLayout(t *testing.T, conn *websocket.Conn, w, h float64) {
	t.Helper()
	frame := map[string]any{
		"type":   "layout",
		"window": map[string]float64{"width": w, "height": h},
		"screen": map[string]float64{"width": 1920, "height": 1080},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readEventType(t *testing.T, conn *websocket.Conn) (string, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var msg struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return msg.Type, msg.Enabled
}

func TestDaemonLayoutFlowEndToEnd(t *testing.T) {
	d := startTestDaemon(t)
	conn := dialHost(t, d)

	sendLayout(t, conn, 200, 400)

	typ, enabled := readEventType(t, conn)
	if typ != "mode_changed" || !enabled {
		t.Fatalf("unexpected event %q enabled=%v", typ, enabled)
	}
	if !d.State().State().PiP.Enabled {
		t.Fatal("store PiP flag not set after collapse")
	}
}

func TestDaemonJournalsTransitions(t *testing.T) {
	d := startTestDaemon(t)
	conn := dialHost(t, d)

	sendLayout(t, conn, 100, 100)
	readEventType(t, conn)
	sendLayout(t, conn, 1280, 720)
	readEventType(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := d.journal.RecentTransitions(context.Background(), 10)
		if err != nil {
			t.Fatalf("recent transitions: %v", err)
		}
		if len(entries) >= 2 {
			if entries[0].Enabled || !entries[1].Enabled {
				t.Fatalf("unexpected journal order: %+v", entries)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal has %d entries, want 2", len(entries))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDaemonStatusAndMetricsEndpoints(t *testing.T) {
	d := startTestDaemon(t)
	conn := dialHost(t, d)

	sendLayout(t, conn, 150, 900)
	readEventType(t, conn)

	resp, err := http.Get(fmt.Sprintf("http://%s/status", d.Gateway().Addr()))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()
	var status struct {
		InPipMode      bool `json:"in_pip_mode"`
		HostsConnected int  `json:"hosts_connected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.InPipMode {
		t.Fatal("status does not report PiP mode")
	}
	if status.HostsConnected != 1 {
		t.Fatalf("hosts connected = %d, want 1", status.HostsConnected)
	}

	metricsResp, err := http.Get(fmt.Sprintf("http://%s/metrics", d.Gateway().Addr()))
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", metricsResp.StatusCode)
	}
}

func TestJournalWriterStartKeepsFreshEntries(t *testing.T) {
	journal, cleanup := testutil.OpenStore(t)
	t.Cleanup(cleanup)

	if err := journal.RecordTransition(context.Background(), configstore.Transition{
		Enabled: true, WindowWidth: 100, WindowHeight: 100,
	}); err != nil {
		t.Fatalf("record transition: %v", err)
	}

	bus := eventbus.New()
	t.Cleanup(bus.Shutdown)

	w := newJournalWriter(bus, journal, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start journal writer: %v", err)
	}
	t.Cleanup(func() { w.Shutdown(context.Background()) })

	// The startup retention sweep must not touch entries inside the window.
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := journal.RecentTransitions(context.Background(), 10)
		if err != nil {
			t.Fatalf("recent transitions: %v", err)
		}
		if len(entries) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal has %d entries, want 1", len(entries))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonRecordsRuntimeSettings(t *testing.T) {
	d := startTestDaemon(t)

	settings, err := d.journal.LoadSettings(context.Background(), "daemon.version", "daemon.listen")
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if settings["daemon.version"] == "" {
		t.Fatal("daemon.version setting missing")
	}
	if settings["daemon.listen"] != d.Gateway().Addr() {
		t.Fatalf("daemon.listen = %q, want %q", settings["daemon.listen"], d.Gateway().Addr())
	}
}

func TestDaemonShutdownIsIdempotent(t *testing.T) {
	d := startTestDaemon(t)
	if err := d.Shutdown(); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := d.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
