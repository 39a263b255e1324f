package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	configstore "github.com/miniview-io/miniview/internal/config/store"
	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/observability"
	"github.com/miniview-io/miniview/internal/pip"
	"github.com/miniview-io/miniview/internal/state"
	"github.com/miniview-io/miniview/internal/testutil"
)

type gatewayFixture struct {
	gw    *Gateway
	bus   *eventbus.Bus
	store *state.Store
	svc   *pip.Service
}

func newGatewayFixture(t *testing.T, token string) *gatewayFixture {
	t.Helper()

	bus := eventbus.New()
	t.Cleanup(bus.Shutdown)

	appState := state.NewStore()
	svc := pip.NewService(bus, appState, nil)

	journal, cleanup := testutil.OpenStore(t)
	t.Cleanup(cleanup)

	counter := observability.NewEventCounter()
	bus.AddObserver(counter)
	exporter := observability.NewPrometheusExporter(bus, counter)

	gw := New(Options{Listen: "127.0.0.1:0", AuthToken: token}, bus, appState, journal, exporter, nil)
	exporter.WithHostCount(gw)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	if err := gw.Start(ctx); err != nil {
		t.Fatalf("start gateway: %v", err)
	}
	t.Cleanup(func() { gw.Shutdown(context.Background()) })

	return &gatewayFixture{gw: gw, bus: bus, store: appState, svc: svc}
}

func (f *gatewayFixture) httpURL(path string) string {
	return fmt.Sprintf("http://%s%s", f.gw.Addr(), path)
}

func (f *gatewayFixture) wsURL(query string) string {
	return fmt.Sprintf("ws://%s/ws/host%s", f.gw.Addr(), query)
}

func dialHost(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial host ws: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
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

func readEvent(t *testing.T, conn *websocket.Conn) hostEventMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var msg hostEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return msg
}

func TestGatewayLayoutFrameDrivesModeChange(t *testing.T) {
	f := newGatewayFixture(t, "")
	conn := dialHost(t, f.wsURL("?host_id=h-test"))

	sendFrame(t, conn, map[string]any{
		"type":   "layout",
		"window": map[string]float64{"width": 200, "height": 400},
		"screen": map[string]float64{"width": 1920, "height": 1080},
	})

	msg := readEvent(t, conn)
	if msg.Type != "mode_changed" || !msg.Enabled || msg.Trigger != "layout" {
		t.Fatalf("unexpected event: %+v", msg)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !f.store.State().PiP.Enabled {
		if time.Now().After(deadline) {
			t.Fatalf("pip flag not set in store")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGatewayFramesCarryHostCorrelation(t *testing.T) {
	f := newGatewayFixture(t, "")
	sub := f.bus.Subscribe(eventbus.TopicLayoutChanged)
	defer sub.Close()

	conn := dialHost(t, f.wsURL("?host_id=h-corr"))
	sendFrame(t, conn, map[string]any{
		"type":   "layout",
		"window": map[string]float64{"width": 640, "height": 480},
	})

	select {
	case env := <-sub.C():
		if env.CorrelationID != "h-corr" {
			t.Fatalf("correlation id = %q, want h-corr", env.CorrelationID)
		}
		if env.Source != eventbus.SourceHostApp {
			t.Fatalf("source = %s, want host_app", env.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for layout envelope")
	}
}

func TestGatewayRequestPipBroadcast(t *testing.T) {
	f := newGatewayFixture(t, "")
	// The daemon wires the broadcast as the capability; reproduce that here.
	bus := f.bus
	appState := state.NewStore()
	svc := pip.NewService(bus, appState, nil, pip.WithCapability(pip.Available(f.gw.BroadcastEnterPip)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Shutdown(context.Background())

	conn := dialHost(t, f.wsURL("?host_id=h-req"))

	sendFrame(t, conn, map[string]any{"type": "request_pip"})

	for {
		msg := readEvent(t, conn)
		if msg.Type == "enter_pip" {
			return
		}
	}
}

func TestGatewayRejectsBadToken(t *testing.T) {
	f := newGatewayFixture(t, "sekrit")

	resp, err := http.Get(f.httpURL("/status"))
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, wsResp, err := websocket.Dial(ctx, f.wsURL(""), nil)
	if err == nil {
		conn.CloseNow()
		t.Fatalf("expected ws dial to fail without token")
	}
	if wsResp != nil && wsResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 upgrade rejection, got %d", wsResp.StatusCode)
	}

	resp, err = http.Get(f.httpURL("/status?token=sekrit"))
	if err != nil {
		t.Fatalf("get status with token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestGatewayStatusEndpoint(t *testing.T) {
	f := newGatewayFixture(t, "")
	conn := dialHost(t, f.wsURL("?host_id=h-status"))

	sendFrame(t, conn, map[string]any{
		"type":   "layout",
		"window": map[string]float64{"width": 100, "height": 100},
	})
	readEvent(t, conn) // wait for the flip to land

	resp, err := http.Get(f.httpURL("/status"))
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.InPipMode {
		t.Fatalf("expected in_pip_mode true, got %+v", status)
	}
	if !status.ListenerActive {
		t.Fatalf("expected active listener, got %+v", status)
	}
	if status.HostsConnected != 1 {
		t.Fatalf("expected one connected host, got %+v", status)
	}
	if status.ReceivedQuality != string(state.QualityLow) {
		t.Fatalf("expected low quality after entering pip, got %+v", status)
	}
}

func TestGatewayTransitionsEndpoint(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Shutdown)
	appState := state.NewStore()
	journal, cleanup := testutil.OpenStore(t)
	t.Cleanup(cleanup)

	if err := journal.RecordTransition(context.Background(), configstore.Transition{
		Enabled: true, WindowWidth: 200, WindowHeight: 400, Cause: "layout",
	}); err != nil {
		t.Fatalf("record transition: %v", err)
	}

	gw := New(Options{Listen: "127.0.0.1:0"}, bus, appState, journal, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := gw.Start(ctx); err != nil {
		t.Fatalf("start gateway: %v", err)
	}
	t.Cleanup(func() { gw.Shutdown(context.Background()) })

	resp, err := http.Get(fmt.Sprintf("http://%s/transitions?limit=10", gw.Addr()))
	if err != nil {
		t.Fatalf("get transitions: %v", err)
	}
	defer resp.Body.Close()

	var entries []TransitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode transitions: %v", err)
	}
	if len(entries) != 1 || !entries[0].Enabled || entries[0].Cause != "layout" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestGatewayMetricsEndpoint(t *testing.T) {
	f := newGatewayFixture(t, "")

	resp, err := http.Get(f.httpURL("/metrics"))
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("expected metrics payload")
	}
}
