package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miniview-io/miniview/internal/constants"
	"github.com/miniview-io/miniview/internal/eventbus"
)

// wsHostHandler serves WebSocket connections from host applications. It
// translates inbound JSON frames into bus events and forwards mode-changed
// notifications back to the host.
type wsHostHandler struct {
	gateway     *Gateway
	shutdownCtx context.Context
}

// hostFrame is a JSON control frame sent by the host application.
type hostFrame struct {
	Type          string      `json:"type"`
	Window        *dimensions `json:"window,omitempty"`
	Screen        *dimensions `json:"screen,omitempty"`
	ConferenceID  string      `json:"conference_id,omitempty"`
	Enabled       *bool       `json:"enabled,omitempty"`
	ParticipantID string      `json:"participant_id,omitempty"`
}

type dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// hostEventMessage is a JSON event sent to the host application.
type hostEventMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled,omitempty"`
	Trigger string `json:"trigger,omitempty"`
}

// hostConn wraps a host WebSocket connection with a serialized writer.
type hostConn struct {
	id   string
	conn *websocket.Conn
	ctx  context.Context

	mu     sync.Mutex
	closed bool
}

func (hc *hostConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.closed {
		return net.ErrClosed
	}
	return hc.conn.Write(hc.ctx, websocket.MessageText, data)
}

func (hc *hostConn) close() {
	hc.mu.Lock()
	hc.closed = true
	hc.mu.Unlock()
}

func newWSHostHandler(g *Gateway, shutdownCtx context.Context) *wsHostHandler {
	return &wsHostHandler{gateway: g, shutdownCtx: shutdownCtx}
}

func (h *wsHostHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.gateway.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	hostID := r.URL.Query().Get("host_id")
	if hostID == "" {
		hostID = "host_" + uuid.NewString()
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.gateway.log.Warn("host accept failed", zap.String("host_id", hostID), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(h.shutdownCtx)
	defer cancel()

	conn.SetReadLimit(16 * 1024)

	hc := &hostConn{id: hostID, conn: conn, ctx: ctx}
	defer hc.close()

	h.gateway.registerHost(hc)
	defer h.gateway.unregisterHost(hc)
	h.gateway.log.Info("host connected", zap.String("host_id", hostID))
	defer h.gateway.log.Info("host disconnected", zap.String("host_id", hostID))

	// Forward mode flips and re-applications to the host.
	modeSub := eventbus.SubscribeTo(h.gateway.bus, eventbus.Pip.ModeChanged,
		eventbus.WithSubscriptionName("ws_host_"+hostID),
		eventbus.WithSubscriptionBuffer(16),
	)
	defer modeSub.Close()
	go h.pumpEvents(ctx, cancel, hc, modeSub)

	go h.pumpPing(ctx, cancel, conn, hostID)

	h.pumpFrames(ctx, conn, hostID)
}

// pumpEvents forwards pip mode events as JSON text messages until ctx is
// cancelled or the subscription closes.
func (h *wsHostHandler) pumpEvents(
	ctx context.Context,
	cancel context.CancelFunc,
	hc *hostConn,
	sub *eventbus.TypedSubscription[eventbus.PipModeChangedEvent],
) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C():
			if !ok {
				return
			}
			msg := hostEventMessage{
				Type:    "mode_changed",
				Enabled: env.Payload.Enabled,
				Trigger: env.Payload.Trigger,
			}
			if err := hc.writeJSON(msg); err != nil {
				if !isExpectedWSClose(err) {
					h.gateway.log.Warn("mode event write failed", zap.String("host_id", hc.id), zap.Error(err))
				}
				return
			}
		}
	}
}

// pumpFrames reads host frames and publishes the matching bus events.
func (h *wsHostHandler) pumpFrames(ctx context.Context, conn *websocket.Conn, hostID string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if !isExpectedWSClose(err) {
				h.gateway.log.Warn("host read failed", zap.String("host_id", hostID), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var frame hostFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.gateway.log.Warn("invalid host frame", zap.String("host_id", hostID), zap.Error(err))
			continue
		}
		h.dispatchFrame(ctx, hostID, frame)
	}
}

func (h *wsHostHandler) dispatchFrame(ctx context.Context, hostID string, frame hostFrame) {
	bus := h.gateway.bus
	switch frame.Type {
	case "layout":
		if frame.Window == nil {
			h.gateway.log.Warn("layout frame without window", zap.String("host_id", hostID))
			return
		}
		ev := eventbus.LayoutChangedEvent{
			HostID:       hostID,
			WindowWidth:  frame.Window.Width,
			WindowHeight: frame.Window.Height,
		}
		if frame.Screen != nil {
			ev.ScreenWidth = frame.Screen.Width
			ev.ScreenHeight = frame.Screen.Height
		}
		eventbus.PublishWithOpts(ctx, bus, eventbus.Layout.Changed, eventbus.SourceHostApp, ev,
			eventbus.WithCorrelationID(hostID))
	case "joined":
		eventbus.PublishWithOpts(ctx, bus, eventbus.Conference.Joined, eventbus.SourceHostApp, eventbus.ConferenceJoinedEvent{
			HostID:       hostID,
			ConferenceID: frame.ConferenceID,
		}, eventbus.WithCorrelationID(hostID))
	case "audio_only":
		enabled := frame.Enabled != nil && *frame.Enabled
		eventbus.PublishWithOpts(ctx, bus, eventbus.Conference.AudioOnly, eventbus.SourceHostApp, eventbus.AudioOnlyChangedEvent{
			HostID:  hostID,
			Enabled: enabled,
		}, eventbus.WithCorrelationID(hostID))
	case "pin":
		eventbus.PublishWithOpts(ctx, bus, eventbus.Conference.Pin, eventbus.SourceHostApp, eventbus.ParticipantPinnedEvent{
			HostID:        hostID,
			ParticipantID: frame.ParticipantID,
		}, eventbus.WithCorrelationID(hostID))
	case "request_pip":
		eventbus.PublishWithOpts(ctx, bus, eventbus.Pip.Requested, eventbus.SourceHostApp, eventbus.PipRequestedEvent{
			HostID: hostID,
		}, eventbus.WithCorrelationID(hostID))
	default:
		if frame.Type != "" {
			h.gateway.log.Warn("unknown host frame type", zap.String("host_id", hostID), zap.String("type", frame.Type))
		}
	}
}

// pumpPing sends periodic WebSocket pings to detect dead connections.
func (h *wsHostHandler) pumpPing(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, hostID string) {
	ticker := time.NewTicker(constants.Duration30Seconds)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, constants.Duration5Seconds)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				if !isExpectedWSClose(err) {
					h.gateway.log.Warn("host ping failed", zap.String("host_id", hostID), zap.Error(err))
				}
				cancel()
				return
			}
		}
	}
}

// isExpectedWSClose returns true for errors that occur during normal
// WebSocket disconnection (client closed, server shutdown, etc.).
func isExpectedWSClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed) {
		return true
	}
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
