package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	configstore "github.com/miniview-io/miniview/internal/config/store"
	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/logging"
	"github.com/miniview-io/miniview/internal/observability"
	"github.com/miniview-io/miniview/internal/state"
)

// Options configure the gateway listeners and auth.
type Options struct {
	Listen    string // TCP listen address, e.g. 127.0.0.1:9680
	AuthToken string // Empty disables authentication
}

// Gateway exposes the daemon's HTTP surface: the host WebSocket endpoint
// plus status, transition-journal, and metrics endpoints.
type Gateway struct {
	opts     Options
	bus      *eventbus.Bus
	appState *state.Store
	journal  *configstore.Store
	exporter *observability.PrometheusExporter
	log      logging.Logger

	mu       sync.RWMutex
	listener net.Listener
	server   *http.Server
	hosts    map[string]*hostConn
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New constructs a Gateway. The journal and exporter are optional; their
// endpoints respond 503 when absent.
func New(opts Options, bus *eventbus.Bus, appState *state.Store, journal *configstore.Store, exporter *observability.PrometheusExporter, log logging.Logger) *Gateway {
	if log == nil {
		log = logging.Nop()
	}
	return &Gateway{
		opts:     opts,
		bus:      bus,
		appState: appState,
		journal:  journal,
		exporter: exporter,
		log:      log,
		hosts:    make(map[string]*hostConn),
	}
}

// Start launches the HTTP listener. It must not be called concurrently
// with Shutdown.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.listener != nil {
		return fmt.Errorf("gateway: already started")
	}

	listener, err := net.Listen("tcp", g.opts.Listen)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", g.opts.Listen, err)
	}

	serveCtx, cancel := context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws/host", newWSHostHandler(g, serveCtx))
	mux.HandleFunc("/status", g.requireAuth(g.handleStatus))
	mux.HandleFunc("/transitions", g.requireAuth(g.handleTransitions))
	mux.HandleFunc("/metrics", g.requireAuth(g.handleMetrics))
	mux.HandleFunc("/healthz", g.handleHealth)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.listener = listener
	g.server = server
	g.cancel = cancel

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			g.log.Error("gateway serve failed", err)
		}
	}()

	g.log.Info("gateway listening", zap.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, empty before Start.
func (g *Gateway) Addr() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Shutdown stops the listener and closes all host connections.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	server := g.server
	cancel := g.cancel
	g.server = nil
	g.listener = nil
	g.cancel = nil
	g.mu.Unlock()

	if server == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	err := server.Shutdown(shutdownCtx)

	g.wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}

// HostCount implements observability.HostCountProvider.
func (g *Gateway) HostCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.hosts)
}

// BroadcastEnterPip sends an enter_pip instruction to every connected
// host. Used as the daemon-side PiP capability: fire and forget.
func (g *Gateway) BroadcastEnterPip() {
	g.mu.RLock()
	conns := make([]*hostConn, 0, len(g.hosts))
	for _, hc := range g.hosts {
		conns = append(conns, hc)
	}
	g.mu.RUnlock()

	for _, hc := range conns {
		if err := hc.writeJSON(hostEventMessage{Type: "enter_pip"}); err != nil {
			if !isExpectedWSClose(err) {
				g.log.Warn("enter_pip broadcast failed", zap.String("host_id", hc.id), zap.Error(err))
			}
		}
	}
}

func (g *Gateway) registerHost(hc *hostConn) {
	g.mu.Lock()
	g.hosts[hc.id] = hc
	g.mu.Unlock()

	eventbus.Publish(context.Background(), g.bus, eventbus.Hosts.Lifecycle, eventbus.SourceGateway, eventbus.HostLifecycleEvent{
		HostID: hc.id,
		State:  eventbus.HostStateConnected,
	})
}

func (g *Gateway) unregisterHost(hc *hostConn) {
	g.mu.Lock()
	delete(g.hosts, hc.id)
	g.mu.Unlock()

	eventbus.Publish(context.Background(), g.bus, eventbus.Hosts.Lifecycle, eventbus.SourceGateway, eventbus.HostLifecycleEvent{
		HostID: hc.id,
		State:  eventbus.HostStateDisconnected,
	})
}

func (g *Gateway) authorized(r *http.Request) bool {
	if g.opts.AuthToken == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = parseBearer(r.Header.Get("Authorization"))
	}
	return token == g.opts.AuthToken
}

func (g *Gateway) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
