package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/miniview-io/miniview/internal/config"
	configstore "github.com/miniview-io/miniview/internal/config/store"
	"github.com/miniview-io/miniview/internal/constants"
	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/gateway"
	"github.com/miniview-io/miniview/internal/layout"
	"github.com/miniview-io/miniview/internal/logging"
	"github.com/miniview-io/miniview/internal/observability"
	"github.com/miniview-io/miniview/internal/pip"
	daemonruntime "github.com/miniview-io/miniview/internal/runtime"
	"github.com/miniview-io/miniview/internal/state"
	"github.com/miniview-io/miniview/internal/version"
)

// Options configure daemon construction.
type Options struct {
	InstanceName string
	Config       config.Config

	// Journal overrides the instance settings/journal store. When nil the
	// daemon opens the store at the instance's config.db path and owns it.
	Journal *configstore.Store

	// Logger overrides the file logger built from Config.Log.
	Logger logging.Logger

	// SkipLockFile disables the daemon lock file, for tests running
	// multiple daemons against temporary stores.
	SkipLockFile bool
}

// Daemon composes the event bus, state store, PiP service and gateway
// into one process and owns their lifecycles.
type Daemon struct {
	opts        Options
	paths       config.InstancePaths
	log         logging.Logger
	bus         *eventbus.Bus
	appState    *state.Store
	journal     *configstore.Store
	ownsJournal bool
	gateway     *gateway.Gateway
	pipService  *pip.Service
	exporter    *observability.PrometheusExporter
	host        *daemonruntime.ServiceHost
	lifecycle   *daemonruntime.Lifecycle

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires all daemon components. Nothing is started until Start.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	paths := config.GetInstancePaths(opts.InstanceName)

	log := opts.Logger
	if log == nil {
		logFile := cfg.Log.File
		if logFile == "" {
			logFile = filepath.Join(paths.Logs, "miniviewd.log")
		}
		log = logging.NewWithFile(cfg.Debug, logging.FileOptions{
			Path:       config.ExpandPath(logFile),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	}

	journal := opts.Journal
	ownsJournal := false
	if journal == nil {
		var err error
		journal, err = configstore.Open(configstore.Options{InstanceName: opts.InstanceName})
		if err != nil {
			return nil, fmt.Errorf("daemon: open config store: %w", err)
		}
		ownsJournal = true
	}

	bus := eventbus.New()
	eventCounter := observability.NewEventCounter()
	bus.AddObserver(eventCounter)
	metricsExporter := observability.NewPrometheusExporter(bus, eventCounter)

	appState := state.NewStore()

	gw := gateway.New(gateway.Options{
		Listen:    cfg.Listen,
		AuthToken: cfg.AuthToken,
	}, bus, appState, journal, metricsExporter, log)

	// The host capability is resolved once, at construction. When the
	// config disables it, explicit PiP requests become no-ops instead of
	// errors.
	capability := pip.Unavailable()
	if cfg.HostCapability {
		capability = pip.Available(gw.BroadcastEnterPip)
	}

	pipService := pip.NewService(bus, appState, log,
		pip.WithClassifier(layout.NewClassifier(cfg.PipThreshold)),
		pip.WithCapability(capability),
	)

	metricsExporter.WithPipMetrics(func() observability.PipMetricsSnapshot {
		st := appState.State()
		ctx, cancel := context.WithTimeout(context.Background(), constants.Duration1Second)
		defer cancel()
		total, err := journal.CountTransitions(ctx)
		if err != nil {
			total = 0
		}
		return observability.PipMetricsSnapshot{
			InPipMode:        st.PiP.Enabled,
			TransitionsTotal: total,
			AudioOnly:        st.Conference.AudioOnly,
		}
	})
	metricsExporter.WithHostCount(gw)

	d := &Daemon{
		opts:        opts,
		paths:       paths,
		log:         log,
		bus:         bus,
		appState:    appState,
		journal:     journal,
		ownsJournal: ownsJournal,
		gateway:     gw,
		pipService:  pipService,
		exporter:    metricsExporter,
		host:        daemonruntime.NewServiceHost(),
		lifecycle:   daemonruntime.NewLifecycle(),
	}

	if err := d.host.Register("journal_writer", func(ctx context.Context) (daemonruntime.Service, error) {
		return newJournalWriter(bus, journal, log), nil
	}); err != nil {
		return nil, err
	}
	if err := d.host.Register("pip", func(ctx context.Context) (daemonruntime.Service, error) {
		return pipServiceAdapter{pipService}, nil
	}); err != nil {
		return nil, err
	}
	if err := d.host.Register("gateway", func(ctx context.Context) (daemonruntime.Service, error) {
		return gw, nil
	}, daemonruntime.WithShutdownTimeout(constants.GatewayShutdownTimeout)); err != nil {
		return nil, err
	}

	return d, nil
}

// Start launches all daemon services and writes the daemon lock file.
func (d *Daemon) Start() error {
	if !d.opts.SkipLockFile {
		if err := writeLockFile(d.paths.Lock, os.Getpid()); err != nil {
			return err
		}
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	if err := d.host.Start(d.ctx); err != nil {
		d.cancel()
		if !d.opts.SkipLockFile {
			removeLockFile(d.paths.Lock)
		}
		return err
	}

	d.recordRuntimeSettings()

	d.log.Info("daemon started")
	return nil
}

// recordRuntimeSettings persists the running daemon's version and resolved
// listen address so clients can discover them after an ephemeral-port bind.
func (d *Daemon) recordRuntimeSettings() {
	ctx, cancel := context.WithTimeout(d.ctx, constants.Duration2Seconds)
	defer cancel()

	settings := map[string]string{
		"daemon.version": version.String(),
		"daemon.listen":  d.gateway.Addr(),
	}
	if err := d.journal.SaveSettings(ctx, settings); err != nil {
		d.log.Warn("failed to persist runtime settings", zap.Error(err))
	}
}

// Wait blocks until Shutdown is called or a service reports a fatal error.
func (d *Daemon) Wait() error {
	select {
	case <-d.lifecycle.Done():
		return nil
	case err := <-d.host.Errors():
		return err
	}
}

// Gateway exposes the transport gateway, primarily for its listen address.
func (d *Daemon) Gateway() *gateway.Gateway {
	return d.gateway
}

// State exposes the reactive application state store.
func (d *Daemon) State() *state.Store {
	return d.appState
}

// PipController exposes the mounted controller for in-process use.
func (d *Daemon) PipController() *pip.Controller {
	return d.pipService.Controller()
}

// Shutdown stops all services, the event bus and owned stores. Safe to
// call more than once.
func (d *Daemon) Shutdown() error {
	d.lifecycle.Shutdown()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.GatewayShutdownTimeout)
	defer cancel()
	stopErr := d.host.Stop(ctx)

	d.bus.Shutdown()

	if d.ownsJournal {
		if err := d.journal.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
	}

	if !d.opts.SkipLockFile {
		removeLockFile(d.paths.Lock)
	}

	d.log.Info("daemon stopped")
	return stopErr
}

// pipServiceAdapter bridges pip.Service, whose Start cannot fail, into
// the runtime service contract.
type pipServiceAdapter struct {
	svc *pip.Service
}

func (a pipServiceAdapter) Start(ctx context.Context) error {
	a.svc.Start(ctx)
	return nil
}

func (a pipServiceAdapter) Shutdown(ctx context.Context) error {
	return a.svc.Shutdown(ctx)
}
