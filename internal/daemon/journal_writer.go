package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	configstore "github.com/miniview-io/miniview/internal/config/store"
	"github.com/miniview-io/miniview/internal/constants"
	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/logging"
)

// journalWriter persists every published mode change into the transition
// journal. Write failures are logged and dropped; the journal is
// diagnostic, not authoritative.
type journalWriter struct {
	bus       *eventbus.Bus
	journal   *configstore.Store
	log       logging.Logger
	lifecycle eventbus.ServiceLifecycle
}

func newJournalWriter(bus *eventbus.Bus, journal *configstore.Store, log logging.Logger) *journalWriter {
	if log == nil {
		log = logging.Nop()
	}
	return &journalWriter{bus: bus, journal: journal, log: log}
}

// transitionRetention bounds journal growth; entries older than this are
// swept on every daemon start.
const transitionRetention = 30 * 24 * time.Hour

func (w *journalWriter) Start(ctx context.Context) error {
	w.lifecycle.Start(ctx)

	sub := eventbus.SubscribeTo(w.bus, eventbus.Pip.ModeChanged,
		eventbus.WithSubscriptionName("journal_writer"))
	w.lifecycle.AddSubscriptions(sub)
	w.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, sub, w.record)
	})
	w.lifecycle.Go(func(ctx context.Context) {
		w.pruneExpired(ctx)
	})
	return nil
}

func (w *journalWriter) pruneExpired(ctx context.Context) {
	pruneCtx, cancel := context.WithTimeout(ctx, constants.Duration5Seconds)
	defer cancel()

	cutoff := time.Now().Add(-transitionRetention)
	removed, err := w.journal.PruneTransitions(pruneCtx, cutoff)
	if err != nil {
		w.log.Warn("transition journal prune failed", zap.Error(err))
		return
	}
	if removed > 0 {
		w.log.Info("pruned expired transitions", zap.Int64("removed", removed))
	}
}

func (w *journalWriter) Shutdown(ctx context.Context) error {
	return w.lifecycle.Shutdown(ctx)
}

func (w *journalWriter) record(ev eventbus.PipModeChangedEvent) {
	ctx, cancel := context.WithTimeout(w.lifecycle.Context(), constants.Duration2Seconds)
	defer cancel()

	err := w.journal.RecordTransition(ctx, configstore.Transition{
		Enabled:      ev.Enabled,
		WindowWidth:  ev.WindowWidth,
		WindowHeight: ev.WindowHeight,
		Cause:        ev.Trigger,
	})
	if err != nil {
		w.log.Warn("transition journal write failed", zap.Error(err))
	}
}
