package observability

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/miniview-io/miniview/internal/eventbus"
)

// PrometheusExporter renders observability metrics in Prometheus text format.
type PrometheusExporter struct {
	bus         *eventbus.Bus
	counter     *EventCounter
	pipSnapshot func() PipMetricsSnapshot
	hosts       HostCountProvider
}

// PipMetricsSnapshot is a point-in-time view of the PiP controller state.
type PipMetricsSnapshot struct {
	InPipMode        bool
	TransitionsTotal uint64
	AudioOnly        bool
}

// HostCountProvider exposes the number of currently connected host apps.
type HostCountProvider interface {
	HostCount() int
}

// NewPrometheusExporter constructs an exporter backed by the provided bus and event counter.
func NewPrometheusExporter(bus *eventbus.Bus, counter *EventCounter) *PrometheusExporter {
	return &PrometheusExporter{
		bus:     bus,
		counter: counter,
	}
}

// WithPipMetrics enables exporting snapshot-based PiP controller metrics.
func (e *PrometheusExporter) WithPipMetrics(provider func() PipMetricsSnapshot) {
	e.pipSnapshot = provider
}

// WithHostCount enables exporting the connected host gauge.
func (e *PrometheusExporter) WithHostCount(provider HostCountProvider) {
	e.hosts = provider
}

// Export produces the metrics payload in Prometheus' text exposition format.
func (e *PrometheusExporter) Export() []byte {
	var buf bytes.Buffer

	e.writeEventCounters(&buf)
	e.writeBusMetrics(&buf)
	e.writePipMetrics(&buf)
	e.writeHostMetrics(&buf)

	return buf.Bytes()
}

func (e *PrometheusExporter) writeEventCounters(buf *bytes.Buffer) {
	if e.counter == nil {
		return
	}

	counts := e.counter.Snapshot()
	if len(counts) == 0 {
		return
	}

	buf.WriteString("# HELP miniview_eventbus_events_total Total number of published events per topic.\n")
	buf.WriteString("# TYPE miniview_eventbus_events_total counter\n")

	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, string(topic))
	}
	sort.Strings(topics)
	for _, topicName := range topics {
		value := counts[eventbus.Topic(topicName)]
		buf.WriteString(fmt.Sprintf("miniview_eventbus_events_total{topic=%q} %d\n", topicName, value))
	}
}

func (e *PrometheusExporter) writeBusMetrics(buf *bytes.Buffer) {
	if e.bus == nil {
		return
	}

	metrics := e.bus.Metrics()

	buf.WriteString("# HELP miniview_eventbus_publish_total Total number of events published on the bus.\n")
	buf.WriteString("# TYPE miniview_eventbus_publish_total counter\n")
	buf.WriteString(fmt.Sprintf("miniview_eventbus_publish_total %d\n", metrics.PublishTotal))

	buf.WriteString("# HELP miniview_eventbus_dropped_total Total number of events dropped by the bus.\n")
	buf.WriteString("# TYPE miniview_eventbus_dropped_total counter\n")
	buf.WriteString(fmt.Sprintf("miniview_eventbus_dropped_total %d\n", metrics.DroppedTotal))
}

func (e *PrometheusExporter) writePipMetrics(buf *bytes.Buffer) {
	if e.pipSnapshot == nil {
		return
	}

	snapshot := e.pipSnapshot()

	buf.WriteString("# HELP miniview_pip_mode Whether the window is currently in picture-in-picture mode.\n")
	buf.WriteString("# TYPE miniview_pip_mode gauge\n")
	buf.WriteString(fmt.Sprintf("miniview_pip_mode %d\n", boolGauge(snapshot.InPipMode)))

	buf.WriteString("# HELP miniview_pip_transitions_total Total number of journaled PiP mode events.\n")
	buf.WriteString("# TYPE miniview_pip_transitions_total counter\n")
	buf.WriteString(fmt.Sprintf("miniview_pip_transitions_total %d\n", snapshot.TransitionsTotal))

	buf.WriteString("# HELP miniview_conference_audio_only Whether the conference is in audio-only mode.\n")
	buf.WriteString("# TYPE miniview_conference_audio_only gauge\n")
	buf.WriteString(fmt.Sprintf("miniview_conference_audio_only %d\n", boolGauge(snapshot.AudioOnly)))
}

func (e *PrometheusExporter) writeHostMetrics(buf *bytes.Buffer) {
	if e.hosts == nil {
		return
	}

	buf.WriteString("# HELP miniview_hosts_connected Number of host applications currently connected.\n")
	buf.WriteString("# TYPE miniview_hosts_connected gauge\n")
	buf.WriteString(fmt.Sprintf("miniview_hosts_connected %d\n", e.hosts.HostCount()))
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
