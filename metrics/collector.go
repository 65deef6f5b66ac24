package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/luma/paddock/client"
	"github.com/luma/paddock/protocol"
)

const DefaultNamespace = "paddock"

type Options struct {
	// Namespace prefixes every metric name, defaults to DefaultNamespace
	Namespace string

	// Registry the metrics are registered with, defaults to
	// prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Collector turns a session's event streams into Prometheus metrics:
//   - paddock_messages_total: messages delivered to subscribers, by type
//   - paddock_broadcasting_events_total: broadcasting events, by event type
//   - paddock_state_changes_total: connection state transitions, by state
//   - paddock_connected: 1 while the session is established
//   - paddock_entries: cars with known details in the current session
//   - paddock_session_time_seconds: session clock of the latest update
type Collector struct {
	messages           *prometheus.CounterVec
	broadcastingEvents *prometheus.CounterVec
	stateChanges       *prometheus.CounterVec
	connected          prometheus.Gauge
	entries            prometheus.Gauge
	sessionTime        prometheus.Gauge

	mu   sync.Mutex
	seen map[uint16]struct{}
}

func NewCollector(options Options) *Collector {
	if options.Namespace == "" {
		options.Namespace = DefaultNamespace
	}
	if options.Registry == nil {
		options.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(options.Registry)

	return &Collector{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Name:      "messages_total",
			Help:      "Messages received from the simulator and delivered to subscribers",
		}, []string{"type"}),

		broadcastingEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Name:      "broadcasting_events_total",
			Help:      "Broadcasting events received from the simulator",
		}, []string{"event"}),

		stateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Name:      "state_changes_total",
			Help:      "Connection state transitions",
		}, []string{"state"}),

		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: options.Namespace,
			Name:      "connected",
			Help:      "1 while the session with the simulator is established",
		}),

		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: options.Namespace,
			Name:      "entries",
			Help:      "Cars whose entry details have been received this session",
		}),

		sessionTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: options.Namespace,
			Name:      "session_time_seconds",
			Help:      "Session clock reported by the latest realtime update",
		}),

		seen: make(map[uint16]struct{}),
	}
}

// Observe creates a Collector and subscribes it to every event stream of conn.
func Observe(conn *client.Conn, options Options) *Collector {
	c := NewCollector(options)

	conn.OnConnectionStateChange().Subscribe(c.ConnectionState)
	conn.OnTrackDataUpdate().Subscribe(func(*protocol.TrackData) {
		c.message(protocol.MsgTrackData)
	})
	conn.OnEntryListCarUpdate().Subscribe(c.EntryListCar)
	conn.OnRealtimeUpdate().Subscribe(c.RealtimeUpdate)
	conn.OnRealtimeCarUpdate().Subscribe(func(*protocol.RealtimeCarUpdate) {
		c.message(protocol.MsgRealtimeCarUpdate)
	})
	conn.OnBroadcastingEvent().Subscribe(c.BroadcastingEvent)

	return c
}

func (c *Collector) message(t protocol.InboundType) {
	c.messages.WithLabelValues(t.String()).Inc()
}

func (c *Collector) ConnectionState(state client.ConnectionState) {
	c.stateChanges.WithLabelValues(state.State.String()).Inc()

	if state.State == client.StateEstablished {
		c.connected.Set(1)
	} else {
		c.connected.Set(0)
	}

	// A new session starts with an empty entry list
	if state.State == client.StateConnecting {
		c.mu.Lock()
		c.seen = make(map[uint16]struct{})
		c.mu.Unlock()

		c.entries.Set(0)
	}
}

func (c *Collector) EntryListCar(car *protocol.EntryListCar) {
	c.message(protocol.MsgEntryListCar)

	c.mu.Lock()
	c.seen[car.CarIndex] = struct{}{}
	count := len(c.seen)
	c.mu.Unlock()

	c.entries.Set(float64(count))
}

func (c *Collector) RealtimeUpdate(u *protocol.RealtimeUpdate) {
	c.message(protocol.MsgRealtimeUpdate)
	c.sessionTime.Set(float64(u.SessionTimeMs) / 1000)
}

func (c *Collector) BroadcastingEvent(e *protocol.BroadcastingEvent) {
	c.message(protocol.MsgBroadcastingEvent)
	c.broadcastingEvents.WithLabelValues(e.Type.String()).Inc()
}
