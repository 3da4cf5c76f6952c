package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики сервиса. Методы безопасны на nil-получателе, чтобы
// ядро можно было собирать в тестах без регистрации коллекторов.
type Metrics struct {
	connections     prometheus.Gauge
	onlineUsers     prometheus.Gauge
	messagesRelayed prometheus.Counter
	events          *prometheus.CounterVec
	relayErrors     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_ws_connections",
			Help: "Open websocket connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Users with a live registered connection.",
		}),
		messagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_messages_relayed_total",
			Help: "Chat messages fanned out to conversation rooms.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_ws_events_total",
			Help: "Inbound websocket events by type.",
		}, []string{"type"}),
		relayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_relay_errors_total",
			Help: "Error events sent back to clients.",
		}),
	}
	reg.MustRegister(m.connections, m.onlineUsers, m.messagesRelayed, m.events, m.relayErrors)
	return m
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) SetOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(n))
}

func (m *Metrics) MessageRelayed() {
	if m == nil {
		return
	}
	m.messagesRelayed.Inc()
}

func (m *Metrics) InboundEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RelayError() {
	if m == nil {
		return
	}
	m.relayErrors.Inc()
}
