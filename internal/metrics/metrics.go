package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service gauges and counters. Rooms are never deleted, so
// ActiveRooms only ever grows within one process lifetime.
type Metrics struct {
	ActiveRooms     prometheus.Gauge
	OccupiedPlayers prometheus.Gauge
	RoomsCreated    prometheus.Counter
	OnlineUsers     prometheus.Gauge
}

func New(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms held by the registry",
		}),
		OccupiedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "occupied_players",
			Help:      "Number of players currently holding a mark in some room",
		}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Number of connected websocket clients",
		}),
	}

	registerer.MustRegister(
		m.ActiveRooms,
		m.OccupiedPlayers,
		m.RoomsCreated,
		m.OnlineUsers,
	)

	return m
}

func (that *Metrics) RoomCreated() {
	if that == nil {
		return
	}

	that.RoomsCreated.Inc()
	that.ActiveRooms.Inc()
}

func (that *Metrics) PlayerJoined() {
	if that == nil {
		return
	}

	that.OccupiedPlayers.Inc()
}

func (that *Metrics) PlayerLeft() {
	if that == nil {
		return
	}

	that.OccupiedPlayers.Dec()
}

func (that *Metrics) SetOnlineUsers(count int) {
	if that == nil {
		return
	}

	that.OnlineUsers.Set(float64(count))
}
