package mqtt

import "github.com/prometheus/client_golang/prometheus"

// Stat is the set of counters/gauges kept per Endpoint, generalizing
// the teacher's package-level Stat (stat.go) which tracked one global
// set shared by every client; here each Endpoint gets its own so
// multiple concurrent endpoints don't clash on registration.
type Stat struct {
	PacketsSent     prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	SendQuota       prometheus.Gauge
	KeepAliveTimeouts prometheus.Counter
	Reconnects      prometheus.Counter
}

func newStat(clientID string) *Stat {
	labels := prometheus.Labels{"client_id": clientID}
	return &Stat{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_endpoint_packets_sent_total", Help: "Total MQTT packets written to the transport.", ConstLabels: labels,
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_endpoint_packets_received_total", Help: "Total MQTT packets decoded from the transport.", ConstLabels: labels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_endpoint_bytes_sent_total", Help: "Total bytes written to the transport.", ConstLabels: labels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_endpoint_bytes_received_total", Help: "Total bytes read from the transport.", ConstLabels: labels,
		}),
		SendQuota: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_endpoint_send_quota", Help: "Remaining outbound QoS>0 send quota.", ConstLabels: labels,
		}),
		KeepAliveTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_endpoint_keepalive_timeouts_total", Help: "Total keep-alive timeouts observed.", ConstLabels: labels,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_endpoint_reconnects_total", Help: "Total successful reconnects (new CONNACK after a prior transport close).", ConstLabels: labels,
		}),
	}
}

// Register registers every metric with reg, mirroring the teacher's
// Stat.Register but taking an explicit Registerer instead of always
// using the global default, so tests and multi-endpoint hosts can use
// independent registries.
func (s *Stat) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		s.PacketsSent, s.PacketsReceived, s.BytesSent, s.BytesReceived,
		s.SendQuota, s.KeepAliveTimeouts, s.Reconnects,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
