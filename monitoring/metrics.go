package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	scanResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_results_total",
			Help: "Scan outcomes per event",
		},
		[]string{"event_id", "status"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Time to resolve a scan",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_id"},
	)

	paymentDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_decisions_total",
			Help: "Approved and rejected tickets",
		},
		[]string{"status"},
	)

	wristbandsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wristbands_issued_total",
			Help: "Wristbands stamped for the first time",
		},
	)

	streamBacklog = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_stream_length",
			Help: "Entries in the notification stream per topic",
		},
		[]string{"topic"},
	)
)

type Monitor struct {
	redis    *redis.Client
	topics   []string
	interval time.Duration
}

func NewMonitor(redisClient *redis.Client, topics ...string) *Monitor {
	return &Monitor{
		redis:    redisClient,
		topics:   topics,
		interval: 30 * time.Second,
	}
}

// Run collects stream metrics until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.collectStreamMetrics(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectStreamMetrics(ctx context.Context) {
	for _, topic := range m.topics {
		length, err := m.redis.XLen(ctx, topic).Result()
		if err != nil {
			slog.Debug("Stream length unavailable", "topic", topic, "error", err)
			continue
		}
		streamBacklog.WithLabelValues(topic).Set(float64(length))
	}
}

func (m *Monitor) TrackScan(eventID, status string, duration time.Duration) {
	scanResults.WithLabelValues(eventID, status).Inc()
	scanDuration.WithLabelValues(eventID).Observe(duration.Seconds())
}

func (m *Monitor) TrackDecision(status string, tickets int) {
	paymentDecisions.WithLabelValues(status).Add(float64(tickets))
}

func (m *Monitor) TrackWristbands(issued int) {
	wristbandsIssued.Add(float64(issued))
}
