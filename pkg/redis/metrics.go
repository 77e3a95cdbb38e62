package redis

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carebot_redis_pool_total_conns",
		Help: "Number of connections currently held by the Redis pool",
	})
	poolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carebot_redis_pool_idle_conns",
		Help: "Number of idle connections in the Redis pool",
	})
	poolStaleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carebot_redis_pool_stale_conns",
		Help: "Number of stale connections removed from the Redis pool",
	})
	poolHits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carebot_redis_pool_hits",
		Help: "Cumulative number of times a free connection was found in the pool",
	})
	poolMisses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carebot_redis_pool_misses",
		Help: "Cumulative number of times a new connection had to be opened",
	})
	poolTimeouts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carebot_redis_pool_timeouts",
		Help: "Cumulative number of waits for a connection that timed out",
	})
)

// PoolStatsCollector periodically copies connection pool statistics from the
// client into the carebot_redis_pool_* gauges. Session state, rate limits,
// idempotency records, and the translation cache all share this pool, so its
// health is worth watching on its own.
type PoolStatsCollector struct {
	client   *Client
	interval time.Duration
}

// NewPoolStatsCollector builds a collector bound to client.
func NewPoolStatsCollector(client *Client) *PoolStatsCollector {
	return &PoolStatsCollector{client: client, interval: 15 * time.Second}
}

// Run polls pool statistics until ctx is cancelled.
func (c *PoolStatsCollector) Run(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		c.collect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *PoolStatsCollector) collect() {
	stats := c.client.PoolStats()
	if stats == nil {
		return
	}

	poolTotalConns.Set(float64(stats.TotalConns))
	poolIdleConns.Set(float64(stats.IdleConns))
	poolStaleConns.Set(float64(stats.StaleConns))
	poolHits.Set(float64(stats.Hits))
	poolMisses.Set(float64(stats.Misses))
	poolTimeouts.Set(float64(stats.Timeouts))
}
