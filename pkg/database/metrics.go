package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// statSource is the part of *pgxpool.Pool the collector reads.
type statSource interface {
	Stat() *pgxpool.Stat
}

type poolCollector struct {
	pool statSource

	acquired    *prometheus.Desc
	idle        *prometheus.Desc
	total       *prometheus.Desc
	max         *prometheus.Desc
	acquires    *prometheus.Desc
	emptyWaits  *prometheus.Desc
	acquireWait *prometheus.Desc
}

// NewPoolCollector exports pgxpool statistics under the db_pool_ prefix.
func NewPoolCollector(pool statSource, service string) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("db_pool_"+name, help, nil, prometheus.Labels{"service": service})
	}
	return &poolCollector{
		pool:        pool,
		acquired:    desc("acquired_connections", "Connections currently checked out"),
		idle:        desc("idle_connections", "Connections currently idle"),
		total:       desc("total_connections", "Connections open in the pool"),
		max:         desc("max_connections", "Pool size limit"),
		acquires:    desc("acquire_count_total", "Successful acquires"),
		emptyWaits:  desc("empty_acquire_count_total", "Acquires that waited for a free connection"),
		acquireWait: desc("acquire_duration_seconds_total", "Time spent acquiring connections"),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquires
	ch <- c.emptyWaits
	ch <- c.acquireWait
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	gauge(c.acquired, float64(s.AcquiredConns()))
	gauge(c.idle, float64(s.IdleConns()))
	gauge(c.total, float64(s.TotalConns()))
	gauge(c.max, float64(s.MaxConns()))
	counter(c.acquires, float64(s.AcquireCount()))
	counter(c.emptyWaits, float64(s.EmptyAcquireCount()))
	counter(c.acquireWait, s.AcquireDuration().Seconds())
}

// RegisterPoolMetrics registers the pool collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolCollector(pool, service))
}
