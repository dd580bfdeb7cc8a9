package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RateLimited запросы, отклоненные ограничителем
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// PeripheralEventsReceived принятые события периферии
	PeripheralEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peripheral_events_received_total",
			Help: "Total number of peripheral events received",
		},
		[]string{"peripheral_type"},
	)

	// HistorySize текущий размер истории
	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "peripheral_history_size",
			Help: "Current number of events in the peripheral history",
		},
	)

	// HistoryEvictions события, вытесненные из истории
	HistoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peripheral_history_evictions_total",
			Help: "Total number of events evicted from the peripheral history",
		},
	)

	// FramesDecoded результаты разбора кадров
	FramesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peripheral_frames_decoded_total",
			Help: "Frame decoding outcomes for received peripheral data",
		},
		[]string{"result"},
	)

	// ArchiveQueueSize размер очереди архивации
	ArchiveQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "peripheral_archive_queue_size",
			Help: "Current size of the archive queue",
		},
	)

	// ArchiveLatency задержка записи в архив
	ArchiveLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peripheral_archive_latency_seconds",
			Help:    "Archive write latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// RedisOperations операции с Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	// WebSocketClients подключенные клиенты потока событий
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients_connected",
			Help: "Number of connected live stream clients",
		},
	)

	// WebSocketDropped клиенты, отключенные из-за переполнения
	WebSocketDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_clients_dropped_total",
			Help: "Total number of slow live stream clients disconnected",
		},
	)

	// DBQueryDuration длительность запросов к БД
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBActiveConnections активные соединения с БД
	DBActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_active_connections",
			Help: "Number of active database connections",
		},
	)

	// DBIdleConnections простаивающие соединения с БД
	DBIdleConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_idle_connections",
			Help: "Number of idle database connections",
		},
	)
)
