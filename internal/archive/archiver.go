package archive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"microcloudlab-backend/internal/metrics"
	"microcloudlab-backend/internal/models"

	"go.uber.org/zap"
)

// EventSink хранилище, куда пишутся события
type EventSink interface {
	StoreEvent(ctx context.Context, event models.PeripheralEvent) error
}

// Archiver асинхронно сохраняет события периферии пулом воркеров
type Archiver struct {
	sink         EventSink
	logger       *zap.Logger
	writeTimeout time.Duration
	eventsChan   chan models.PeripheralEvent
	stopChan     chan struct{}
	wg           sync.WaitGroup
	stopOnce     sync.Once
	stopped      atomic.Bool
	workers      int

	stored  atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewArchiver создает архиватор с очередью заданного размера
func NewArchiver(sink EventSink, queueSize int, logger *zap.Logger) *Archiver {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &Archiver{
		sink:         sink,
		logger:       logger,
		writeTimeout: 5 * time.Second,
		eventsChan:   make(chan models.PeripheralEvent, queueSize),
		stopChan:     make(chan struct{}),
	}
}

// Start запускает воркеры
func (a *Archiver) Start(workers int) {
	a.workers = workers
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.processEvents()
	}
}

// Stop останавливает воркеры и дописывает то, что осталось в очереди
func (a *Archiver) Stop() {
	a.stopOnce.Do(func() {
		a.stopped.Store(true)
		close(a.stopChan)
		a.wg.Wait()

		for {
			select {
			case event := <-a.eventsChan:
				a.store(event)
			default:
				return
			}
		}
	})
}

// Enqueue ставит событие в очередь. Если очередь полна, событие отбрасывается.
func (a *Archiver) Enqueue(event models.PeripheralEvent) bool {
	if a.stopped.Load() {
		a.dropped.Add(1)
		return false
	}

	select {
	case a.eventsChan <- event:
		metrics.ArchiveQueueSize.Set(float64(len(a.eventsChan)))
		return true
	default:
		a.dropped.Add(1)
		metrics.RedisOperations.WithLabelValues("store_event", "dropped").Inc()
		return false
	}
}

// processEvents обрабатывает события из канала
func (a *Archiver) processEvents() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stopChan:
			return
		case event := <-a.eventsChan:
			a.store(event)
		}
	}
}

func (a *Archiver) store(event models.PeripheralEvent) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()

	if err := a.sink.StoreEvent(ctx, event); err != nil {
		a.failed.Add(1)
		metrics.RedisOperations.WithLabelValues("store_event", "error").Inc()
		a.logger.Warn("Failed to archive peripheral event",
			zap.String("peripheral_type", event.PeripheralType),
			zap.String("mcu_id", event.McuID),
			zap.Error(err))
	} else {
		a.stored.Add(1)
		metrics.RedisOperations.WithLabelValues("store_event", "success").Inc()
	}

	metrics.ArchiveLatency.Observe(time.Since(start).Seconds())
	metrics.ArchiveQueueSize.Set(float64(len(a.eventsChan)))
}

// QueueSize текущий размер очереди
func (a *Archiver) QueueSize() int {
	return len(a.eventsChan)
}

// GetStats возвращает статистику архиватора
func (a *Archiver) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"workers":    a.workers,
		"queue_size": len(a.eventsChan),
		"queue_cap":  cap(a.eventsChan),
		"stored":     a.stored.Load(),
		"failed":     a.failed.Load(),
		"dropped":    a.dropped.Load(),
	}
}
