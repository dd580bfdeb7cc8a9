package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"microcloudlab-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu     sync.Mutex
	events []models.PeripheralEvent
	err    error
	block  chan struct{}
}

func (s *memorySink) StoreEvent(ctx context.Context, event models.PeripheralEvent) error {
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testEvent(peripheralType string) models.PeripheralEvent {
	return models.PeripheralEvent{
		PeripheralType: peripheralType,
		Instance:       peripheralType + "1",
		McuID:          "esp32-1",
		Configuration:  models.Configuration{},
		RawData:        models.ByteSeq{},
		HexData:        "No raw data",
		Timestamp:      "unknown",
	}
}

func TestArchiver_StoresEvents(t *testing.T) {
	sink := &memorySink{}
	archiver := NewArchiver(sink, 10, zap.NewNop())
	archiver.Start(2)

	for i := 0; i < 5; i++ {
		assert.True(t, archiver.Enqueue(testEvent("UART")))
	}

	assert.Eventually(t, func() bool { return sink.count() == 5 }, time.Second, 10*time.Millisecond)
	archiver.Stop()

	stats := archiver.GetStats()
	assert.Equal(t, uint64(5), stats["stored"])
	assert.Equal(t, uint64(0), stats["failed"])
	assert.Equal(t, 2, stats["workers"])
}

func TestArchiver_DropsWhenQueueFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	archiver := NewArchiver(sink, 1, zap.NewNop())

	// воркеры не запущены, очередь на одно место
	assert.True(t, archiver.Enqueue(testEvent("SPI")))
	assert.False(t, archiver.Enqueue(testEvent("SPI")))
	assert.Equal(t, 1, archiver.QueueSize())
	assert.Equal(t, uint64(1), archiver.GetStats()["dropped"])

	close(sink.block)
	archiver.Stop()
	assert.Equal(t, 1, sink.count())
}

func TestArchiver_StopDrainsQueue(t *testing.T) {
	sink := &memorySink{}
	archiver := NewArchiver(sink, 100, zap.NewNop())

	for i := 0; i < 20; i++ {
		require.True(t, archiver.Enqueue(testEvent("I2C")))
	}

	archiver.Stop()
	assert.Equal(t, 20, sink.count())
	assert.Zero(t, archiver.QueueSize())

	// после остановки события не принимаются
	assert.False(t, archiver.Enqueue(testEvent("I2C")))
	archiver.Stop()
}

func TestArchiver_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &memorySink{err: errors.New("redis down")}
	archiver := NewArchiver(sink, 10, zap.New(core))
	archiver.Start(1)

	archiver.Enqueue(testEvent("PWM"))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Failed to archive peripheral event").Len() == 1
	}, time.Second, 10*time.Millisecond)
	archiver.Stop()

	assert.Equal(t, uint64(1), archiver.GetStats()["failed"])
	entry := logs.FilterMessage("Failed to archive peripheral event").All()[0]
	assert.Equal(t, "PWM", entry.ContextMap()["peripheral_type"])
}

func TestNewArchiver_DefaultQueueSize(t *testing.T) {
	archiver := NewArchiver(&memorySink{}, 0, zap.NewNop())
	assert.Equal(t, 1000, archiver.GetStats()["queue_cap"])
}
