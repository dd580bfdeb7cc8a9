package peripheral

import (
	"strings"
	"sync"

	"microcloudlab-backend/internal/models"
)

// DefaultHistorySize сколько последних событий хранится в истории
const DefaultHistorySize = 50

// Store хранит историю событий периферии и последнее событие.
// Все изменения выполняются под одним мьютексом.
type Store struct {
	history  []models.PeripheralEvent
	last     *models.PeripheralEvent
	mu       sync.RWMutex
	capacity int
	total    uint64
	evicted  uint64
}

// NewStore создает пустое хранилище с заданным размером истории
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}

	return &Store{
		history:  make([]models.PeripheralEvent, 0, capacity),
		capacity: capacity,
	}
}

// Add делает событие последним и добавляет его в историю.
// Возвращает количество вытесненных старых событий.
func (s *Store) Add(event models.PeripheralEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = &event
	s.history = append(s.history, event)
	s.total++

	// Ограничиваем размер истории
	evicted := 0
	for len(s.history) > s.capacity {
		s.history[0] = models.PeripheralEvent{}
		s.history = s.history[1:]
		evicted++
	}
	s.evicted += uint64(evicted)

	return evicted
}

// Last возвращает последнее событие, если оно есть
func (s *Store) Last() (models.PeripheralEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return models.PeripheralEvent{}, false
	}
	return *s.last, true
}

// History возвращает копию истории, от старых к новым
func (s *Store) History() []models.PeripheralEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PeripheralEvent, len(s.history))
	copy(out, s.history)
	return out
}

// ByType возвращает события заданного типа (без учета регистра) в порядке поступления
func (s *Store) ByType(peripheralType string) []models.PeripheralEvent {
	target := strings.ToUpper(peripheralType)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PeripheralEvent, 0)
	for _, event := range s.history {
		if event.PeripheralType == target {
			out = append(out, event)
		}
	}
	return out
}

// Len текущий размер истории
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Capacity максимальный размер истории
func (s *Store) Capacity() int {
	return s.capacity
}

// GetStats возвращает статистику хранилища
func (s *Store) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]int)
	for _, event := range s.history {
		byType[event.PeripheralType]++
	}

	return map[string]interface{}{
		"history_size":     len(s.history),
		"history_capacity": s.capacity,
		"total_received":   s.total,
		"evicted":          s.evicted,
		"by_type":          byType,
		"has_last":         s.last != nil,
	}
}
