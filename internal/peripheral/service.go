package peripheral

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"microcloudlab-backend/internal/frame"
	"microcloudlab-backend/internal/metrics"
	"microcloudlab-backend/internal/models"

	"go.uber.org/zap"
)

// Значения по умолчанию для необязательных полей запроса
const (
	DefaultPeripheralType = "UNKNOWN"
	DefaultInstance       = "unknown"
	DefaultMcuID          = "unknown"
	DefaultTimestamp      = "unknown"

	NoRawData = "No raw data"
)

// ErrInvalidPayload тело запроса не удалось разобрать
var ErrInvalidPayload = errors.New("invalid payload")

// Archiver принимает события для асинхронного сохранения
type Archiver interface {
	Enqueue(event models.PeripheralEvent) bool
}

// Broadcaster рассылает события подписчикам
type Broadcaster interface {
	Broadcast(event models.PeripheralEvent)
}

// Option настраивает Service
type Option func(*Service)

// WithArchiver подключает архив событий
func WithArchiver(a Archiver) Option {
	return func(s *Service) {
		s.archiver = a
	}
}

// WithBroadcaster подключает рассылку событий
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) {
		s.broadcaster = b
	}
}

// Service симулятор обмена с периферией: прием, хранение и выдача событий
type Service struct {
	store       *Store
	logger      *zap.Logger
	archiver    Archiver
	broadcaster Broadcaster
}

// NewService создает сервис поверх общего хранилища
func NewService(store *Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DecodeRequest читает JSON-объект запроса из тела
func DecodeRequest(body io.Reader) (models.PeripheralSendRequest, error) {
	var req models.PeripheralSendRequest

	data, err := io.ReadAll(body)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return req, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	if trimmed[0] != '{' {
		return req, fmt.Errorf("%w: body must be a JSON object", ErrInvalidPayload)
	}

	if err := json.Unmarshal(trimmed, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return req, nil
}

// NewEvent нормализует запрос в событие. Производные поля hex_data и
// data_length всегда вычисляются из raw_data.
func NewEvent(req models.PeripheralSendRequest) models.PeripheralEvent {
	peripheralType := DefaultPeripheralType
	if req.PeripheralType != nil {
		peripheralType = strings.ToUpper(*req.PeripheralType)
	}

	instance := DefaultInstance
	if req.Instance != nil {
		instance = *req.Instance
	}

	mcuID := DefaultMcuID
	if req.McuID != nil {
		mcuID = *req.McuID
	}

	configuration := req.Configuration
	if configuration == nil {
		configuration = models.Configuration{}
	}

	raw := req.Data
	if raw == nil {
		raw = models.ByteSeq{}
	}

	return models.PeripheralEvent{
		PeripheralType: peripheralType,
		Instance:       instance,
		McuID:          mcuID,
		Configuration:  configuration,
		RawData:        raw,
		HexData:        HexData(raw),
		Timestamp:      TimestampString(req.Timestamp),
		DataLength:     len(raw),
	}
}

// HexData отображение сырых байт для клиента
func HexData(raw []byte) string {
	if len(raw) == 0 {
		return NoRawData
	}
	return frame.Hex(raw)
}

// TimestampString приводит timestamp клиента к строке.
// Строка берется как есть, любое другое JSON-значение сохраняется компактным текстом.
func TimestampString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return DefaultTimestamp
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// Send принимает конфигурацию периферии, сохраняет событие и возвращает подтверждение
func (s *Service) Send(req models.PeripheralSendRequest) models.PeripheralSendResponse {
	event := NewEvent(req)

	evicted := s.store.Add(event)

	metrics.PeripheralEventsReceived.WithLabelValues(event.PeripheralType).Inc()
	metrics.HistorySize.Set(float64(s.store.Len()))
	if evicted > 0 {
		metrics.HistoryEvictions.Add(float64(evicted))
	}

	s.logEvent(event)

	if s.archiver != nil && !s.archiver.Enqueue(event) {
		s.logger.Warn("Archive queue full, event not archived",
			zap.String("peripheral_type", event.PeripheralType))
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(event)
	}

	return models.PeripheralSendResponse{
		Status:         models.StatusSuccess,
		Message:        fmt.Sprintf("%s configuration sent to %s successfully", event.PeripheralType, event.McuID),
		PeripheralType: event.PeripheralType,
		Instance:       event.Instance,
		McuID:          event.McuID,
		DataLength:     event.DataLength,
		Timestamp:      event.Timestamp,
	}
}

// logEvent пишет диагностику события. Ошибки логирования не влияют на сохранение.
func (s *Service) logEvent(event models.PeripheralEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FramesDecoded.WithLabelValues("log_failed").Inc()
		}
	}()

	fields := []zap.Field{
		zap.String("peripheral_type", event.PeripheralType),
		zap.String("instance", event.Instance),
		zap.String("mcu_id", event.McuID),
		zap.String("timestamp", event.Timestamp),
		zap.Int("data_length", event.DataLength),
		zap.String("hex_data", event.HexData),
	}

	if f, ok := frame.Decode(event.RawData); ok {
		metrics.FramesDecoded.WithLabelValues("decoded").Inc()
		fields = append(fields,
			zap.String("frame_start", frame.ByteHex(f.Start)),
			zap.String("frame_command", frame.ByteHex(f.Command)),
			zap.String("frame_length", frame.ByteHex(f.Length)),
			zap.String("frame_data", frame.Hex(f.Data)),
			zap.String("frame_end", frame.ByteHex(f.End)),
			zap.Bool("frame_markers", f.HasMarkers()),
		)
		if name, known := frame.CommandName(f.Command); known {
			fields = append(fields, zap.String("frame_command_name", name))
		}
	} else {
		metrics.FramesDecoded.WithLabelValues("too_short").Inc()
	}

	for _, key := range event.Configuration.Keys() {
		fields = append(fields, zap.String("config."+key, event.Configuration[key].String()))
	}

	s.logger.Info("Peripheral data received", fields...)
}

// Last возвращает последнее принятое событие
func (s *Service) Last() (models.PeripheralEvent, bool) {
	return s.store.Last()
}

// History возвращает всю историю событий
func (s *Service) History() []models.PeripheralEvent {
	return s.store.History()
}

// ByType возвращает события указанного типа
func (s *Service) ByType(peripheralType string) []models.PeripheralEvent {
	return s.store.ByType(peripheralType)
}

// GetStats статистика хранилища
func (s *Service) GetStats() map[string]interface{} {
	return s.store.GetStats()
}
