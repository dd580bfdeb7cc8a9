package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"microcloudlab-backend/internal/models"
	"microcloudlab-backend/internal/peripheral"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	maxBodyBytes        = 1 << 20
	defaultArchiveLimit = 20
	maxArchiveLimit     = 100
	healthCheckTimeout  = 2 * time.Second
)

// EventArchive долговременный архив событий
type EventArchive interface {
	GetRecentEvents(ctx context.Context, peripheralType string, limit int) ([]models.PeripheralEvent, error)
	Ping(ctx context.Context) error
	GetStats() map[string]interface{}
}

// StatsProvider компонент, отдающий свою статистику
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Stream поток событий для WebSocket клиентов
type Stream interface {
	http.Handler
	ClientCount() int
}

// MicrocontrollerRepository каталог микроконтроллеров
type MicrocontrollerRepository interface {
	List(ctx context.Context) ([]models.Microcontroller, error)
	Get(ctx context.Context, id uuid.UUID) (models.Microcontroller, error)
	Create(ctx context.Context, mc models.Microcontroller) (models.Microcontroller, error)
	Delete(ctx context.Context, id uuid.UUID) (models.Microcontroller, error)
	BulkDelete(ctx context.Context, ids []string) (models.BulkDeleteResult, error)
	HealthCheck(ctx context.Context) error
}

// Option подключает необязательные компоненты
type Option func(*Handler)

// WithArchive подключает архив Redis и статистику архиватора
func WithArchive(archive EventArchive, archiver StatsProvider) Option {
	return func(h *Handler) {
		h.archive = archive
		h.archiver = archiver
	}
}

func WithStream(stream Stream) Option {
	return func(h *Handler) {
		h.stream = stream
	}
}

func WithCatalog(repo MicrocontrollerRepository) Option {
	return func(h *Handler) {
		h.catalog = repo
	}
}

// Handler обработчик HTTP запросов
type Handler struct {
	service  *peripheral.Service
	logger   *zap.Logger
	archive  EventArchive
	archiver StatsProvider
	stream   Stream
	catalog  MicrocontrollerRepository
}

// NewHandler создает новый обработчик
func NewHandler(service *peripheral.Service, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, models.ErrorResponse{
		Status:  models.StatusError,
		Message: message,
	})
}

// SendPeripheral обрабатывает POST /peripheral/send/
func (h *Handler) SendPeripheral(w http.ResponseWriter, r *http.Request) {
	req, err := peripheral.DecodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("Rejected peripheral payload", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Send(req))
}

// ViewLast обрабатывает GET /peripheral/view/
func (h *Handler) ViewLast(w http.ResponseWriter, r *http.Request) {
	event, ok := h.service.Last()
	if !ok {
		h.writeJSON(w, http.StatusOK, models.PeripheralViewResponse{
			Status:  models.StatusNoData,
			Message: "No peripheral data received yet",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, models.PeripheralViewResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Last %s data from %s", event.PeripheralType, event.McuID),
		Data:    &event,
	})
}

// History обрабатывает GET /peripheral/history/
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history := h.service.History()

	h.writeJSON(w, http.StatusOK, models.PeripheralListResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Retrieved %d peripheral events", len(history)),
		Data:    history,
		Count:   len(history),
	})
}

// ViewByType обрабатывает GET /peripheral/view/{peripheral_type}/
func (h *Handler) ViewByType(w http.ResponseWriter, r *http.Request) {
	peripheralType := mux.Vars(r)["peripheral_type"]
	events := h.service.ByType(peripheralType)

	h.writeJSON(w, http.StatusOK, models.PeripheralListResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Retrieved %d %s events", len(events), strings.ToUpper(peripheralType)),
		Data:    events,
		Count:   len(events),
	})
}

// Archive обрабатывает GET /peripheral/archive/{peripheral_type}/
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, http.StatusServiceUnavailable, "peripheral archive is disabled")
		return
	}

	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxArchiveLimit)
	}

	peripheralType := strings.ToUpper(mux.Vars(r)["peripheral_type"])
	events, err := h.archive.GetRecentEvents(r.Context(), peripheralType, limit)
	if err != nil {
		h.logger.Error("Failed to read peripheral archive",
			zap.String("peripheral_type", peripheralType),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to read peripheral archive")
		return
	}

	h.writeJSON(w, http.StatusOK, models.PeripheralListResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Retrieved %d archived %s events", len(events), peripheralType),
		Data:    events,
		Count:   len(events),
	})
}

// componentStatus проверка необязательной зависимости
func componentStatus(ctx context.Context, configured bool, check func(context.Context) error) (string, bool) {
	if !configured {
		return "disabled", true
	}
	if err := check(ctx); err != nil {
		return "unavailable", false
	}
	return "ok", true
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	redisStatus, redisOK := componentStatus(ctx, h.archive != nil, func(ctx context.Context) error {
		return h.archive.Ping(ctx)
	})
	dbStatus, dbOK := componentStatus(ctx, h.catalog != nil, func(ctx context.Context) error {
		return h.catalog.HealthCheck(ctx)
	})

	status := "healthy"
	httpStatus := http.StatusOK

	if !redisOK || !dbOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		h.logger.Warn("Health check degraded",
			zap.String("redis", redisStatus),
			zap.String("database", dbStatus))
	}

	h.writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"redis":     redisStatus,
		"database":  dbStatus,
		"timestamp": time.Now(),
	})
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"history":   h.service.GetStats(),
		"timestamp": time.Now(),
	}

	if h.archiver != nil {
		stats["archiver"] = h.archiver.GetStats()
	}
	if h.archive != nil {
		stats["redis"] = h.archive.GetStats()
	}
	if h.stream != nil {
		stats["websocket_clients"] = h.stream.ClientCount()
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// Stream обрабатывает GET /peripheral/stream/
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		h.writeError(w, http.StatusServiceUnavailable, "live stream is disabled")
		return
	}
	h.stream.ServeHTTP(w, r)
}

// NotFound ответ для неизвестных маршрутов
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "route not found")
}

// MethodNotAllowed ответ для неподдерживаемого метода
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
