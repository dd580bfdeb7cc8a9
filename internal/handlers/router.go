package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter регистрирует все маршруты сервиса.
// rps <= 0 выключает ограничение частоты на маршрутах приема данных.
func NewRouter(h *Handler, rps float64, burst int) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	router.Use(h.recoveryMiddleware)
	router.Use(metricsMiddleware)
	router.Use(loggingMiddleware(h.logger))

	limiter := newRateLimiter(rps, burst, h)

	// Периферия
	router.Handle("/peripheral/send/", limiter.wrap(h.SendPeripheral)).Methods(http.MethodPost)
	router.Handle("/uart/send/", limiter.wrap(h.SendPeripheral)).Methods(http.MethodPost)
	router.HandleFunc("/peripheral/view/", h.ViewLast).Methods(http.MethodGet)
	router.HandleFunc("/uart/view/", h.ViewLast).Methods(http.MethodGet)
	router.HandleFunc("/peripheral/history/", h.History).Methods(http.MethodGet)
	router.HandleFunc("/peripheral/view/{peripheral_type}/", h.ViewByType).Methods(http.MethodGet)
	router.HandleFunc("/peripheral/archive/{peripheral_type}/", h.Archive).Methods(http.MethodGet)
	router.HandleFunc("/peripheral/stream/", h.Stream).Methods(http.MethodGet)

	// Каталог микроконтроллеров
	router.HandleFunc("/microcontrollers/", h.ListMicrocontrollers).Methods(http.MethodGet)
	router.HandleFunc("/microcontrollers/", h.CreateMicrocontroller).Methods(http.MethodPost)
	router.HandleFunc("/microcontrollers/bulk-delete/", h.BulkDeleteMicrocontrollers).Methods(http.MethodPost)
	router.HandleFunc("/microcontrollers/{id}/", h.GetMicrocontroller).Methods(http.MethodGet)
	router.HandleFunc("/microcontrollers/{id}/", h.DeleteMicrocontroller).Methods(http.MethodDelete)

	// Служебные
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	router.Handle("/prometheus", promhttp.Handler()).Methods(http.MethodGet)

	return router
}
