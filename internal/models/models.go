package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Статусы ответов периферийных эндпоинтов
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusNoData  = "no_data"
)

// PeripheralEvent событие конфигурации периферии, полученное от клиента
type PeripheralEvent struct {
	PeripheralType string        `json:"peripheral_type"`
	Instance       string        `json:"instance"`
	McuID          string        `json:"mcu_id"`
	Configuration  Configuration `json:"configuration"`
	RawData        ByteSeq       `json:"raw_data"`
	HexData        string        `json:"hex_data"`
	Timestamp      string        `json:"timestamp"`
	DataLength     int           `json:"data_length"`
}

// PeripheralSendRequest тело POST /peripheral/send/.
// Все поля необязательны, значения по умолчанию подставляет сервис.
type PeripheralSendRequest struct {
	PeripheralType *string         `json:"peripheral_type"`
	Instance       *string         `json:"instance"`
	McuID          *string         `json:"mcu_id"`
	Configuration  Configuration   `json:"configuration"`
	Data           ByteSeq         `json:"data"`
	Timestamp      json.RawMessage `json:"timestamp"`
}

// PeripheralSendResponse подтверждение симулированной отправки
type PeripheralSendResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	PeripheralType string `json:"peripheral_type"`
	Instance       string `json:"instance"`
	McuID          string `json:"mcu_id"`
	DataLength     int    `json:"data_length"`
	Timestamp      string `json:"timestamp"`
}

// PeripheralViewResponse ответ GET /peripheral/view/
type PeripheralViewResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    *PeripheralEvent `json:"data"`
}

// PeripheralListResponse ответ для истории и выборки по типу
type PeripheralListResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    []PeripheralEvent `json:"data"`
	Count   int               `json:"count"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ByteSeq последовательность байт, сериализуемая как массив чисел 0-255
// (а не base64, как []byte по умолчанию)
type ByteSeq []byte

// MarshalJSON пишет байты массивом чисел
func (b ByteSeq) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON принимает массив целых чисел и проверяет диапазон
func (b *ByteSeq) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("data must be an array of integers: %w", err)
	}

	out := make(ByteSeq, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("data[%d]: value %d out of range 0-255", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// MicrocontrollerTypes допустимые типы микроконтроллеров каталога
var MicrocontrollerTypes = []string{
	"ESP32",
	"ESP8266",
	"ARDUINO_UNO",
	"ARDUINO_NANO",
	"RASPBERRY_PI_PICO",
	"STM32",
	"PIC",
	"AVR",
}

// IsValidMicrocontrollerType проверяет тип по справочнику
func IsValidMicrocontrollerType(t string) bool {
	for _, known := range MicrocontrollerTypes {
		if known == t {
			return true
		}
	}
	return false
}

// Microcontroller запись каталога микроконтроллеров
type Microcontroller struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	Type           string        `json:"type" db:"type"`
	Description    string        `json:"description" db:"description"`
	Specifications Configuration `json:"specifications" db:"specifications"`
	IsAvailable    bool          `json:"is_available" db:"is_available"`
	IsDeletable    bool          `json:"is_deletable" db:"is_deletable"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// BulkDeleteRequest тело POST /microcontrollers/bulk-delete/
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeletedMicrocontroller краткая информация об удаленной записи
type DeletedMicrocontroller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// BulkDeleteFailure причина, по которой запись не удалена
type BulkDeleteFailure struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BulkDeleteResult явный результат массового удаления
type BulkDeleteResult struct {
	TotalRequested          int                      `json:"total_requested"`
	SuccessfulDeletions     int                      `json:"successful_deletions"`
	FailedDeletions         int                      `json:"failed_deletions"`
	DeletedMicrocontrollers []DeletedMicrocontroller `json:"deleted_microcontrollers"`
	InvalidIDs              []BulkDeleteFailure      `json:"invalid_ids"`
}

// Причины отказа при массовом удалении
const (
	ReasonInvalidID    = "invalid id"
	ReasonNotFound     = "not found"
	ReasonNotDeletable = "not deletable"
)

// MicrocontrollerCreateRequest тело POST /microcontrollers/
type MicrocontrollerCreateRequest struct {
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Description    string        `json:"description"`
	Specifications Configuration `json:"specifications"`
	IsAvailable    *bool         `json:"is_available"`
	IsDeletable    *bool         `json:"is_deletable"`
}

// Validate проверяет обязательные поля
func (r MicrocontrollerCreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !IsValidMicrocontrollerType(r.Type) {
		return fmt.Errorf("unknown microcontroller type %q", r.Type)
	}
	return nil
}

// ToMicrocontroller собирает запись каталога, флаги по умолчанию true
func (r MicrocontrollerCreateRequest) ToMicrocontroller() Microcontroller {
	mc := Microcontroller{
		Name:           r.Name,
		Type:           r.Type,
		Description:    r.Description,
		Specifications: r.Specifications,
		IsAvailable:    true,
		IsDeletable:    true,
	}
	if mc.Specifications == nil {
		mc.Specifications = Configuration{}
	}
	if r.IsAvailable != nil {
		mc.IsAvailable = *r.IsAvailable
	}
	if r.IsDeletable != nil {
		mc.IsDeletable = *r.IsDeletable
	}
	return mc
}
