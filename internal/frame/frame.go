package frame

import (
	"fmt"
	"strings"
)

// Маркеры кадра конфигурации
const (
	StartByte byte = 0xAA
	EndByte   byte = 0x55

	// MinLength минимальная длина, при которой кадр разбирается:
	// start + command + length + end
	MinLength = 4
)

// Коды команд по типу периферии
const (
	CmdUART      byte = 0x01
	CmdSPI       byte = 0x02
	CmdI2C       byte = 0x03
	CmdPWM       byte = 0x04
	CmdGPIO      byte = 0x05
	CmdADC       byte = 0x06
	CmdDAC       byte = 0x07
	CmdCAN       byte = 0x08
	CmdUSB       byte = 0x09
	CmdWIFI      byte = 0x0A
	CmdBluetooth byte = 0x0B
	CmdConfig    byte = 0x0C
)

var commandNames = map[byte]string{
	CmdUART:      "UART",
	CmdSPI:       "SPI",
	CmdI2C:       "I2C",
	CmdPWM:       "PWM",
	CmdGPIO:      "GPIO",
	CmdADC:       "ADC",
	CmdDAC:       "DAC",
	CmdCAN:       "CAN",
	CmdUSB:       "USB",
	CmdWIFI:      "WIFI",
	CmdBluetooth: "BLUETOOTH",
	CmdConfig:    "CONFIG",
}

// Frame разобранная структура кадра: start/command/length/data/end
type Frame struct {
	Start   byte
	Command byte
	Length  byte
	Data    []byte
	End     byte
}

// Decode разбирает кадр из сырых байт. Для коротких данных (< 4 байт) кадра нет.
//
// Секция данных берется только когда байт больше четырех: при длине ровно 4
// средний байт в нее не попадает, потребители диагностического лога
// рассчитывают именно на такую форму.
func Decode(raw []byte) (Frame, bool) {
	if len(raw) < MinLength {
		return Frame{}, false
	}

	last := len(raw) - 1
	data := []byte{}
	if len(raw) > MinLength {
		data = append(data, raw[3:last]...)
	}

	return Frame{
		Start:   raw[0],
		Command: raw[1],
		Length:  raw[2],
		Data:    data,
		End:     raw[last],
	}, true
}

// CommandName возвращает название команды, если код известен
func CommandName(cmd byte) (string, bool) {
	name, ok := commandNames[cmd]
	return name, ok
}

// CommandFor возвращает код команды для типа периферии
func CommandFor(peripheralType string) (byte, bool) {
	upper := strings.ToUpper(peripheralType)
	for code, name := range commandNames {
		if name == upper {
			return code, true
		}
	}
	return 0, false
}

// HasMarkers сообщает, совпадают ли start/end с маркерами протокола
func (f Frame) HasMarkers() bool {
	return f.Start == StartByte && f.End == EndByte
}

// Sections текстовое представление частей кадра
type Sections struct {
	Start   string `json:"start"`
	Command string `json:"command"`
	Length  string `json:"length"`
	Data    string `json:"data"`
	End     string `json:"end"`
}

// Format переводит кадр в hex-секции для отображения
func (f Frame) Format() Sections {
	return Sections{
		Start:   Hex([]byte{f.Start}),
		Command: Hex([]byte{f.Command}),
		Length:  Hex([]byte{f.Length}),
		Data:    Hex(f.Data),
		End:     Hex([]byte{f.End}),
	}
}

// Hex форматирует байты как "0A FF 00"
func Hex(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// ByteHex форматирует один байт как 0x0A
func ByteHex(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}
