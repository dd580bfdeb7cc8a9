package frame

import (
	"fmt"
	"strconv"
	"strings"

	"microcloudlab-backend/internal/models"
)

// Размер секции данных для каждого типа периферии
const (
	uartDataSize = 32
	spiDataSize  = 24
	i2cDataSize  = 20
	pwmDataSize  = 20
	gpioDataSize = 12
)

// noPin значение для неназначенного пина
const noPin byte = 0xFF

// builder последовательно заполняет кадр фиксированной длины
type builder struct {
	buf   []byte
	index int
}

func newBuilder(cmd byte, dataSize int) *builder {
	b := &builder{buf: make([]byte, dataSize+MinLength)}
	b.put(StartByte)
	b.put(cmd)
	b.put(byte(dataSize))
	return b
}

func (b *builder) put(v byte) {
	// последний байт зарезервирован под EndByte
	if b.index >= len(b.buf)-1 {
		return
	}
	b.buf[b.index] = v
	b.index++
}

func (b *builder) put16(v int64) {
	b.put(byte(v >> 8))
	b.put(byte(v))
}

func (b *builder) put32(v int64) {
	b.put(byte(v >> 24))
	b.put(byte(v >> 16))
	b.put(byte(v >> 8))
	b.put(byte(v))
}

func (b *builder) finish() []byte {
	// оставшиеся байты уже нулевые после make
	b.buf[len(b.buf)-1] = EndByte
	return b.buf
}

// Pack упаковывает конфигурацию периферии в кадр.
// Поддерживаются UART, SPI, I2C, PWM и GPIO.
func Pack(peripheralType string, cfg models.Configuration) ([]byte, error) {
	switch strings.ToUpper(peripheralType) {
	case "UART":
		return packUART(cfg), nil
	case "SPI":
		return packSPI(cfg), nil
	case "I2C":
		return packI2C(cfg), nil
	case "PWM":
		return packPWM(cfg), nil
	case "GPIO":
		return packGPIO(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported peripheral type: %s", peripheralType)
	}
}

func packUART(cfg models.Configuration) []byte {
	b := newBuilder(CmdUART, uartDataSize)

	b.put(digits(cfg.GetString("instance")))
	b.put32(cfg.GetInt("baudRate"))

	b.put(byte(cfg.GetInt("dataBits")))
	b.put(choice(cfg.GetString("parity"), "none", "even"))
	b.put(byte(cfg.GetFloat("stopBits") * 10)) // 1 -> 10, 1.5 -> 15, 2 -> 20

	switch cfg.GetString("flowControl") {
	case "none":
		b.put(0)
	case "rts":
		b.put(1)
	case "cts":
		b.put(2)
	default:
		b.put(3)
	}

	b.put(flags(cfg, "dmaEnable", "interruptEnable", "autoBaud"))
	b.put(byte(cfg.GetInt("oversampling")))

	b.put16(cfg.GetInt("txBufferSize"))
	b.put16(cfg.GetInt("rxBufferSize"))

	b.put(lastDigit(cfg.GetString("txPin")))
	b.put(lastDigit(cfg.GetString("rxPin")))
	b.put(optionalPin(cfg.GetString("rtsPin")))
	b.put(optionalPin(cfg.GetString("ctsPin")))

	return b.finish()
}

func packSPI(cfg models.Configuration) []byte {
	b := newBuilder(CmdSPI, spiDataSize)

	b.put(digits(cfg.GetString("instance")))
	b.put(binaryChoice(cfg.GetString("mode"), "master"))
	b.put(byte(cfg.GetInt("dataSize")))
	b.put(binaryChoice(cfg.GetString("clockPolarity"), "low"))
	b.put(binaryChoice(cfg.GetString("clockPhase"), "first"))
	b.put(byte(cfg.GetInt("baudRatePrescaler")))
	b.put(flags(cfg, "crcEnable", "nssPulse", "dmaEnable", "interruptEnable"))
	b.put(binaryChoice(cfg.GetString("direction"), "2lines"))

	b.put(lastDigit(cfg.GetString("mosiPin")))
	b.put(lastDigit(cfg.GetString("misoPin")))
	b.put(lastDigit(cfg.GetString("sckPin")))
	b.put(lastDigit(cfg.GetString("nssPin")))

	return b.finish()
}

func packI2C(cfg models.Configuration) []byte {
	b := newBuilder(CmdI2C, i2cDataSize)

	b.put(digits(cfg.GetString("instance")))
	b.put(byte(cfg.GetInt("address")))
	b.put32(cfg.GetInt("clockSpeed"))
	b.put(binaryChoice(cfg.GetString("dutyCycle"), "2"))
	b.put(flags(cfg, "generalCall", "noStretch", "dmaEnable", "interruptEnable"))

	b.put(lastDigit(cfg.GetString("sdaPin")))
	b.put(lastDigit(cfg.GetString("sclPin")))

	return b.finish()
}

func packPWM(cfg models.Configuration) []byte {
	b := newBuilder(CmdPWM, pwmDataSize)

	b.put(digits(cfg.GetString("instance")))
	b.put32(cfg.GetInt("frequency"))
	b.put16(int64(cfg.GetFloat("dutyCycle") * 100))
	b.put(lastDigit(cfg.GetString("outputPin")))

	return b.finish()
}

func packGPIO(cfg models.Configuration) []byte {
	b := newBuilder(CmdGPIO, gpioDataSize)

	b.put(digits(cfg.GetString("pin")))
	b.put(binaryChoice(cfg.GetString("direction"), "input"))
	b.put(boolByte(cfg.GetBool("pullUp")))
	b.put(boolByte(cfg.GetBool("pullDown")))

	return b.finish()
}

// flags собирает битовую маску: первый ключ 0x80, второй 0x40 и т.д.
func flags(cfg models.Configuration, keys ...string) byte {
	var mask byte
	bit := byte(0x80)
	for _, key := range keys {
		if cfg.GetBool(key) {
			mask |= bit
		}
		bit >>= 1
	}
	return mask
}

// binaryChoice возвращает 0 если значение совпадает с zero, иначе 1
func binaryChoice(value, zero string) byte {
	if value == zero {
		return 0
	}
	return 1
}

// choice: первый вариант 0, второй 1, все остальное 2
func choice(value, first, second string) byte {
	switch value {
	case first:
		return 0
	case second:
		return 1
	default:
		return 2
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// digits извлекает номер из строки вида "UART2" -> 2
func digits(s string) byte {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0
	}
	return byte(n)
}

// lastDigit берет последнюю цифру имени пина: "PA9" -> 9
func lastDigit(pin string) byte {
	if pin == "" {
		return 0
	}
	n, err := strconv.Atoi(pin[len(pin)-1:])
	if err != nil {
		return 0
	}
	return byte(n)
}

func optionalPin(pin string) byte {
	if pin == "" {
		return noPin
	}
	return lastDigit(pin)
}
