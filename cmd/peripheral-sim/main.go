package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"microcloudlab-backend/internal/frame"
	applogger "microcloudlab-backend/internal/logger"
	"microcloudlab-backend/internal/models"

	"go.uber.org/zap"
)

// options параметры запуска симулятора
type options struct {
	addr     string
	count    int
	interval time.Duration
	mcu      string
}

type sample struct {
	peripheralType string
	instance       string
	config         models.Configuration
}

// samples типовые конфигурации, которые симулятор отправляет по кругу
func samples() []sample {
	return []sample{
		{
			peripheralType: "UART",
			instance:       "UART1",
			config: models.Configuration{
				"instance":        models.StringValue("UART1"),
				"baudRate":        models.IntValue(115200),
				"dataBits":        models.IntValue(8),
				"parity":          models.StringValue("none"),
				"stopBits":        models.IntValue(1),
				"flowControl":     models.StringValue("none"),
				"dmaEnable":       models.BoolValue(false),
				"interruptEnable": models.BoolValue(true),
				"oversampling":    models.IntValue(16),
				"txBufferSize":    models.IntValue(256),
				"rxBufferSize":    models.IntValue(256),
				"txPin":           models.StringValue("PA9"),
				"rxPin":           models.StringValue("PA10"),
			},
		},
		{
			peripheralType: "SPI",
			instance:       "SPI1",
			config: models.Configuration{
				"instance":          models.StringValue("SPI1"),
				"mode":              models.StringValue("master"),
				"dataSize":          models.IntValue(8),
				"clockPolarity":     models.StringValue("low"),
				"clockPhase":        models.StringValue("first"),
				"baudRatePrescaler": models.IntValue(16),
				"direction":         models.StringValue("2lines"),
				"mosiPin":           models.StringValue("PA7"),
				"misoPin":           models.StringValue("PA6"),
				"sckPin":            models.StringValue("PA5"),
				"nssPin":            models.StringValue("PA4"),
			},
		},
		{
			peripheralType: "I2C",
			instance:       "I2C1",
			config: models.Configuration{
				"instance":   models.StringValue("I2C1"),
				"address":    models.IntValue(0x3C),
				"clockSpeed": models.IntValue(400000),
				"dutyCycle":  models.StringValue("2"),
				"sdaPin":     models.StringValue("PB7"),
				"sclPin":     models.StringValue("PB6"),
			},
		},
		{
			peripheralType: "PWM",
			instance:       "TIM2",
			config: models.Configuration{
				"instance":  models.StringValue("TIM2"),
				"frequency": models.IntValue(1000),
				"dutyCycle": models.FloatValue(50.5),
				"outputPin": models.StringValue("PA0"),
			},
		},
		{
			peripheralType: "GPIO",
			instance:       "PC13",
			config: models.Configuration{
				"pin":       models.StringValue("13"),
				"direction": models.StringValue("output"),
				"pullUp":    models.BoolValue(false),
				"pullDown":  models.BoolValue(false),
			},
		},
	}
}

// buildRequest упаковывает конфигурацию в кадр и собирает тело запроса
func buildRequest(s sample, mcu string, now time.Time) (map[string]interface{}, error) {
	raw, err := frame.Pack(s.peripheralType, s.config)
	if err != nil {
		return nil, err
	}

	data := make([]int, len(raw))
	for i, b := range raw {
		data[i] = int(b)
	}

	return map[string]interface{}{
		"peripheral_type": s.peripheralType,
		"instance":        s.instance,
		"mcu_id":          mcu,
		"configuration":   s.config,
		"data":            data,
		"timestamp":       now.UTC().Format(time.RFC3339Nano),
	}, nil
}

func post(ctx context.Context, client *http.Client, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func historyCount(ctx context.Context, client *http.Client, base string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/peripheral/history/", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var history models.PeripheralListResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return 0, fmt.Errorf("failed to decode history: %w", err)
	}
	return history.Count, nil
}

// run отправляет opts.count событий и возвращает итоговый размер истории
func run(ctx context.Context, opts options, client *http.Client, logger *zap.Logger) (int, error) {
	base := strings.TrimRight(opts.addr, "/")
	all := samples()

	for i := 0; i < opts.count; i++ {
		if i > 0 && opts.interval > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(opts.interval):
			}
		}

		s := all[i%len(all)]
		body, err := buildRequest(s, opts.mcu, time.Now())
		if err != nil {
			return 0, err
		}

		var resp models.PeripheralSendResponse
		if err := post(ctx, client, base+"/peripheral/send/", body, &resp); err != nil {
			return 0, fmt.Errorf("send %s: %w", s.peripheralType, err)
		}

		logger.Info("Configuration sent",
			zap.String("peripheral_type", resp.PeripheralType),
			zap.String("instance", resp.Instance),
			zap.Int("data_length", resp.DataLength),
			zap.String("message", resp.Message))
	}

	return historyCount(ctx, client, base)
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", "http://localhost:8080", "server base URL")
	flag.IntVar(&opts.count, "count", 5, "number of events to send")
	flag.DurationVar(&opts.interval, "interval", time.Second, "delay between events")
	flag.StringVar(&opts.mcu, "mcu", "esp32-sim", "mcu_id reported with every event")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := applogger.NewLogger(*logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}

	count, err := run(ctx, opts, client, logger)
	if err != nil {
		logger.Error("Simulation failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("history now holds %d events\n", count)
}
