package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"microcloudlab-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	first := dial(t, server)
	second := dial(t, server)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(models.PeripheralEvent{
		PeripheralType: "UART",
		Instance:       "UART1",
		McuID:          "esp32-1",
		Configuration:  models.Configuration{},
		RawData:        models.ByteSeq{1, 2},
		HexData:        "01 02",
		Timestamp:      "unknown",
		DataLength:     2,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var event models.PeripheralEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "UART", event.PeripheralType)
		assert.Equal(t, models.ByteSeq{1, 2}, event.RawData)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.ClientCount())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	assert.NotPanics(t, func() {
		hub.Broadcast(models.PeripheralEvent{PeripheralType: "SPI"})
	})
}

func TestHub_RejectsPlainHTTP(t *testing.T) {
	hub := NewHub(zap.NewNop())
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest("GET", "/peripheral/stream/", nil))

	assert.Equal(t, 400, rec.Code)
	assert.Zero(t, hub.ClientCount())
}
