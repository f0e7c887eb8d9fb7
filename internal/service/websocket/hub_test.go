package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
)

func startHub(t *testing.T) (*HubService, string) {
	t.Helper()
	return startHubWait(t, defaultWriteWait)
}

func startHubWait(t *testing.T, writeWait time.Duration) (*HubService, string) {
	t.Helper()
	hub := NewHubService(logger.NewNop())
	hub.writeWait = writeWait
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesViewers(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.True(t, hub.Broadcast([]byte("hello")))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(msg))
	}
}

func TestHub_PublishSkipsFrameEvents(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(events.Event{Kind: events.DecodedCount, Value: 3})
	hub.Publish(events.Event{Kind: events.TriggerFired, Sequence: 2})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg dto.ViewerMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, dto.MessageEvent, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, events.TriggerFired, msg.Event.Kind)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastDoesNotBlock(t *testing.T) {
	hub := NewHubService(logger.NewNop())

	queued := 0
	for i := 0; i < broadcastQueue+5; i++ {
		if hub.Broadcast([]byte("frame")) {
			queued++
		}
	}
	assert.Equal(t, broadcastQueue, queued)
}

func TestHub_StalledViewerDoesNotBlockCallers(t *testing.T) {
	hub, url := startHubWait(t, 200*time.Millisecond)
	dial(t, url) // never reads
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	payload := make([]byte, 1<<20)
	var slowest time.Duration
	dropped := func() bool {
		start := time.Now()
		hub.Broadcast(payload)
		hub.Publish(events.Event{Kind: events.SequenceStep, Step: "grip"})
		n := hub.GetClientCount()
		slowest = max(slowest, time.Since(start))
		return n == 0
	}

	assert.Eventually(t, dropped, 15*time.Second, 10*time.Millisecond, "stalled viewer should time out and be dropped")
	assert.Less(t, slowest, 100*time.Millisecond, "callers must not wait on a viewer write")
}
