package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/events"
)

// broadcastQueue is how many messages may wait for Run before new ones are dropped.
const broadcastQueue = 8

// defaultWriteWait bounds a write to one viewer; a viewer that misses it is dropped.
const defaultWriteWait = 2 * time.Second

// HubService fans frames and events out to connected viewers. Broadcasting never
// blocks the caller; slow viewers miss frames.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	count      atomic.Int32
	writeWait  time.Duration
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		writeWait:  defaultWriteWait,
		logger:     logger,
	}
}

// Run owns the client set. Writes happen outside the lock with a deadline, so a
// viewer that stops reading delays only the next broadcast and is then dropped.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.count.Store(0)
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.count.Store(int32(total))
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", total)

		case client := <-h.unregister:
			h.drop(client)

		case message := <-h.broadcast:
			for _, client := range h.snapshot() {
				client.SetWriteDeadline(time.Now().Add(h.writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.drop(client)
				}
			}
		}
	}
}

func (h *HubService) snapshot() []*websocket.Conn {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		out = append(out, client)
	}
	return out
}

func (h *HubService) drop(client *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	total := len(h.clients)
	h.count.Store(int32(total))
	h.mutex.Unlock()

	if ok {
		client.Close()
		h.logger.Info("Client disconnected. Total: %d", total)
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every viewer and reports whether it was queued.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// BroadcastJSON marshals v and queues it.
func (h *HubService) BroadcastJSON(v any) error {
	message, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(message)
	return nil
}

// Publish forwards non-frame events to viewers.
func (h *HubService) Publish(e events.Event) {
	if e.Kind.PerFrame() || h.GetClientCount() == 0 {
		return
	}
	if err := h.BroadcastJSON(dto.ViewerMessage{Type: dto.MessageEvent, Event: &e}); err != nil {
		h.logger.Error("Error encoding event %s: %v", e.Kind, err)
	}
}

// GetClientCount never blocks; the detection loop calls it on every frame.
func (h *HubService) GetClientCount() int {
	return int(h.count.Load())
}
