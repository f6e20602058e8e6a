package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Event types pushed to connected dashboards.
const (
	EventStockUpdate = "stock_update"
	EventOrderUpdate = "order_update"
	EventUserStatus  = "user_status_update"
	EventAlert       = "alert"
)

type EventUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Event struct {
	Type    string     `json:"type"`
	Action  string     `json:"action,omitempty"`
	Data    any        `json:"data,omitempty"`
	User    *EventUser `json:"user,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Publisher is what services depend on to announce changes.
type Publisher interface {
	Publish(event Event)
}

// broadcastBuffer is how many encoded events may wait for Run.
const broadcastBuffer = 256

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("New WS client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish encodes the event and queues it for Run. It never blocks: when the
// queue is full the event is dropped.
func (h *Hub) Publish(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: failed to encode %s event: %v", event.Type, err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		log.Printf("ws: broadcast queue full, dropping %s event", event.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}
