// Package broker adalah sisi server dari push channel: registry koneksi
// websocket dengan langganan per topic, satu read loop per koneksi.
package broker

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-sync/protocol"
)

// SendHandler menerima frame SEND dari client (intent keranjang, GET_STATUS).
type SendHandler interface {
	HandleSend(destination string, env protocol.Envelope)
}

type client struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex // satu writer per koneksi
	topics map[string]bool
}

func (c *client) write(frame protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	handler SendHandler
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// SetHandler memasang penangan frame SEND (di-set setelah TableHandler ada).
func (h *Hub) SetHandler(handler SendHandler) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
}

// Broadcast mengirim envelope ke semua koneksi yang berlangganan topic.
// Error per client dicatat dan dilewati, tidak menghentikan siaran.
func (h *Hub) Broadcast(topic string, env protocol.Envelope) {
	frame := protocol.Frame{
		Command:     protocol.CmdMessage,
		Destination: topic,
		Body:        env,
	}

	h.mu.Lock()
	var targets []*client
	for c := range h.clients {
		if c.topics[topic] {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(frame); err != nil {
			log.Printf("broker: send %s to client %s failed: %v", env.EventType, c.id, err)
		}
	}
}

// HandleConn mengambil alih satu koneksi websocket yang sudah di-upgrade dan
// memblokir sampai koneksi putus.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		topics: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	log.Printf("broker: client %s connected", c.id)

	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}

		switch frame.Command {
		case protocol.CmdSubscribe:
			h.mu.Lock()
			c.topics[frame.Destination] = true
			h.mu.Unlock()
		case protocol.CmdUnsubscribe:
			h.mu.Lock()
			delete(c.topics, frame.Destination)
			h.mu.Unlock()
		case protocol.CmdSend:
			h.mu.Lock()
			handler := h.handler
			h.mu.Unlock()
			if handler != nil {
				handler.HandleSend(frame.Destination, frame.Body)
			}
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	conn.Close()
	log.Printf("broker: client %s disconnected", c.id)
}
