// Package hub membagi satu langganan broadcast ke banyak listener lokal:
// satu socket per tab, banyak view yang berkepentingan.
package hub

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-sync/protocol"
	"github.com/yeremiapane/restaurant-sync/transport"
)

type Listener func(env protocol.Envelope)

// Transport adalah bagian dari *transport.Session yang dibutuhkan hub.
type Transport interface {
	Subscribe(topic string, fn transport.Handler) func()
	OnConnect(fn func()) func()
}

type entry struct {
	id string
	fn Listener
}

// Hub memegang satu langganan upstream ke topic broadcast dan meneruskan
// setiap pesan ke semua listener sesuai urutan registrasi. Pada setiap
// transisi connected, hub mensintesis REFRESH lokal supaya view yang sempat
// tertinggal memuat ulang datanya.
type Hub struct {
	mu        sync.Mutex
	listeners []entry

	unsubscribe func()
	offConnect  func()
}

func New(session Transport) *Hub {
	h := &Hub{}
	h.unsubscribe = session.Subscribe(protocol.TopicBroadcast, h.dispatch)
	h.offConnect = session.OnConnect(func() {
		// REFRESH sintetis: mekanisme perbaikan setelah gap koneksi.
		h.dispatch(protocol.Envelope{EventType: protocol.EventRefresh})
	})
	return h
}

// Subscribe mendaftarkan listener dan mengembalikan fungsi unsubscribe.
func (h *Hub) Subscribe(fn Listener) func() {
	e := entry{id: uuid.NewString(), fn: fn}
	h.mu.Lock()
	h.listeners = append(h.listeners, e)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, candidate := range h.listeners {
			if candidate.id == e.id {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

func (h *Hub) dispatch(env protocol.Envelope) {
	h.mu.Lock()
	fns := make([]Listener, 0, len(h.listeners))
	for _, e := range h.listeners {
		fns = append(fns, e.fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		safeCall(fn, env)
	}
}

// safeCall mengisolasi panic per listener: satu listener rusak tidak boleh
// menghalangi delivery ke listener berikutnya.
func safeCall(fn Listener, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("hub: listener panic on %s: %v", env.EventType, r)
		}
	}()
	fn(env)
}

// Close melepas langganan upstream dan hook connect secara sinkron.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	if h.offConnect != nil {
		h.offConnect()
	}
	h.mu.Lock()
	h.listeners = nil
	h.mu.Unlock()
}
