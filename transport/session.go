package transport

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-sync/protocol"
)

// ErrNotConnected -> publish ditolak karena socket sedang terputus. Intent
// tidak di-queue: correctness over availability.
var ErrNotConnected = errors.New("transport: not connected")

const DefaultReconnectDelay = 5 * time.Second

// Handler menerima envelope yang sudah di-decode dari satu topic.
type Handler func(env protocol.Envelope)

type subscription struct {
	id    string
	topic string
	fn    Handler
}

// Session memegang satu koneksi websocket per proses (per tab). Tidak
// auto-connect saat dibuat; caller memanggil Connect() sekali sesi logis
// sudah ada. Reconnect berjalan tanpa batas dengan delay tetap.
type Session struct {
	URL            string
	ReconnectDelay time.Duration

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	connecting   bool
	closed       bool
	started      bool
	subs         []*subscription
	onConnect    []listener
	onDisconnect []listener
	retryTimer   *time.Timer
}

type listener struct {
	id string
	fn func()
}

func NewSession(url string) *Session {
	// Izinkan caller memberi base URL http(s) (mis. dari httptest).
	if strings.HasPrefix(url, "http") {
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	return &Session{
		URL:            url,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Connect memulai lifecycle koneksi. Gagal dial tidak mengembalikan error ke
// caller: retry dijadwalkan dan status cukup dibaca lewat Connected().
func (s *Session) Connect() {
	s.mu.Lock()
	if s.closed || s.connected || s.connecting {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.connecting = true
	url := s.URL
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("transport: dial %s failed: %v", url, err)
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
		s.scheduleReconnect()
		return
	}

	s.mu.Lock()
	s.connecting = false
	if s.closed {
		// Close() menang: jangan biarkan handle basi hidup.
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.connected = true
	topics := s.topicsLocked()
	connectFns := snapshotListeners(s.onConnect)
	s.mu.Unlock()

	// Re-subscribe semua topic yang sudah terdaftar sebelum memberi tahu
	// listener connect, supaya GET_STATUS yang mereka kirim tidak balapan
	// dengan SUBSCRIBE.
	for _, topic := range topics {
		s.writeFrame(conn, protocol.Frame{Command: protocol.CmdSubscribe, Destination: topic})
	}

	log.Printf("transport: connected to %s", url)
	for _, fn := range connectFns {
		fn()
	}

	go s.readLoop(conn)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		if frame.Command != protocol.CmdMessage {
			continue
		}

		s.mu.Lock()
		if s.closed || s.conn != conn {
			// Sesi sudah di-teardown atau sudah reconnect dengan socket
			// baru: pesan dari handle lama tidak boleh sampai ke handler.
			s.mu.Unlock()
			return
		}
		handlers := s.handlersLocked(frame.Destination)
		s.mu.Unlock()

		// Delivery sinkron, urut sesuai registrasi.
		for _, fn := range handlers {
			fn(frame.Body)
		}
	}
}

func (s *Session) handleDisconnect(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	if s.closed || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.connected = false
	disconnectFns := snapshotListeners(s.onDisconnect)
	s.mu.Unlock()

	conn.Close()
	log.Printf("transport: connection lost: %v", cause)
	for _, fn := range disconnectFns {
		fn()
	}
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.started {
		return
	}
	delay := s.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	s.retryTimer = time.AfterFunc(delay, s.Connect)
}

// Publish mengirim satu envelope ke destination. Tanpa buffering offline:
// kalau sedang terputus, langsung ErrNotConnected.
func (s *Session) Publish(destination string, env protocol.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.WriteJSON(protocol.Frame{
		Command:     protocol.CmdSend,
		Destination: destination,
		Body:        env,
	})
}

// Subscribe mendaftarkan handler untuk satu topic dan mengembalikan fungsi
// unsubscribe. Kalau sudah terhubung, frame SUBSCRIBE dikirim segera.
func (s *Session) Subscribe(topic string, fn Handler) func() {
	sub := &subscription{id: uuid.NewString(), topic: topic, fn: fn}

	s.mu.Lock()
	first := !s.hasTopicLocked(topic)
	s.subs = append(s.subs, sub)
	conn := s.conn
	connected := s.connected
	s.mu.Unlock()

	if connected && first {
		s.writeFrame(conn, protocol.Frame{Command: protocol.CmdSubscribe, Destination: topic})
	}

	return func() {
		s.mu.Lock()
		for i, candidate := range s.subs {
			if candidate.id == sub.id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		last := !s.hasTopicLocked(topic)
		conn := s.conn
		connected := s.connected
		s.mu.Unlock()

		if connected && last {
			s.writeFrame(conn, protocol.Frame{Command: protocol.CmdUnsubscribe, Destination: topic})
		}
	}
}

// OnConnect mendaftarkan callback untuk setiap transisi connected=true,
// termasuk reconnect. Mengembalikan fungsi untuk melepas callback.
func (s *Session) OnConnect(fn func()) func() {
	return s.addListener(&s.onConnect, fn)
}

// OnDisconnect mendaftarkan callback untuk transisi connected=false.
func (s *Session) OnDisconnect(fn func()) func() {
	return s.addListener(&s.onDisconnect, fn)
}

func (s *Session) addListener(list *[]listener, fn func()) func() {
	l := listener{id: uuid.NewString(), fn: fn}
	s.mu.Lock()
	*list = append(*list, l)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range *list {
			if candidate.id == l.id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close mematikan sesi secara sinkron: retry berhenti, socket dilepas, dan
// tidak ada pesan lagi yang dikirim ke handler setelah ini.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.connected = false
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (s *Session) writeFrame(conn *websocket.Conn, frame protocol.Frame) {
	if conn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return
	}
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("transport: write %s %s failed: %v", frame.Command, frame.Destination, err)
	}
}

func (s *Session) hasTopicLocked(topic string) bool {
	for _, sub := range s.subs {
		if sub.topic == topic {
			return true
		}
	}
	return false
}

func (s *Session) topicsLocked() []string {
	seen := make(map[string]bool)
	var topics []string
	for _, sub := range s.subs {
		if !seen[sub.topic] {
			seen[sub.topic] = true
			topics = append(topics, sub.topic)
		}
	}
	return topics
}

func (s *Session) handlersLocked(topic string) []Handler {
	var handlers []Handler
	for _, sub := range s.subs {
		if sub.topic == topic {
			handlers = append(handlers, sub.fn)
		}
	}
	return handlers
}

func snapshotListeners(list []listener) []func() {
	fns := make([]func(), 0, len(list))
	for _, l := range list {
		fns = append(fns, l.fn)
	}
	return fns
}
