package broker

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/protocol"
	"gorm.io/gorm"
)

// TableHandler memegang keranjang otoritatif per sesi (in-memory) plus fakta
// sesi dari database. Semua mutasi keranjang lewat sini dan hasilnya selalu
// disiarkan balik ke topic meja, termasuk ke pengirim intent.
type TableHandler struct {
	// Jendela pranzo opsional; ikut dikirim dalam snapshot kalau di-set.
	LunchStartHour *int
	LunchEndHour   *int

	db  *gorm.DB
	hub *Hub
	mu  sync.Mutex
	// carts: sessionID -> productID -> quantity
	carts map[uint]map[uint]int
	now   func() time.Time
}

func NewTableHandler(db *gorm.DB, hub *Hub) *TableHandler {
	return &TableHandler{
		db:    db,
		hub:   hub,
		carts: make(map[uint]map[uint]int),
		now:   time.Now,
	}
}

// HandleSend menangani union pesan client->server pada destination meja.
func (t *TableHandler) HandleSend(destination string, env protocol.Envelope) {
	if destination != protocol.DestTable {
		return
	}

	switch env.EventType {
	case protocol.EventGetStatus:
		t.sendSnapshot(env.SessionID)
	case protocol.EventAddItem:
		t.applyIntent(env, +1)
	case protocol.EventRemoveItem:
		t.applyIntent(env, -1)
	case protocol.EventOrderSent:
		t.submitOrder(env.SessionID)
	default:
		log.Printf("broker: unknown client event %q ignored", env.EventType)
	}
}

func (t *TableHandler) session(sessionID uint) (*models.TableSession, bool) {
	var session models.TableSession
	err := t.db.Preload("Table").First(&session, sessionID).Error
	if err != nil || session.Status != models.SessionActive {
		return nil, false
	}
	return &session, true
}

// sendSnapshot menyiarkan full state keranjang + fakta sesi ke topic meja.
func (t *TableHandler) sendSnapshot(sessionID uint) {
	session, ok := t.session(sessionID)
	if !ok {
		log.Printf("broker: GET_STATUS for unknown/inactive session %d", sessionID)
		return
	}

	t.mu.Lock()
	cart := make(map[uint]int, len(t.carts[sessionID]))
	for id, qty := range t.carts[sessionID] {
		cart[id] = qty
	}
	t.mu.Unlock()

	payload := protocol.SnapshotPayload{
		Cart:                cart,
		LastOrderAt:         session.LastOrderAt,
		CooldownMinutes:     session.CooldownMinutes,
		MaxCoursesPerPerson: session.MaxCoursesPerPerson,
		ParticipantCount:    session.ParticipantCount,
		LunchStartHour:      t.LunchStartHour,
		LunchEndHour:        t.LunchEndHour,
	}
	env, err := protocol.NewEnvelope(protocol.EventSnapshot, payload, sessionID)
	if err != nil {
		log.Printf("broker: snapshot for session %d: %v", sessionID, err)
		return
	}
	t.hub.Broadcast(protocol.TopicTable(session.TableID), env)
}

// applyIntent memutasi keranjang server dan menyiarkan DELTA dengan kuantitas
// hasil akhir. Pengirim tidak diistimewakan: dia menerima delta yang sama.
func (t *TableHandler) applyIntent(env protocol.Envelope, sign int) {
	session, ok := t.session(env.SessionID)
	if !ok {
		return
	}
	intent, err := protocol.DecodeIntent(env)
	if err != nil {
		log.Printf("broker: %v", err)
		return
	}
	if intent.Quantity <= 0 {
		return
	}

	t.mu.Lock()
	cart := t.carts[env.SessionID]
	if cart == nil {
		cart = make(map[uint]int)
		t.carts[env.SessionID] = cart
	}
	next := cart[intent.ProductID] + sign*intent.Quantity
	if next <= 0 {
		next = 0
		delete(cart, intent.ProductID)
	} else {
		cart[intent.ProductID] = next
	}
	t.mu.Unlock()

	delta, err := protocol.NewEnvelope(protocol.EventDelta, protocol.DeltaPayload{
		ProductID: intent.ProductID,
		Quantity:  next,
	}, env.SessionID)
	if err != nil {
		log.Printf("broker: %v", err)
		return
	}
	t.hub.Broadcast(protocol.TopicTable(session.TableID), delta)
}

// submitOrder menegakkan cooldown, mempersistkan baris pesanan, mengosongkan
// keranjang, lalu menyiarkan SNAPSHOT baru + sinyal ORDER_SENT.
func (t *TableHandler) submitOrder(sessionID uint) {
	session, ok := t.session(sessionID)
	if !ok {
		return
	}
	topic := protocol.TopicTable(session.TableID)
	now := t.now()

	if session.LastOrderAt != nil && session.CooldownMinutes > 0 {
		until := session.LastOrderAt.Add(time.Duration(session.CooldownMinutes) * time.Minute)
		if now.Before(until) {
			wait := int(until.Sub(now)/time.Second) + 1
			t.toast(topic, sessionID, protocol.EventError,
				fmt.Sprintf("Please wait %d seconds before the next order", wait))
			return
		}
	}

	t.mu.Lock()
	cart := t.carts[sessionID]
	items := make(map[uint]int, len(cart))
	for id, qty := range cart {
		items[id] = qty
	}
	t.mu.Unlock()

	if len(items) == 0 {
		t.toast(topic, sessionID, protocol.EventWarning, "The cart is empty")
		return
	}

	// Semua baris + stamp anchor dalam satu transaksi: submit yang gagal di
	// tengah tidak boleh meninggalkan baris parsial di tampilan dapur.
	participants := session.ParticipantCount
	tx := t.db.Begin()
	for productID, qty := range items {
		order := models.Order{
			SessionID:        sessionID,
			TableID:          session.TableID,
			ProductID:        productID,
			Quantity:         qty,
			SubmittedAt:      now,
			ParticipantCount: &participants,
		}
		if err := tx.Create(&order).Error; err != nil {
			tx.Rollback()
			log.Printf("broker: persist order line: %v", err)
			t.toast(topic, sessionID, protocol.EventError, "Order could not be saved, please retry")
			return
		}
	}
	if err := tx.Model(&models.TableSession{}).
		Where("id = ?", sessionID).
		Update("last_order_at", now).Error; err != nil {
		tx.Rollback()
		log.Printf("broker: stamp last_order_at: %v", err)
		t.toast(topic, sessionID, protocol.EventError, "Order could not be saved, please retry")
		return
	}
	if err := tx.Commit().Error; err != nil {
		log.Printf("broker: commit order: %v", err)
		t.toast(topic, sessionID, protocol.EventError, "Order could not be saved, please retry")
		return
	}
	session.LastOrderAt = &now

	t.mu.Lock()
	delete(t.carts, sessionID)
	t.mu.Unlock()

	// Snapshot baru (keranjang kosong + anchor cooldown) untuk semua viewer
	// meja, sinyal housekeeping untuk origin, push untuk dapur, REFRESH
	// untuk viewer CRUD generik.
	t.sendSnapshot(sessionID)
	if env, err := protocol.NewEnvelope(protocol.EventOrderSent, nil, sessionID); err == nil {
		t.hub.Broadcast(topic, env)
		t.hub.Broadcast(protocol.TopicKitchen, env)
		t.hub.Broadcast(protocol.TopicBroadcast, protocol.Envelope{EventType: protocol.EventRefresh})
	}
	log.Printf("broker: session %d submitted %d product lines", sessionID, len(items))
}

func (t *TableHandler) toast(topic string, sessionID uint, level, text string) {
	t.hub.Broadcast(topic, protocol.Envelope{
		EventType: level,
		Payload:   text,
		SessionID: sessionID,
	})
}

// Cart mengembalikan salinan keranjang server satu sesi (dipakai tes).
func (t *TableHandler) Cart(sessionID uint) map[uint]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := make(map[uint]int, len(t.carts[sessionID]))
	for id, qty := range t.carts[sessionID] {
		copied[id] = qty
	}
	return copied
}
