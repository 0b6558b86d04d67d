// Package cart memegang pandangan lokal keranjang satu sesi meja. Server
// adalah satu-satunya sumber kebenaran: input user tidak pernah memutasi
// keranjang lokal, hanya diterbitkan sebagai intent lalu menunggu rebroadcast.
package cart

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/protocol"
)

// Publisher adalah sisi keluar dari transport. *transport.Session memenuhinya.
type Publisher interface {
	Publish(destination string, env protocol.Envelope) error
}

type Reconciler struct {
	// OnToast menerima pesan ERROR/WARNING/SUCCESS dari server; level sudah
	// berupa huruf kecil ("error", "warning", "success").
	OnToast func(level, text string)
	// OnReload dipanggil saat server meminta REFRESH: buang semua state
	// lokal dan muat ulang lewat REST.
	OnReload func()
	// OnChange dipanggil setiap keranjang atau fakta sesi berubah, untuk
	// render ulang.
	OnChange func()

	mu         sync.Mutex
	pub        Publisher
	sessionID  uint
	items      map[uint]int
	catalog    []models.Product
	maxCourses int
	lunchStart *int
	lunchEnd   *int
	cooldown   *Cooldown
	now        func() time.Time
}

func NewReconciler(pub Publisher, sessionID uint) *Reconciler {
	return &Reconciler{
		pub:       pub,
		sessionID: sessionID,
		items:     make(map[uint]int),
		cooldown:  NewCooldown(),
		now:       time.Now,
	}
}

// HandleMessage menangani union tertutup pesan server->client untuk topic
// meja. Event yang tidak dikenal hanya dicatat, tidak pernah fatal.
func (r *Reconciler) HandleMessage(env protocol.Envelope) {
	switch env.EventType {
	case protocol.EventRefresh:
		if r.OnReload != nil {
			r.OnReload()
		}
	case protocol.EventSnapshot:
		p, err := protocol.DecodeSnapshot(env)
		if err != nil {
			log.Printf("cart: %v", err)
			return
		}
		r.ApplySnapshot(p)
	case protocol.EventDelta:
		p, err := protocol.DecodeDelta(env)
		if err != nil {
			log.Printf("cart: %v", err)
			return
		}
		r.ApplyDelta(p)
	case protocol.EventOrderSent:
		// Sinyal housekeeping; sengaja tanpa toast.
	case protocol.EventError, protocol.EventWarning, protocol.EventSuccess:
		if r.OnToast != nil {
			r.OnToast(toastLevel(env.EventType), env.Payload)
		}
	default:
		log.Printf("cart: unknown event %q ignored", env.EventType)
	}
}

func toastLevel(eventType string) string {
	switch eventType {
	case protocol.EventError:
		return "error"
	case protocol.EventWarning:
		return "warning"
	default:
		return "success"
	}
}

// ApplySnapshot mengganti seluruh map keranjang dengan isi snapshot dan
// meng-anchor ulang cooldown + max portate dari fakta sesi.
func (r *Reconciler) ApplySnapshot(p protocol.SnapshotPayload) {
	r.mu.Lock()
	items := make(map[uint]int, len(p.Cart))
	for id, qty := range p.Cart {
		if qty > 0 {
			items[id] = qty
		}
	}
	r.items = items

	if p.MaxCoursesPerPerson > 0 && p.ParticipantCount > 0 {
		r.maxCourses = p.MaxCoursesPerPerson * p.ParticipantCount
	}
	if p.LunchStartHour != nil && p.LunchEndHour != nil {
		r.lunchStart = p.LunchStartHour
		r.lunchEnd = p.LunchEndHour
	}
	r.mu.Unlock()

	r.cooldown.Resync(p.LastOrderAt, p.CooldownMinutes)
	r.changed()
}

// ApplyDelta adalah pure merge satu key: hasil <= 0 menghapus key, selain itu
// set nilai absolut dari server. Diterapkan persis sesuai urutan kedatangan.
func (r *Reconciler) ApplyDelta(p protocol.DeltaPayload) {
	r.mu.Lock()
	if p.Quantity <= 0 {
		delete(r.items, p.ProductID)
	} else {
		r.items[p.ProductID] = p.Quantity
	}
	r.mu.Unlock()
	r.changed()
}

// AddItem menerbitkan intent tambah. Keranjang lokal TIDAK diubah di sini;
// semua viewer sesi yang sama menunggu rebroadcast yang identik.
func (r *Reconciler) AddItem(productID uint, qty int) error {
	return r.publishIntent(protocol.EventAddItem, productID, qty)
}

// RemoveItem menerbitkan intent kurang. Magnitude selalu positif; arah dibawa
// oleh event type.
func (r *Reconciler) RemoveItem(productID uint, qty int) error {
	return r.publishIntent(protocol.EventRemoveItem, productID, qty)
}

func (r *Reconciler) publishIntent(eventType string, productID uint, qty int) error {
	if qty < 0 {
		qty = -qty
	}
	if qty == 0 {
		return nil
	}
	env, err := protocol.NewEnvelope(eventType, protocol.IntentPayload{
		ProductID: productID,
		Quantity:  qty,
	}, r.sessionID)
	if err != nil {
		return err
	}
	if err := r.pub.Publish(protocol.DestTable, env); err != nil {
		return fmt.Errorf("cart intent rejected: %w", err)
	}
	return nil
}

// SendOrder men-submit keranjang saat ini. Server yang mengosongkan keranjang
// dan memulai cooldown; client hanya menunggu snapshot berikutnya.
func (r *Reconciler) SendOrder() error {
	env, err := protocol.NewEnvelope(protocol.EventOrderSent, nil, r.sessionID)
	if err != nil {
		return err
	}
	if err := r.pub.Publish(protocol.DestTable, env); err != nil {
		return fmt.Errorf("order rejected: %w", err)
	}
	return nil
}

// RequestStatus mengirim GET_STATUS; dipanggil sekali setiap habis
// (re)subscribe supaya gap selama terputus selalu diperbaiki via SNAPSHOT.
func (r *Reconciler) RequestStatus() error {
	env, err := protocol.NewEnvelope(protocol.EventGetStatus, nil, r.sessionID)
	if err != nil {
		return err
	}
	return r.pub.Publish(protocol.DestTable, env)
}

// SetCatalog menyimpan katalog produk untuk perhitungan total portate.
func (r *Reconciler) SetCatalog(products []models.Product) {
	r.mu.Lock()
	r.catalog = products
	r.mu.Unlock()
	r.changed()
}

// Items mengembalikan salinan keranjang hasil rekonsiliasi.
func (r *Reconciler) Items() map[uint]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[uint]int, len(r.items))
	for id, qty := range r.items {
		copied[id] = qty
	}
	return copied
}

func (r *Reconciler) Quantity(productID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[productID]
}

func (r *Reconciler) HasItems() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, qty := range r.items {
		if qty > 0 {
			return true
		}
	}
	return false
}

// TotalCourses dihitung ulang dari katalog + keranjang setiap kali dipanggil,
// tidak di-cache: hanya produk kategori yang dihitung yang masuk total AYCE.
func (r *Reconciler) TotalCourses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, p := range r.catalog {
		if p.Category.Counted() {
			total += r.items[p.ID]
		}
	}
	return total
}

// MaxCourses -> 0 jika belum diketahui dari snapshot.
func (r *Reconciler) MaxCourses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxCourses
}

// CooldownRemaining -> sisa detik cooldown; false saat tidak ada cooldown.
func (r *Reconciler) CooldownRemaining() (int, bool) {
	return r.cooldown.Remaining()
}

// IsLunchNow -> apakah jam lokal sekarang dalam jendela pranzo dari server.
func (r *Reconciler) IsLunchNow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lunchStart == nil || r.lunchEnd == nil {
		return false
	}
	hour := r.now().Hour()
	return hour >= *r.lunchStart && hour < *r.lunchEnd
}

// Close menghentikan timer cooldown saat view di-teardown.
func (r *Reconciler) Close() {
	r.cooldown.Stop()
}

func (r *Reconciler) changed() {
	if r.OnChange != nil {
		r.OnChange()
	}
}
