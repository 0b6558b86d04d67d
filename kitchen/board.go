// Package kitchen mengubah aliran datar baris pesanan menjadi kartu grup
// untuk tampilan dapur/admin, lengkap dengan urutan tampilan yang diatur
// user, highlight kedatangan baru, dan workflow consegnato yang optimistis.
package kitchen

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/notify"
	"github.com/yeremiapane/restaurant-sync/protocol"
)

type ViewMode string

const (
	ModeProduct ViewMode = "product"
	ModeTable   ViewMode = "table"
)

const DefaultRemoveDelay = time.Second

// Backend adalah sisi REST yang dikonsumsi board. Filter only_assigned dan
// hide_delivered diterapkan server (query param), bukan difilter client,
// karena status assigned/delivered bisa tergantung konfigurasi server.
type Backend interface {
	KitchenOrders(onlyAssigned, hideDelivered bool) ([]models.Order, error)
	SetDelivered(orderID uint, delivered bool) error
}

// Group adalah satu kartu di layar.
type Group struct {
	Key           string
	Title         string
	Lines         []models.Order
	TotalQuantity int
	Highlighted   bool
}

// Board. Urutan grup (order) adalah view state milik user: refresh data
// tidak boleh menata ulang, hanya drag eksplisit atau perintah reset.
type Board struct {
	// OnChange dipanggil setiap state tampilan berubah.
	OnChange func()
	// RemoveDelay menunda penghapusan baris setelah dicentang, supaya
	// animasi checked sempat tampil. Default 1 detik.
	RemoveDelay time.Duration

	mu            sync.Mutex
	backend       Backend
	gate          *notify.Gate
	mode          ViewMode
	onlyAssigned  bool
	hideDelivered bool
	titleFilter   string
	lines         []models.Order
	known         map[uint]bool
	order         []string
	highlighted   map[string]bool
	armedKey      string
	dragKey       string
	closed        bool
}

func NewBoard(backend Backend, gate *notify.Gate) *Board {
	return &Board{
		RemoveDelay:   DefaultRemoveDelay,
		backend:       backend,
		gate:          gate,
		mode:          ModeProduct,
		hideDelivered: true,
		known:         make(map[uint]bool),
		highlighted:   make(map[string]bool),
	}
}

// HandleMessage menangani pesan topic dapur dan sinyal REFRESH dari hub
// broadcast. ORDER_SENT / DELIVERY_CHANGED berasal dari push, jadi refresh
// boleh menyalakan highlight dan bunyi; REFRESH adalah hard reload biasa.
func (b *Board) HandleMessage(env protocol.Envelope) {
	switch env.EventType {
	case protocol.EventOrderSent, protocol.EventDeliveryChanged:
		if err := b.Refresh(true); err != nil {
			log.Printf("kitchen: push refresh failed: %v", err)
		}
	case protocol.EventRefresh:
		if err := b.Refresh(false); err != nil {
			log.Printf("kitchen: reload failed: %v", err)
		}
	}
}

// Refresh memuat ulang daftar comanda dari server dengan filter saat ini.
// fromPush=true menandai refresh yang dipicu push: baris yang benar-benar
// baru menyalakan highlight grupnya dan mencoba bunyi notifikasi.
func (b *Board) Refresh(fromPush bool) error {
	b.mu.Lock()
	onlyAssigned, hideDelivered := b.onlyAssigned, b.hideDelivered
	b.mu.Unlock()

	data, err := b.backend.KitchenOrders(onlyAssigned, hideDelivered)
	if err != nil {
		return fmt.Errorf("load kitchen orders: %w", err)
	}

	b.mu.Lock()
	var fresh []models.Order
	for _, line := range data {
		if !b.known[line.ID] {
			fresh = append(fresh, line)
		}
	}

	if fromPush {
		for _, line := range fresh {
			b.highlighted[b.keyForLocked(line)] = true
		}
	}

	known := make(map[uint]bool, len(data))
	for _, line := range data {
		known[line.ID] = true
	}
	b.known = known
	b.lines = data
	b.mergeOrderLocked()
	b.mu.Unlock()

	if fromPush && len(fresh) > 0 && b.gate != nil {
		b.gate.Play()
	}
	b.changed()
	return nil
}

// mergeOrderLocked merawat invariant GroupOrder: setiap key hidup muncul
// tepat sekali, key lama mempertahankan urutan relatifnya, key baru
// ditempel di belakang.
func (b *Board) mergeOrderLocked() {
	live := b.liveKeysLocked()
	liveSet := make(map[string]bool, len(live))
	for _, key := range live {
		liveSet[key] = true
	}

	merged := make([]string, 0, len(live))
	for _, key := range b.order {
		if liveSet[key] {
			merged = append(merged, key)
		}
	}
	seen := make(map[string]bool, len(merged))
	for _, key := range merged {
		seen[key] = true
	}
	for _, key := range live {
		if !seen[key] {
			merged = append(merged, key)
		}
	}
	b.order = merged

	// Highlight untuk grup yang sudah mati ikut dibuang.
	for key := range b.highlighted {
		if !liveSet[key] {
			delete(b.highlighted, key)
		}
	}
}

// liveKeysLocked -> key grup sesuai urutan kemunculan pertama di data.
func (b *Board) liveKeysLocked() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, line := range b.lines {
		key := b.keyForLocked(line)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

func (b *Board) keyForLocked(line models.Order) string {
	if b.mode == ModeTable {
		return fmt.Sprintf("Tavolo %d", line.Table.TableNumber)
	}
	if line.Product.Name == "" {
		return "Sconosciuto"
	}
	return line.Product.Name
}

// Groups mengembalikan kartu sesuai urutan tampilan. Filter judul hanya
// menyaring apa yang terlihat, tidak menyentuh GroupOrder.
func (b *Board) Groups() []Group {
	b.mu.Lock()
	defer b.mu.Unlock()

	byKey := make(map[string][]models.Order)
	for _, line := range b.lines {
		key := b.keyForLocked(line)
		byKey[key] = append(byKey[key], line)
	}

	groups := make([]Group, 0, len(b.order))
	filter := strings.ToLower(strings.TrimSpace(b.titleFilter))
	for _, key := range b.order {
		lines, ok := byKey[key]
		if !ok {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(key), filter) {
			continue
		}
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].SubmittedAt.Before(lines[j].SubmittedAt)
		})
		total := 0
		for _, line := range lines {
			total += line.Quantity
		}
		groups = append(groups, Group{
			Key:           key,
			Title:         key,
			Lines:         lines,
			TotalQuantity: total,
			Highlighted:   b.highlighted[key],
		})
	}
	return groups
}

// GroupOrder mengembalikan salinan urutan tampilan saat ini.
func (b *Board) GroupOrder() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

func (b *Board) Highlighted(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highlighted[key]
}

// ToggleDelivered menulis flag consegnato ke server. State otoritatif tetap
// hasil refetch berikutnya; kalau tulis gagal, baris muncul lagi sendiri di
// refresh berikutnya, tanpa logika rollback lokal.
func (b *Board) ToggleDelivered(orderID uint, delivered bool) error {
	if err := b.backend.SetDelivered(orderID, delivered); err != nil {
		return fmt.Errorf("save delivered flag: %w", err)
	}

	b.mu.Lock()
	var key string
	for i := range b.lines {
		if b.lines[i].ID == orderID {
			b.lines[i].Delivered = delivered
			key = b.keyForLocked(b.lines[i])
			break
		}
	}
	// Perhatian eksplisit pada grup = highlight padam.
	if key != "" {
		delete(b.highlighted, key)
	}
	removeLater := delivered && b.hideDelivered && key != ""
	delay := b.RemoveDelay
	if delay <= 0 {
		delay = DefaultRemoveDelay
	}
	b.mu.Unlock()

	if removeLater {
		// Penghapusan optimistis ditunda supaya animasi centang sempat
		// tampil sebelum barisnya hilang.
		time.AfterFunc(delay, func() { b.removeLine(orderID) })
		b.changed()
		return nil
	}

	// Baris tetap tampil: muat ulang supaya yang terlihat adalah state
	// kanonik server, bukan patch lokal.
	return b.Refresh(false)
}

func (b *Board) removeLine(orderID uint) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	kept := b.lines[:0]
	for _, line := range b.lines {
		if line.ID != orderID {
			kept = append(kept, line)
		}
	}
	b.lines = kept
	b.mergeOrderLocked()
	b.mu.Unlock()
	b.changed()
}

// ArmDrag dipanggil saat user menekan handle drag sebuah kartu. Hanya kartu
// yang di-arm yang boleh mulai drag (mencegah drag tak sengaja saat scroll),
// dan menyentuh handle dianggap acknowledge: highlight-nya padam.
func (b *Board) ArmDrag(key string) {
	b.mu.Lock()
	b.armedKey = key
	delete(b.highlighted, key)
	b.mu.Unlock()
	b.changed()
}

func (b *Board) DisarmDrag() {
	b.mu.Lock()
	b.armedKey = ""
	b.mu.Unlock()
}

// BeginDrag -> false kalau kartu belum di-arm lewat handle-nya sendiri.
func (b *Board) BeginDrag(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.armedKey != key {
		return false
	}
	b.dragKey = key
	return true
}

// Drop menyisipkan key yang sedang di-drag pada posisi target.
func (b *Board) Drop(targetKey string) {
	b.mu.Lock()
	dragged := b.dragKey
	b.dragKey = ""
	b.armedKey = ""
	if dragged == "" || dragged == targetKey {
		b.mu.Unlock()
		return
	}

	order := make([]string, 0, len(b.order))
	for _, key := range b.order {
		if key != dragged {
			order = append(order, key)
		}
	}
	inserted := false
	for i, key := range order {
		if key == targetKey {
			order = append(order[:i], append([]string{dragged}, order[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		order = append(order, dragged)
	}
	b.order = order
	b.mu.Unlock()
	b.changed()
}

func (b *Board) EndDrag() {
	b.mu.Lock()
	b.dragKey = ""
	b.armedKey = ""
	b.mu.Unlock()
}

// ResetOrder menata ulang urutan grup menurut baris tertua tiap grup,
// menaik. Satu-satunya jalan selain drag untuk mengubah GroupOrder.
func (b *Board) ResetOrder() {
	b.mu.Lock()
	earliest := make(map[string]time.Time)
	for _, line := range b.lines {
		key := b.keyForLocked(line)
		if at, ok := earliest[key]; !ok || line.SubmittedAt.Before(at) {
			earliest[key] = line.SubmittedAt
		}
	}
	keys := b.liveKeysLocked()
	sort.SliceStable(keys, func(i, j int) bool {
		return earliest[keys[i]].Before(earliest[keys[j]])
	})
	b.order = keys
	b.mu.Unlock()
	b.changed()
}

// SetMode mengganti pengelompokan produk/meja. Namespace key ikut berganti,
// jadi urutan dibangun ulang dari urutan kedatangan.
func (b *Board) SetMode(mode ViewMode) {
	b.mu.Lock()
	if b.mode == mode {
		b.mu.Unlock()
		return
	}
	b.mode = mode
	b.highlighted = make(map[string]bool)
	b.order = nil
	b.mergeOrderLocked()
	b.mu.Unlock()
	b.changed()
}

func (b *Board) Mode() ViewMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// SetOnlyAssigned mengubah filter server-side lalu refetch.
func (b *Board) SetOnlyAssigned(only bool) error {
	b.mu.Lock()
	b.onlyAssigned = only
	b.mu.Unlock()
	return b.Refresh(false)
}

// SetHideDelivered mengubah filter server-side lalu refetch.
func (b *Board) SetHideDelivered(hide bool) error {
	b.mu.Lock()
	b.hideDelivered = hide
	b.mu.Unlock()
	return b.Refresh(false)
}

func (b *Board) HideDelivered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hideDelivered
}

// SetTitleFilter menyaring kartu yang tampil berdasar substring judul.
func (b *Board) SetTitleFilter(filter string) {
	b.mu.Lock()
	b.titleFilter = filter
	b.mu.Unlock()
	b.changed()
}

// Close menghentikan efek tertunda (penghapusan baris yang dijadwalkan).
func (b *Board) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (b *Board) changed() {
	if b.OnChange != nil {
		b.OnChange()
	}
}
