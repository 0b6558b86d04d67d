package kitchen

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/notify"
	"github.com/yeremiapane/restaurant-sync/protocol"
)

// fakeBackend menyajikan daftar comanda dari memori dan merekam filter yang
// diminta board (filter harus server-side).
type fakeBackend struct {
	lines             []models.Order
	lastOnlyAssigned  bool
	lastHideDelivered bool
	calls             int
}

func (f *fakeBackend) KitchenOrders(onlyAssigned, hideDelivered bool) ([]models.Order, error) {
	f.calls++
	f.lastOnlyAssigned = onlyAssigned
	f.lastHideDelivered = hideDelivered

	var out []models.Order
	for _, line := range f.lines {
		if hideDelivered && line.Delivered {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func (f *fakeBackend) SetDelivered(orderID uint, delivered bool) error {
	for i := range f.lines {
		if f.lines[i].ID == orderID {
			f.lines[i].Delivered = delivered
		}
	}
	return nil
}

type fakePlayer struct{ plays int }

func (p *fakePlayer) Play() { p.plays++ }

var baseTime = time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)

func line(id uint, product string, tableNumber int, minutesAfter int) models.Order {
	return models.Order{
		ID:          id,
		Product:     models.Product{ID: id * 10, Name: product},
		Table:       models.Table{ID: uint(tableNumber), TableNumber: tableNumber},
		Quantity:    1,
		SubmittedAt: baseTime.Add(time.Duration(minutesAfter) * time.Minute),
	}
}

func TestGroupingByProductAndByTable(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(1, "Margherita", 3, 0),
		line(2, "Carbonara", 4, 1),
		line(3, "Margherita", 4, 2),
	}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))

	groups := b.Groups()
	assert.Len(t, groups, 2)
	assert.Equal(t, "Margherita", groups[0].Key)
	assert.Len(t, groups[0].Lines, 2)
	assert.Equal(t, 2, groups[0].TotalQuantity)

	b.SetMode(ModeTable)
	groups = b.Groups()
	assert.Len(t, groups, 2)
	assert.Equal(t, "Tavolo 3", groups[0].Key)
	assert.Equal(t, "Tavolo 4", groups[1].Key)
}

func TestGroupOrderSurvivesRefresh(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(1, "Margherita", 3, 0),
		line(2, "Carbonara", 3, 1),
	}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))
	assert.Equal(t, []string{"Margherita", "Carbonara"}, b.GroupOrder())

	// Key baru nempel di belakang, key lama mempertahankan urutan relatif.
	backend.lines = append(backend.lines, line(3, "Tiramisu", 3, 2))
	assert.NoError(t, b.Refresh(false))
	assert.Equal(t, []string{"Margherita", "Carbonara", "Tiramisu"}, b.GroupOrder())

	// Key mati dipangkas; tidak ada duplikat.
	backend.lines = []models.Order{line(2, "Carbonara", 3, 1), line(3, "Tiramisu", 3, 2)}
	assert.NoError(t, b.Refresh(false))
	assert.Equal(t, []string{"Carbonara", "Tiramisu"}, b.GroupOrder())
}

func TestDragNeedsArmingAndDropSplices(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(1, "Margherita", 3, 0),
		line(2, "Carbonara", 3, 1),
		line(3, "Tiramisu", 3, 2),
	}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))

	// Tanpa arm lewat handle, drag ditolak (mencegah drag saat scroll).
	assert.False(t, b.BeginDrag("Tiramisu"))

	b.ArmDrag("Tiramisu")
	assert.True(t, b.BeginDrag("Tiramisu"))
	b.Drop("Margherita")
	assert.Equal(t, []string{"Tiramisu", "Margherita", "Carbonara"}, b.GroupOrder())

	// REFRESH data berikutnya TIDAK boleh mengembalikan urutan kedatangan.
	assert.NoError(t, b.Refresh(false))
	assert.Equal(t, []string{"Tiramisu", "Margherita", "Carbonara"}, b.GroupOrder())

	// Hanya perintah reset eksplisit yang kembali ke urutan baris tertua.
	b.ResetOrder()
	assert.Equal(t, []string{"Margherita", "Carbonara", "Tiramisu"}, b.GroupOrder())
}

func TestHighlightLifecycle(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{line(1, "Margherita", 3, 0)}}
	b := NewBoard(backend, nil)

	// Cold load: tidak ada highlight walau semua baris "baru".
	assert.NoError(t, b.Refresh(false))
	assert.False(t, b.Highlighted("Margherita"))

	// Baris baru lewat push -> grupnya menyala.
	backend.lines = append(backend.lines, line(2, "Margherita", 4, 1))
	b.HandleMessage(protocol.Envelope{EventType: protocol.EventOrderSent})
	assert.True(t, b.Highlighted("Margherita"))

	// Toggle consegnato di baris mana pun dalam grup memadamkan highlight.
	assert.NoError(t, b.ToggleDelivered(1, true))
	assert.False(t, b.Highlighted("Margherita"))
}

func TestArmDragAcknowledgesHighlight(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{line(1, "Margherita", 3, 0)}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))

	backend.lines = append(backend.lines, line(2, "Margherita", 4, 1))
	assert.NoError(t, b.Refresh(true))
	assert.True(t, b.Highlighted("Margherita"))

	// Memegang handle drag = perhatian eksplisit.
	b.ArmDrag("Margherita")
	assert.False(t, b.Highlighted("Margherita"))
}

func TestDeliveredOptimisticDelayedRemoval(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(1, "Margherita", 3, 0),
		line(2, "Margherita", 4, 1),
	}}
	b := NewBoard(backend, nil)
	b.RemoveDelay = 20 * time.Millisecond
	assert.NoError(t, b.Refresh(false))

	assert.NoError(t, b.ToggleDelivered(1, true))

	// Baris masih tampil selama animasi centang berjalan.
	groups := b.Groups()
	assert.Len(t, groups[0].Lines, 2)

	assert.Eventually(t, func() bool {
		groups := b.Groups()
		return len(groups) == 1 && len(groups[0].Lines) == 1 && groups[0].Lines[0].ID == 2
	}, time.Second, 5*time.Millisecond)
}

func TestToggleDeliveredRefetchesWhenDeliveredShown(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{line(1, "Margherita", 3, 0)}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.SetHideDelivered(false))
	fetches := backend.calls

	// Server menerima baris lain di antara dua aksi chef.
	backend.lines = append(backend.lines, line(2, "Carbonara", 3, 1))

	// Baris tidak dihapus (consegnati tetap tampil): board refetch supaya
	// yang tampil adalah state kanonik server.
	assert.NoError(t, b.ToggleDelivered(1, true))
	assert.Equal(t, fetches+1, backend.calls)

	groups := b.Groups()
	assert.Len(t, groups, 2)
	assert.True(t, groups[0].Lines[0].Delivered)
	assert.Equal(t, "Carbonara", groups[1].Key)
}

func TestFiltersAreForwardedToServer(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{line(1, "Margherita", 3, 0)}}
	b := NewBoard(backend, nil)

	assert.NoError(t, b.Refresh(false))
	assert.False(t, backend.lastOnlyAssigned)
	assert.True(t, backend.lastHideDelivered) // default: sembunyikan consegnati

	assert.NoError(t, b.SetOnlyAssigned(true))
	assert.True(t, backend.lastOnlyAssigned)

	assert.NoError(t, b.SetHideDelivered(false))
	assert.False(t, backend.lastHideDelivered)
}

func TestAudioPlaysOnlyForPushedNewLines(t *testing.T) {
	player := &fakePlayer{}
	gate := notify.NewGate(player)
	backend := &fakeBackend{lines: []models.Order{line(1, "Margherita", 3, 0)}}
	b := NewBoard(backend, gate)

	// Belum unlock: push baru tetap diam (tanpa error).
	assert.NoError(t, b.Refresh(true))
	assert.Equal(t, 0, player.plays)

	gate.Unlock()
	backend.lines = append(backend.lines, line(2, "Carbonara", 3, 1))
	assert.NoError(t, b.Refresh(true))
	assert.Equal(t, 1, player.plays)

	// Refresh tanpa baris baru tidak bunyi.
	assert.NoError(t, b.Refresh(true))
	assert.Equal(t, 1, player.plays)
}

func TestTitleFilterOnlyAffectsVisibility(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(1, "Margherita", 3, 0),
		line(2, "Carbonara", 3, 1),
	}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))

	b.SetTitleFilter("marghe")
	groups := b.Groups()
	assert.Len(t, groups, 1)
	assert.Equal(t, "Margherita", groups[0].Key)

	// GroupOrder tidak tersentuh filter tampilan.
	assert.Equal(t, []string{"Margherita", "Carbonara"}, b.GroupOrder())
}

func TestLinesSortedBySubmitTimeInsideGroup(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(2, "Margherita", 4, 5),
		line(1, "Margherita", 3, 0),
	}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))

	groups := b.Groups()
	ids := []uint{groups[0].Lines[0].ID, groups[0].Lines[1].ID}
	assert.Equal(t, []uint{1, 2}, ids)
}

func TestModeSwitchRebuildsOrderNamespace(t *testing.T) {
	backend := &fakeBackend{lines: []models.Order{
		line(1, "Margherita", 3, 0),
		line(2, "Carbonara", 4, 1),
	}}
	b := NewBoard(backend, nil)
	assert.NoError(t, b.Refresh(false))

	b.SetMode(ModeTable)
	order := b.GroupOrder()
	assert.Equal(t, []string{fmt.Sprintf("Tavolo %d", 3), fmt.Sprintf("Tavolo %d", 4)}, order)
}
