package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/protocol"
	"github.com/yeremiapane/restaurant-sync/transport"
)

type published struct {
	destination string
	env         protocol.Envelope
}

// fakePub merekam intent keluar; err != nil mensimulasikan socket terputus.
type fakePub struct {
	sent []published
	err  error
}

func (f *fakePub) Publish(destination string, env protocol.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{destination, env})
	return nil
}

func snapshotEnv(t *testing.T, p protocol.SnapshotPayload, sessionID uint) protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(protocol.EventSnapshot, p, sessionID)
	assert.NoError(t, err)
	return env
}

func deltaEnv(t *testing.T, p protocol.DeltaPayload, sessionID uint) protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(protocol.EventDelta, p, sessionID)
	assert.NoError(t, err)
	return env
}

func TestSnapshotReplacesWholeCart(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	r.ApplyDelta(protocol.DeltaPayload{ProductID: 99, Quantity: 5})
	r.HandleMessage(snapshotEnv(t, protocol.SnapshotPayload{
		Cart: map[uint]int{7: 2, 8: 1},
	}, 1))

	assert.Equal(t, map[uint]int{7: 2, 8: 1}, r.Items())

	// Snapshot tanpa cart berarti keranjang kosong.
	r.HandleMessage(snapshotEnv(t, protocol.SnapshotPayload{}, 1))
	assert.Empty(t, r.Items())
}

func TestDeltasApplyInArrivalOrder(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	r.HandleMessage(snapshotEnv(t, protocol.SnapshotPayload{Cart: map[uint]int{7: 2}}, 1))
	r.HandleMessage(deltaEnv(t, protocol.DeltaPayload{ProductID: 7, Quantity: 3}, 1))
	r.HandleMessage(deltaEnv(t, protocol.DeltaPayload{ProductID: 9, Quantity: 1}, 1))
	r.HandleMessage(deltaEnv(t, protocol.DeltaPayload{ProductID: 7, Quantity: 1}, 1))

	// Keranjang akhir = snapshot terakhir + semua delta setelahnya, urut.
	assert.Equal(t, map[uint]int{7: 1, 9: 1}, r.Items())
}

func TestDeltaZeroRemovesKeyIdempotently(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	r.HandleMessage(snapshotEnv(t, protocol.SnapshotPayload{Cart: map[uint]int{7: 2}}, 1))

	zero := protocol.DeltaPayload{ProductID: 7, Quantity: 0}
	r.ApplyDelta(zero)
	_, ok := r.Items()[7]
	assert.False(t, ok)

	// Menerapkan delta nol dua kali sama dengan sekali.
	r.ApplyDelta(zero)
	assert.Empty(t, r.Items())
}

func TestIntentNeverMutatesLocalCart(t *testing.T) {
	pub := &fakePub{}
	r := NewReconciler(pub, 42)
	defer r.Close()

	r.ApplySnapshot(protocol.SnapshotPayload{Cart: map[uint]int{7: 2}})

	assert.NoError(t, r.AddItem(7, 1))
	assert.NoError(t, r.RemoveItem(7, -3)) // magnitude dinormalkan

	// Keranjang tampilan tetap nilai siaran server terakhir.
	assert.Equal(t, map[uint]int{7: 2}, r.Items())

	assert.Len(t, pub.sent, 2)
	assert.Equal(t, protocol.DestTable, pub.sent[0].destination)
	assert.Equal(t, protocol.EventAddItem, pub.sent[0].env.EventType)
	assert.Equal(t, uint(42), pub.sent[0].env.SessionID)

	intent, err := protocol.DecodeIntent(pub.sent[1].env)
	assert.NoError(t, err)
	assert.Equal(t, protocol.EventRemoveItem, pub.sent[1].env.EventType)
	// Payload remove membawa magnitude positif, tanda ada di event type.
	assert.Equal(t, 3, intent.Quantity)
}

func TestIntentRejectedWhileDisconnected(t *testing.T) {
	pub := &fakePub{err: transport.ErrNotConnected}
	r := NewReconciler(pub, 1)
	defer r.Close()

	r.ApplySnapshot(protocol.SnapshotPayload{Cart: map[uint]int{7: 2}})

	err := r.AddItem(7, 1)
	assert.ErrorIs(t, err, transport.ErrNotConnected)

	// Tidak ada yang di-queue dan keranjang tidak berubah.
	assert.Empty(t, pub.sent)
	assert.Equal(t, map[uint]int{7: 2}, r.Items())
}

func TestTotalCoursesCountsOnlyCountedCategories(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	r.SetCatalog([]models.Product{
		{ID: 7, Name: "Margherita", Category: models.Category{ID: 10}},
		{ID: 8, Name: "Coca Cola", Category: models.Category{ID: 120}},
		{ID: 9, Name: "Carbonara", Category: models.Category{ID: 20}},
	})
	r.ApplySnapshot(protocol.SnapshotPayload{
		Cart:                map[uint]int{7: 2, 8: 4, 9: 1},
		MaxCoursesPerPerson: 5,
		ParticipantCount:    3,
	})

	// Minuman (kategori >= 100) tidak dihitung.
	assert.Equal(t, 3, r.TotalCourses())
	assert.Equal(t, 15, r.MaxCourses())

	// Berubah reaktif saat keranjang berubah.
	r.ApplyDelta(protocol.DeltaPayload{ProductID: 9, Quantity: 4})
	assert.Equal(t, 6, r.TotalCourses())
}

func TestServerToastsAndHousekeeping(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	var levels []string
	var texts []string
	r.OnToast = func(level, text string) {
		levels = append(levels, level)
		texts = append(texts, text)
	}

	r.HandleMessage(protocol.Envelope{EventType: protocol.EventError, Payload: "boom"})
	r.HandleMessage(protocol.Envelope{EventType: protocol.EventWarning, Payload: "careful"})
	r.HandleMessage(protocol.Envelope{EventType: protocol.EventSuccess, Payload: "ok"})
	// ORDER_SENT adalah sinyal housekeeping, tidak boleh jadi toast.
	r.HandleMessage(protocol.Envelope{EventType: protocol.EventOrderSent})

	assert.Equal(t, []string{"error", "warning", "success"}, levels)
	assert.Equal(t, []string{"boom", "careful", "ok"}, texts)
}

func TestRefreshTriggersReload(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	reloads := 0
	r.OnReload = func() { reloads++ }

	r.HandleMessage(protocol.Envelope{EventType: protocol.EventRefresh})
	assert.Equal(t, 1, reloads)
}

func TestIsLunchNow(t *testing.T) {
	r := NewReconciler(&fakePub{}, 1)
	defer r.Close()

	start, end := 12, 15
	r.ApplySnapshot(protocol.SnapshotPayload{
		LunchStartHour: &start,
		LunchEndHour:   &end,
	})

	r.now = func() time.Time { return time.Date(2025, 3, 1, 13, 0, 0, 0, time.Local) }
	assert.True(t, r.IsLunchNow())

	r.now = func() time.Time { return time.Date(2025, 3, 1, 19, 0, 0, 0, time.Local) }
	assert.False(t, r.IsLunchNow())
}
