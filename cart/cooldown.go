package cart

import (
	"sync"
	"time"
)

// Cooldown adalah state machine kecil: Idle (tanpa nilai) atau Counting.
// Nilainya selalu di-anchor ulang dari last_order_at milik server pada setiap
// snapshot, jadi drift jam lokal tidak menumpuk lintas snapshot.
type Cooldown struct {
	mu        sync.Mutex
	remaining int // 0 = Idle
	ticking   bool
	stop      chan struct{}
	now       func() time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{now: time.Now}
}

// Resync menghitung ulang sisa detik dari anchor server. Anchor yang absen
// atau sisa <= 0 mengembalikan state ke Idle (bukan diam di angka 0).
func (c *Cooldown) Resync(lastOrderAt *time.Time, cooldownMinutes int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lastOrderAt == nil || cooldownMinutes <= 0 {
		c.toIdleLocked()
		return
	}

	elapsed := int(c.now().Sub(*lastOrderAt) / time.Second)
	remaining := cooldownMinutes*60 - elapsed
	if remaining <= 0 {
		c.toIdleLocked()
		return
	}

	c.remaining = remaining
	if !c.ticking {
		c.ticking = true
		c.stop = make(chan struct{})
		go c.tickLoop(c.stop)
	}
}

func (c *Cooldown) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !c.tick() {
				return
			}
		case <-stop:
			return
		}
	}
}

// tick menurunkan counter satu detik; false berarti loop harus berhenti.
func (c *Cooldown) tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ticking {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.toIdleLocked()
		return false
	}
	return true
}

// Remaining -> (sisa detik, true) saat Counting, (0, false) saat Idle.
func (c *Cooldown) Remaining() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return 0, false
	}
	return c.remaining, true
}

// Stop mematikan interval secara sinkron saat view di-teardown.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toIdleLocked()
}

func (c *Cooldown) toIdleLocked() {
	c.remaining = 0
	if c.ticking {
		c.ticking = false
		close(c.stop)
		c.stop = nil
	}
}
