// Package notify menjaga bunyi notifikasi di balik dua gerbang independen:
// preferensi user yang bisa di-toggle dan unlock konteks audio yang butuh
// minimal satu gesture user sejak halaman dimuat.
package notify

import "sync"

// Player memutar satu bunyi notifikasi. Implementasinya milik layer UI.
type Player interface {
	Play()
}

// Gate. Latch unlocked bersifat one-time: sekali ter-set tidak pernah reset
// selama proses hidup. Gagal di gerbang mana pun berarti skip diam-diam,
// bukan error.
type Gate struct {
	mu       sync.Mutex
	player   Player
	enabled  bool
	unlocked bool
	hintSeen bool
}

func NewGate(player Player) *Gate {
	return &Gate{player: player, enabled: true}
}

// SetEnabled -> toggle preferensi user.
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
}

func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// Unlock dicatat pada gesture user pertama (click/touch). Idempoten.
func (g *Gate) Unlock() {
	g.mu.Lock()
	g.unlocked = true
	g.hintSeen = true
	g.mu.Unlock()
}

func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}

// Play mencoba memutar bunyi; false berarti salah satu gerbang menolak.
func (g *Gate) Play() bool {
	g.mu.Lock()
	ok := g.enabled && g.unlocked && g.player != nil
	g.mu.Unlock()
	if ok {
		g.player.Play()
	}
	return ok
}

// HintNeeded -> true selama user belum pernah unlock dan hint belum
// ditampilkan; dipakai UI untuk prompt "sentuh layar" satu kali.
func (g *Gate) HintNeeded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.unlocked && !g.hintSeen
}

// DismissHint menandai hint sudah ditampilkan tanpa membuka latch.
func (g *Gate) DismissHint() {
	g.mu.Lock()
	g.hintSeen = true
	g.mu.Unlock()
}
