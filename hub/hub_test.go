package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-sync/protocol"
	"github.com/yeremiapane/restaurant-sync/transport"
)

// fakeTransport merekam langganan upstream dan memberi test kendali untuk
// mendorong pesan atau memicu transisi connected.
type fakeTransport struct {
	topics       []string
	handler      transport.Handler
	connect      func()
	unsubscribed int
	offConnected int
}

func (f *fakeTransport) Subscribe(topic string, fn transport.Handler) func() {
	f.topics = append(f.topics, topic)
	f.handler = fn
	return func() { f.unsubscribed++ }
}

func (f *fakeTransport) OnConnect(fn func()) func() {
	f.connect = fn
	return func() { f.offConnected++ }
}

func TestHubSubscribesBroadcastTopicOnce(t *testing.T) {
	ft := &fakeTransport{}
	New(ft)
	assert.Equal(t, []string{protocol.TopicBroadcast}, ft.topics)
}

func TestDispatchFollowsRegistrationOrder(t *testing.T) {
	ft := &fakeTransport{}
	h := New(ft)

	var got []string
	h.Subscribe(func(env protocol.Envelope) { got = append(got, "first") })
	h.Subscribe(func(env protocol.Envelope) { got = append(got, "second") })
	h.Subscribe(func(env protocol.Envelope) { got = append(got, "third") })

	ft.handler(protocol.Envelope{EventType: protocol.EventRefresh})
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	ft := &fakeTransport{}
	h := New(ft)

	delivered := 0
	h.Subscribe(func(env protocol.Envelope) { delivered++ })
	h.Subscribe(func(env protocol.Envelope) { panic("listener rusak") })
	h.Subscribe(func(env protocol.Envelope) { delivered++ })

	assert.NotPanics(t, func() {
		ft.handler(protocol.Envelope{EventType: protocol.EventSuccess})
	})
	assert.Equal(t, 2, delivered)
}

func TestConnectSynthesizesRefresh(t *testing.T) {
	ft := &fakeTransport{}
	h := New(ft)

	var seen []string
	h.Subscribe(func(env protocol.Envelope) { seen = append(seen, env.EventType) })

	// Setiap transisi connected (termasuk reconnect) = satu REFRESH lokal.
	ft.connect()
	ft.connect()
	assert.Equal(t, []string{protocol.EventRefresh, protocol.EventRefresh}, seen)
}

func TestUnsubscribeStopsDeliveryForThatListenerOnly(t *testing.T) {
	ft := &fakeTransport{}
	h := New(ft)

	first, second := 0, 0
	off := h.Subscribe(func(env protocol.Envelope) { first++ })
	h.Subscribe(func(env protocol.Envelope) { second++ })

	ft.handler(protocol.Envelope{EventType: protocol.EventRefresh})
	off()
	off() // idempoten
	ft.handler(protocol.Envelope{EventType: protocol.EventRefresh})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestCloseReleasesUpstream(t *testing.T) {
	ft := &fakeTransport{}
	h := New(ft)

	calls := 0
	h.Subscribe(func(env protocol.Envelope) { calls++ })
	h.Close()

	assert.Equal(t, 1, ft.unsubscribed)
	assert.Equal(t, 1, ft.offConnected)

	// Handler upstream mungkin masih dipegang transport palsu, tapi hub
	// sudah tidak punya listener.
	ft.handler(protocol.Envelope{EventType: protocol.EventRefresh})
	assert.Equal(t, 0, calls)
}
