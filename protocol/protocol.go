package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types (Server -> Client)
const (
	EventRefresh         = "REFRESH"
	EventSnapshot        = "SNAPSHOT"
	EventDelta           = "DELTA"
	EventOrderSent       = "ORDER_SENT"
	EventError           = "ERROR"
	EventWarning         = "WARNING"
	EventSuccess         = "SUCCESS"
	EventDeliveryChanged = "DELIVERY_CHANGED"
)

// Event types (Client -> Server)
const (
	EventGetStatus  = "GET_STATUS"
	EventAddItem    = "ADD_ITEM"
	EventRemoveItem = "REMOVE_ITEM"
	// ORDER_SENT dipakai dua arah: client mengirim submit, server membalas
	// dengan tag yang sama sebagai sinyal housekeeping (tanpa toast).
)

// Topics dan destination
const (
	TopicBroadcast = "/topic/broadcast"
	TopicKitchen   = "/topic/kitchen"
	DestTable      = "/app/table"
)

// TopicTable -> topic per meja, contoh: /topic/table/3
func TopicTable(tableID uint) string {
	return fmt.Sprintf("/topic/table/%d", tableID)
}

// Envelope adalah pesan logis di atas push channel. Payload sering berupa
// JSON yang di-encode lagi sebagai string, mengikuti kontrak wire.
type Envelope struct {
	EventType string `json:"event_type"`
	Payload   string `json:"payload"`
	SessionID uint   `json:"session_id,omitempty"`
}

// SnapshotPayload -> full cart + fakta sesi. Cart yang absen berarti kosong.
type SnapshotPayload struct {
	Cart                map[uint]int `json:"cart"`
	LastOrderAt         *time.Time   `json:"last_order_at,omitempty"`
	CooldownMinutes     int          `json:"cooldown_minutes,omitempty"`
	MaxCoursesPerPerson int          `json:"max_courses_per_person,omitempty"`
	ParticipantCount    int          `json:"participant_count,omitempty"`
	LunchStartHour      *int         `json:"lunch_start_hour,omitempty"`
	LunchEndHour        *int         `json:"lunch_end_hour,omitempty"`
}

// DeltaPayload -> perubahan satu produk. Quantity adalah nilai absolut hasil
// akhir dari server, bukan selisih; <= 0 berarti key dihapus.
type DeltaPayload struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// IntentPayload -> intent ADD_ITEM / REMOVE_ITEM dari client. Quantity selalu
// magnitude positif; arah dibawa oleh event type, bukan tanda bilangan.
type IntentPayload struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// NewEnvelope meng-encode payload menjadi string JSON di dalam envelope.
func NewEnvelope(eventType string, payload interface{}, sessionID uint) (Envelope, error) {
	env := Envelope{EventType: eventType, SessionID: sessionID}
	if payload == nil {
		return env, nil
	}
	if s, ok := payload.(string); ok {
		env.Payload = s
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload %s: %w", eventType, err)
	}
	env.Payload = string(raw)
	return env, nil
}

// DecodeSnapshot membaca payload SNAPSHOT. Payload kosong dianggap snapshot
// kosong (cart nil), bukan error.
func DecodeSnapshot(env Envelope) (SnapshotPayload, error) {
	var p SnapshotPayload
	if env.Payload == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(env.Payload), &p); err != nil {
		return SnapshotPayload{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return p, nil
}

// DecodeDelta membaca payload DELTA.
func DecodeDelta(env Envelope) (DeltaPayload, error) {
	var p DeltaPayload
	if err := json.Unmarshal([]byte(env.Payload), &p); err != nil {
		return DeltaPayload{}, fmt.Errorf("decode delta: %w", err)
	}
	return p, nil
}

// DecodeIntent membaca payload ADD_ITEM / REMOVE_ITEM.
func DecodeIntent(env Envelope) (IntentPayload, error) {
	var p IntentPayload
	if err := json.Unmarshal([]byte(env.Payload), &p); err != nil {
		return IntentPayload{}, fmt.Errorf("decode intent: %w", err)
	}
	return p, nil
}

// IsToast -> event yang harus tampil sebagai toast ke user. ORDER_SENT
// sengaja tidak termasuk walaupun satu keluarga dengan SUCCESS.
func IsToast(eventType string) bool {
	switch eventType {
	case EventError, EventWarning, EventSuccess:
		return true
	}
	return false
}
