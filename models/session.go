package models

import "time"

// Status sesi meja. Hanya satu sesi ACTIVE per meja (ditegakkan server).
const (
	SessionNone    = "NONE"
	SessionPending = "PENDING"
	SessionActive  = "ACTIVE"
	SessionClosed  = "CLOSED"
)

// Mode menu untuk satu sesi.
const (
	MenuAYCE  = "AYCE"
	MenuCarta = "CARTA"
)

type TableSession struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	TableID             uint       `gorm:"index;not null" json:"table_id"`
	Table               Table      `gorm:"foreignKey:TableID" json:"table"`
	Status              string     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	MenuMode            string     `gorm:"type:varchar(20);not null;default:'AYCE'" json:"menu_mode"`
	ParticipantCount    int        `gorm:"not null;default:1" json:"participant_count"`
	StartedAt           time.Time  `gorm:"not null" json:"started_at"`
	LastOrderAt         *time.Time `json:"last_order_at,omitempty"`
	CooldownMinutes     int        `gorm:"not null;default:0" json:"cooldown_minutes"`
	MaxCoursesPerPerson int        `gorm:"not null;default:0" json:"max_courses_per_person"`
	CreatedAt           time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null" json:"updated_at"`
}

// IsAyce -> true kalau sesi memakai mode all-you-can-eat.
func (s *TableSession) IsAyce() bool {
	return s.MenuMode == MenuAYCE
}

// SessionInfo adalah bentuk yang dikirim ke client lewat /auth/me dan
// login-table. Client tidak pernah menulis field sesi miliknya sendiri.
type SessionInfo struct {
	SessionID   uint   `json:"session_id"`
	TableID     uint   `json:"table_id"`
	TableNumber int    `json:"table_number"`
	MenuMode    string `json:"menu_mode"`
	Status      string `json:"status"`
	IsAyce      bool   `json:"is_ayce"`
}
