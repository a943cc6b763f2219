package session

import "time"

// SessionModel is a persisted conversation. IDs are dense and assigned by
// the conversation manager, never by the database.
type SessionModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:256"`
	ModelName string `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []MessageModel `gorm:"foreignKey:SessionID"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

// MessageModel is one persisted message. The owning session is referenced
// only through SessionID; Sequence orders messages within it.
type MessageModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID int64  `gorm:"not null;index:idx_session_sequence,priority:1"`
	Sequence  int    `gorm:"not null;index:idx_session_sequence,priority:2"`
	Role      string `gorm:"size:16;not null"`
	Content   string `gorm:"type:text"`
	IsQuery   bool
	IsEnd     bool
	CreatedAt time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}
