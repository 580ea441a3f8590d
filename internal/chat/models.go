package chat

import (
	"time"

	"github.com/suPer8Hu/mirror/internal/ai"
)

type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"id"`
	UserID    uint64    `gorm:"index:idx_chat_session_user_updated,priority:1;not null" json:"-"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Provider  string    `gorm:"type:varchar(32)" json:"provider,omitempty"`
	Model     string    `gorm:"type:varchar(64)" json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index:idx_chat_session_user_updated,priority:2" json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Message is one persisted turn. Rows are append-only and never carry the system role.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_chat_msg_user_session_created,priority:1" json:"-"`
	SessionID string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_user_session_created,priority:2" json:"session_id"`
	Role      ai.Role   `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_msg_user_session_created,priority:3" json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// Turn is the in-memory view of a message.
type Turn struct {
	Role      ai.Role   `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (m Message) Turn() Turn {
	return Turn{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

// Exchange is the pair of turns recorded by one Reflect call.
type Exchange struct {
	User      Turn `json:"user"`
	Assistant Turn `json:"assistant"`
}
