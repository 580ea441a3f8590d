package memory

import "time"

// MaxContentLength bounds a stored memory, in characters.
const MaxContentLength = 500

// Memory is a durable fact about a user. (user_id, content) is unique.
type Memory struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uniq_memory_user_content,priority:1;index:idx_memory_user_created,priority:1" json:"-"`
	Content   string    `gorm:"type:varchar(500);not null;uniqueIndex:uniq_memory_user_content,priority:2" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_memory_user_created,priority:2" json:"created_at"`
}

func (Memory) TableName() string { return "memories" }
