package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultRecallLimit = 5

// Store reads and writes per-user long-term facts.
type Store interface {
	RecentMemories(ctx context.Context, userID uint64, limit int) ([]string, error)
	Remember(ctx context.Context, userID uint64, content string) error
}

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecentMemories returns up to limit facts, newest first.
func (r *Repo) RecentMemories(ctx context.Context, userID uint64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	var contents []string
	if err := r.db.WithContext(ctx).
		Model(&Memory{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Pluck("content", &contents).Error; err != nil {
		return nil, fmt.Errorf("recent memories: %w", err)
	}
	if contents == nil {
		contents = []string{}
	}
	return contents, nil
}

// Remember stores content for userID. Content is cut to MaxContentLength; blank
// content and an existing identical fact are no-ops.
func (r *Repo) Remember(ctx context.Context, userID uint64, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	content = Truncate(content, MaxContentLength)
	m := &Memory{UserID: userID, Content: content, CreatedAt: r.now()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m).Error; err != nil {
		return fmt.Errorf("remember: %w", err)
	}
	return nil
}

// Count returns how many facts are stored for userID.
func (r *Repo) Count(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Memory{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
