package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/suPer8Hu/mirror/internal/ai"
)

var ErrSystemTurn = errors.New("system turns are never persisted")

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSessionBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns the user's sessions, most recently active first.
func (r *Repo) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	var out []Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the session's turns oldest first. With limit > 0 only the
// most recent limit turns are returned, still oldest first.
func (r *Repo) History(ctx context.Context, userID uint64, sessionID string, limit int) ([]Turn, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ? AND role <> ?", userID, sessionID, ai.RoleSystem)

	var msgs []Message
	if limit > 0 {
		if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	} else if err := q.Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, m.Turn())
	}
	return turns, nil
}

// Append persists a single user or assistant turn with the same timestamp and
// session bookkeeping as AppendExchange. Reflect always writes whole exchanges;
// Append is the accessor for importing or replaying individual turns.
func (r *Repo) Append(ctx context.Context, userID uint64, sessionID string, role ai.Role, content string) (Turn, error) {
	var out Turn
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := r.nextTimestamp(tx, userID, sessionID)
		if err != nil {
			return err
		}
		m, err := insertTurn(tx, userID, sessionID, role, content, ts)
		if err != nil {
			return err
		}
		out = m.Turn()
		return touchSession(tx, userID, sessionID, ts)
	})
	return out, err
}

// AppendExchange persists the user turn and then the assistant turn in one
// transaction, so either both are visible or neither is.
func (r *Repo) AppendExchange(ctx context.Context, userID uint64, sessionID string, user, assistant string) (Exchange, error) {
	var ex Exchange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := r.nextTimestamp(tx, userID, sessionID)
		if err != nil {
			return err
		}
		u, err := insertTurn(tx, userID, sessionID, ai.RoleUser, user, ts)
		if err != nil {
			return err
		}
		a, err := insertTurn(tx, userID, sessionID, ai.RoleAssistant, assistant, ts)
		if err != nil {
			return err
		}
		ex = Exchange{User: u.Turn(), Assistant: a.Turn()}
		return touchSession(tx, userID, sessionID, ts)
	})
	return ex, err
}

// nextTimestamp never goes behind the newest turn already stored for the
// session; equal timestamps are ordered by id.
func (r *Repo) nextTimestamp(tx *gorm.DB, userID uint64, sessionID string) (time.Time, error) {
	now := r.now()
	var last Message
	err := tx.Select("created_at").
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("created_at DESC").
		Limit(1).
		Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return now, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if now.Before(last.CreatedAt) {
		return last.CreatedAt, nil
	}
	return now, nil
}

func insertTurn(tx *gorm.DB, userID uint64, sessionID string, role ai.Role, content string, ts time.Time) (*Message, error) {
	if role == ai.RoleSystem {
		return nil, ErrSystemTurn
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	m := &Message{
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: ts,
	}
	if err := tx.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func touchSession(tx *gorm.DB, userID uint64, sessionID string, ts time.Time) error {
	return tx.Model(&Session{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("updated_at", ts).Error
}

// CountMessages returns how many turns are stored for the session.
func (r *Repo) CountMessages(ctx context.Context, userID uint64, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Count(&n).Error
	return n, err
}
