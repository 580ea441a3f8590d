package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suPer8Hu/mirror/internal/ai"
	"github.com/suPer8Hu/mirror/internal/common"
	"github.com/suPer8Hu/mirror/internal/memory"
	"github.com/suPer8Hu/mirror/internal/observability"
	"github.com/suPer8Hu/mirror/internal/prompt"
)

var (
	ErrEmptyReply      = errors.New("model returned an empty reply")
	ErrUnknownProvider = errors.New("unknown ai provider")
)

const DefaultSessionTitle = "New Chat"

// Store is the message store the Service depends on. *Repo implements it.
type Store interface {
	History(ctx context.Context, userID uint64, sessionID string, limit int) ([]Turn, error)
	AppendExchange(ctx context.Context, userID uint64, sessionID string, user, assistant string) (Exchange, error)
	GetSessionBySessionID(ctx context.Context, sessionID string) (*Session, error)
	CreateSession(ctx context.Context, s *Session) error
}

// MemoryRecorder handles the best-effort memory step after a turn is persisted.
type MemoryRecorder interface {
	Record(ctx context.Context, userID uint64, turn ai.Message) (bool, error)
}

type Service struct {
	store        Store
	memories     memory.Store
	recorder     MemoryRecorder
	registry     *ai.Registry
	locker       SessionLocker
	logger       *zap.Logger
	metrics      *observability.Metrics
	historyLimit int
	recallLimit  int
}

type Option func(*Service)

func WithRecorder(r MemoryRecorder) Option { return func(s *Service) { s.recorder = r } }

func WithLocker(l SessionLocker) Option { return func(s *Service) { s.locker = l } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithHistoryLimit bounds how many stored turns are sent to the model. Zero sends all of them.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

func WithRecallLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recallLimit = n
		}
	}
}

func NewService(store Store, memories memory.Store, registry *ai.Registry, opts ...Option) *Service {
	s := &Service{
		store:       store,
		memories:    memories,
		registry:    registry,
		locker:      noopLocker{},
		logger:      zap.NewNop(),
		recallLimit: memory.DefaultRecallLimit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.recorder == nil {
		s.recorder = memory.NewRecorder(memories, memory.DefaultExtractor())
	}
	return s
}

// CreateSession opens a new conversation for userID. Empty provider and model
// leave routing to the registry defaults; a provider the registry does not
// know is rejected with ErrUnknownProvider.
func (s *Service) CreateSession(ctx context.Context, userID uint64, title, provider, model string) (*Session, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != "" && !s.registry.Has(provider) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}
	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		SessionID: sid,
		UserID:    userID,
		Title:     title,
		Provider:  provider,
		Model:     strings.TrimSpace(model),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Reflect runs one conversational turn: it reads history and memories, asks the
// model for a reply and records both turns together. Storage and model failures
// are returned as *StorageError and *ModelError; memory failures are only logged.
func (s *Service) Reflect(ctx context.Context, userID uint64, sessionID string, text string) (Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return Exchange{}, ErrEmptyPrompt
	}

	start := time.Now()
	unlock, err := s.locker.Lock(ctx, SessionKey(userID, sessionID))
	if err != nil {
		return Exchange{}, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	ex, err := s.reflect(ctx, userID, sessionID, text)
	s.metrics.ObserveReflect(outcome(err), time.Since(start))
	return ex, err
}

func (s *Service) reflect(ctx context.Context, userID uint64, sessionID string, text string) (Exchange, error) {
	log := s.logger.With(zap.Uint64("user_id", userID), zap.String("session_id", sessionID))

	history, err := s.store.History(ctx, userID, sessionID, s.historyLimit)
	if err != nil {
		return Exchange{}, &StorageError{Op: "history", Err: err}
	}

	memories := s.recall(ctx, log, userID)
	messages := BuildContext(history, prompt.ComposeSystemPrompt(memories), text)

	provider, name, err := s.providerFor(ctx, sessionID)
	if err != nil {
		return Exchange{}, err
	}

	t0 := time.Now()
	reply, err := provider.Chat(ctx, messages)
	s.metrics.ObserveModel(name, time.Since(t0))
	if err != nil {
		return Exchange{}, &ModelError{Provider: name, Err: err}
	}
	if strings.TrimSpace(reply) == "" {
		return Exchange{}, &ModelError{Provider: name, Err: ErrEmptyReply}
	}

	ex, err := s.store.AppendExchange(ctx, userID, sessionID, text, reply)
	if err != nil {
		return Exchange{}, &StorageError{Op: "append exchange", Err: err}
	}

	log.Debug("exchange recorded",
		zap.String("provider", name),
		zap.Int("history_turns", len(history)),
		zap.Int("memories", len(memories)),
	)

	s.record(ctx, log, userID, ai.Message{Role: ai.RoleUser, Content: text})
	return ex, nil
}

// recall degrades to no memories when the store is unavailable.
func (s *Service) recall(ctx context.Context, log *zap.Logger, userID uint64) []string {
	if s.memories == nil {
		return nil
	}
	memories, err := s.memories.RecentMemories(ctx, userID, s.recallLimit)
	if err != nil {
		log.Warn("memory recall failed, continuing without memories", zap.Error(err))
		s.metrics.MemoryEvent("recall", "error")
		return nil
	}
	s.metrics.MemoryEvent("recall", "ok")
	return memories
}

func (s *Service) record(ctx context.Context, log *zap.Logger, userID uint64, turn ai.Message) {
	wrote, err := s.recorder.Record(ctx, userID, turn)
	switch {
	case err != nil:
		log.Error("memory write failed", zap.Error(err))
		s.metrics.MemoryEvent("write", "error")
	case wrote:
		s.metrics.MemoryEvent("write", "stored")
	default:
		s.metrics.MemoryEvent("write", "skipped")
	}
}

// providerFor routes by the session's provider and model, falling back to the
// registry defaults for sessions without a row or without a choice.
func (s *Service) providerFor(ctx context.Context, sessionID string) (ai.Provider, string, error) {
	var name, model string
	sess, err := s.store.GetSessionBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		name, model = sess.Provider, sess.Model
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, "", &StorageError{Op: "session lookup", Err: err}
	}

	p, err := s.registry.Get(ctx, name, model)
	if name == "" {
		name, _ = s.registry.Default()
	}
	if err != nil {
		return nil, name, &ModelError{Provider: name, Err: err}
	}
	return p, name, nil
}

func outcome(err error) string {
	var se *StorageError
	var me *ModelError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "storage_error"
	case errors.As(err, &me):
		return "model_error"
	default:
		return "error"
	}
}
