package memory

import (
	"context"
	"fmt"

	"github.com/suPer8Hu/mirror/internal/ai"
)

// Job is a deferred extraction request handled by the worker.
type Job struct {
	UserID  uint64  `json:"user_id"`
	Role    ai.Role `json:"role"`
	Content string  `json:"content"`
}

type JobPublisher interface {
	PublishMemoryJob(ctx context.Context, job Job) error
}

// AsyncRecorder hands memory-worthy turns to a queue instead of writing them.
// The filter runs here too so the queue only carries candidates.
type AsyncRecorder struct {
	publisher JobPublisher
	extractor Extractor
}

func NewAsyncRecorder(publisher JobPublisher, extractor Extractor) *AsyncRecorder {
	if extractor == nil {
		extractor = DefaultExtractor()
	}
	return &AsyncRecorder{publisher: publisher, extractor: extractor}
}

func (r *AsyncRecorder) Record(ctx context.Context, userID uint64, turn ai.Message) (bool, error) {
	if turn.Role != ai.RoleUser || !r.extractor.IsMemoryWorthy(turn.Content) {
		return false, nil
	}
	job := Job{UserID: userID, Role: turn.Role, Content: turn.Content}
	if err := r.publisher.PublishMemoryJob(ctx, job); err != nil {
		return true, fmt.Errorf("publish memory job: %w", err)
	}
	return true, nil
}
