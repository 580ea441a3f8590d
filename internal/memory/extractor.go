package memory

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/suPer8Hu/mirror/internal/ai"
)

// Extractor decides what part of a user turn is worth keeping.
type Extractor interface {
	IsMemoryWorthy(text string) bool
	Extract(text string) string
}

// LengthExtractor keeps any turn longer than MinLength characters, cut to MaxLength.
type LengthExtractor struct {
	MinLength int
	MaxLength int
}

func DefaultExtractor() LengthExtractor {
	return LengthExtractor{MinLength: 100, MaxLength: MaxContentLength}
}

func (e LengthExtractor) IsMemoryWorthy(text string) bool {
	return utf8.RuneCountInString(text) > e.MinLength
}

func (e LengthExtractor) Extract(text string) string {
	return Truncate(text, e.MaxLength)
}

// Recorder runs extraction inline against a Store.
type Recorder struct {
	store     Store
	extractor Extractor
}

func NewRecorder(store Store, extractor Extractor) *Recorder {
	if extractor == nil {
		extractor = DefaultExtractor()
	}
	return &Recorder{store: store, extractor: extractor}
}

// Record stores the memory-worthy part of turn. It reports whether a write was attempted.
func (r *Recorder) Record(ctx context.Context, userID uint64, turn ai.Message) (bool, error) {
	if turn.Role != ai.RoleUser || !r.extractor.IsMemoryWorthy(turn.Content) {
		return false, nil
	}
	if err := r.store.Remember(ctx, userID, r.extractor.Extract(turn.Content)); err != nil {
		return true, fmt.Errorf("record memory: %w", err)
	}
	return true, nil
}
