package chat

import (
	"errors"
	"fmt"
)

var ErrEmptyPrompt = errors.New("prompt is empty")

// StorageError means a required read or write against the message store failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// ModelError means the model backend failed or returned nothing usable.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model: %v", e.Err)
	}
	return fmt.Sprintf("model %s: %v", e.Provider, e.Err)
}
func (e *ModelError) Unwrap() error { return e.Err }
