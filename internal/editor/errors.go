package editor

import (
	"errors"
	"fmt"

	"github.com/starford/pagecraft/internal/apperr"
)

// Errors returned by engine operations. None of them leave a partial
// mutation behind: the store and the ledger are untouched.
var (
	ErrComponentNotFound = fmt.Errorf("component %w", apperr.ErrNotFound)
	ErrNothingToUndo     = fmt.Errorf("nothing to undo: %w", apperr.ErrConflict)
	ErrNothingToRedo     = fmt.Errorf("nothing to redo: %w", apperr.ErrConflict)
	ErrNothingCopied     = fmt.Errorf("no copied component: %w", apperr.ErrConflict)
	ErrNoSelection       = fmt.Errorf("no component selected: %w", apperr.ErrInvalidInput)
	ErrKeyValueMismatch  = fmt.Errorf("keys and values differ in length: %w", apperr.ErrInvalidInput)
	ErrUnknownPageField  = fmt.Errorf("unknown page field: %w", apperr.ErrInvalidInput)
	ErrUnknownAttribute  = fmt.Errorf("unknown component attribute: %w", apperr.ErrInvalidInput)
	ErrInvalidDirection  = fmt.Errorf("invalid move direction: %w", apperr.ErrInvalidInput)

	// errNoChange suppresses the listener when an operation committed
	// nothing, such as a timer that lost its burst to a newer write.
	errNoChange = errors.New("no change")
)
