// Package tower provides an editing model for Tower Unite "Suitebro" saves.
// A save is parsed into TowerObject values that keep their item and metadata
// records as raw JSON, so any field the toolkit does not touch is written back
// exactly as it was read. Objects are addressed with PathSpec, narrowed with
// Selector expressions and duplicated with CopySelection.
package tower

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// Common errors for model operations
var (
	ErrInvalidRecord     = errors.New("record is not a json object")
	ErrEmptyObject       = errors.New("object has neither item nor properties")
	ErrInvalidGUID       = errors.New("invalid guid")
	ErrUnsupportedValue  = errors.New("unsupported property value")
	ErrInvalidDocument   = errors.New("invalid suitebro document")
	ErrParseAmbiguous    = errors.New("items and properties cannot be merged")
	ErrEmptySelection    = errors.New("selection is empty")
	ErrMissingPosition   = errors.New("object has no position")
	ErrInvalidSelector   = errors.New("invalid selector")
	ErrInvalidVector     = errors.New("invalid vector")
	ErrInvalidPath       = errors.New("invalid path")
	ErrInvalidConnection = errors.New("invalid connection")
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger replaces the logger used for model warnings. A nil logger
// silences them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func log() *zap.Logger {
	return logger.Load()
}
