package store

import "errors"

// Sentinel errors for store operations. Callers match with errors.Is; the
// underlying driver failure is carried in the wrapped message.
var (
	ErrSaveFailed   = errors.New("save failed")
	ErrFetchFailed  = errors.New("fetch failed")
	ErrDeleteFailed = errors.New("delete failed")
	ErrClearFailed  = errors.New("clear failed")
	ErrNotFound     = errors.New("record not found")
)
