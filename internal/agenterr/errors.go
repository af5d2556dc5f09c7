package agenterr

import "errors"

var (
	ErrInvalidArgs      = errors.New("invalid tool arguments")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAccessDenied     = errors.New("access denied")
	ErrToolNotFound     = errors.New("tool not found")
	ErrBackend          = errors.New("reasoning backend failure")
	ErrNotFound         = errors.New("record not found")
)
