package document

import "errors"

var (
	ErrNotFound      = errors.New("document not found")
	ErrUnreadable    = errors.New("document unreadable")
	ErrEmptyDocument = errors.New("document is empty")
)
