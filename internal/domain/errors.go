package domain

import "errors"

var (
	ErrEmptyConversation = errors.New("conversation id is required")
	ErrEmptyContent      = errors.New("message content is required")
	ErrContentTooLong    = errors.New("message too long")
)
