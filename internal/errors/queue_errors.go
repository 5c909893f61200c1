package errors

import "errors"

var (
	ErrAlreadyQueued   = errors.New("user is already in line for this event")
	ErrNotFound        = errors.New("queue entry not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrUnauthenticated = errors.New("user is not authenticated")
)
