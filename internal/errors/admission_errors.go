package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotYourTurn = errors.New("not your turn yet")
	ErrExpired     = errors.New("admission window expired")
)

// NotYourTurnError carries the caller's queue rank when they are still waiting.
// Rank is zero when the caller holds no queue entry.
type NotYourTurnError struct {
	Rank int64
}

func (e *NotYourTurnError) Error() string {
	if e.Rank > 0 {
		return fmt.Sprintf("%s: position %d in line", ErrNotYourTurn, e.Rank)
	}
	return ErrNotYourTurn.Error()
}

func (e *NotYourTurnError) Unwrap() error {
	return ErrNotYourTurn
}
