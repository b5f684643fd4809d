package game

import (
	"context"
	"errors"

	"github.com/lox/pokerrooms/internal/deck"
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindInvalidAmount
	KindCapacity
	KindInsufficientCards
	KindUnavailable
)

func (k Kind) String() string {
	return [...]string{"internal", "not_found", "invalid_state", "invalid_amount", "capacity", "insufficient_cards", "unavailable"}[k]
}

// Error is a classified error. Sentinels below are *Error values; wrap them
// with fmt.Errorf("...: %w", err) to add context.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrRoomNotFound        = &Error{Kind: KindNotFound, Msg: "room not found"}
	ErrParticipantNotFound = &Error{Kind: KindNotFound, Msg: "participant not found"}

	ErrNotYourTurn      = &Error{Kind: KindInvalidState, Msg: "not your turn"}
	ErrRoomNotReady     = &Error{Kind: KindInvalidState, Msg: "room is not ready to start a hand"}
	ErrNotEnoughPlayers = &Error{Kind: KindInvalidState, Msg: "not enough players to start a hand"}
	ErrHandNotActive    = &Error{Kind: KindInvalidState, Msg: "no hand in progress"}
	ErrHandInProgress   = &Error{Kind: KindInvalidState, Msg: "hand already in progress"}
	ErrCannotAct        = &Error{Kind: KindInvalidState, Msg: "participant cannot act"}
	ErrRoomClosed       = &Error{Kind: KindInvalidState, Msg: "room is closed"}

	ErrRoomFull          = &Error{Kind: KindCapacity, Msg: "room is full"}
	ErrDuplicateUsername = &Error{Kind: KindCapacity, Msg: "username already seated"}

	ErrInvalidAmount = &Error{Kind: KindInvalidAmount, Msg: "invalid amount"}
	ErrRaiseTooSmall = &Error{Kind: KindInvalidAmount, Msg: "raise below minimum"}

	// ErrRoomBusy means the room lock could not be taken before the deadline.
	ErrRoomBusy = &Error{Kind: KindUnavailable, Msg: "room is busy"}
)

// Unavailable wraps an infrastructure failure (cache, database, broker).
func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: op, Err: err}
}

// KindOf reports the Kind of err, looking through wrapped errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, deck.ErrInsufficientCards):
		return KindInsufficientCards
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindUnavailable
	}
	return KindInternal
}
