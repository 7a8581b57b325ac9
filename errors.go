// Package drampim is the main API for the DRAM/PIM memory controller
// simulator: System wraps one Controller per channel, translating
// ingress transactions into DRAM/PIM commands and driving the
// cycle-stepped timing engine in internal/.
package drampim

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the simulator's high-level error taxonomy.
type ErrorCode string

const (
	// ErrCodeConfigInvalid is fatal at construction: unknown memory
	// type, unknown queue structure, or inconsistent timing parameters.
	ErrCodeConfigInvalid ErrorCode = "config invalid"

	// ErrCodeQueueFull is recoverable: WillAccept returned false and
	// the caller should retry next tick.
	ErrCodeQueueFull ErrorCode = "queue full"

	// ErrCodeInvariantViolation is fatal: a command issued before its
	// bank allowed it, a PIM command missing during erase, an unexpected
	// command kind during PIM mode, or a reserved PIM row targeted
	// without dual-buffer. Construction via PanicInvariantViolation
	// panics -- these indicate implementation bugs, not recoverable
	// runtime conditions.
	ErrCodeInvariantViolation ErrorCode = "invariant violation"

	// ErrCodeDeadlineMiss is a warning, not a failure: a PIM burst
	// cannot meet its refresh deadline, the channel falls back to
	// ordinary traffic, and the burst resumes after refresh drains.
	ErrCodeDeadlineMiss ErrorCode = "deadline miss"
)

// Error is a structured simulator error carrying the DRAM coordinates
// that produced it.
type Error struct {
	Op      string // operation that failed (e.g. "AddTransaction", "NewSystem")
	Code    ErrorCode
	Channel int // -1 if not applicable
	Rank    int // -1 if not applicable
	Msg     string
	Inner   error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Channel >= 0 {
		parts = append(parts, fmt.Sprintf("channel=%d", e.Channel))
	}
	if e.Rank >= 0 {
		parts = append(parts, fmt.Sprintf("rank=%d", e.Rank))
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("drampim: %s (%s)", msg, strings.Join(parts, " "))
	}
	return fmt.Sprintf("drampim: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError builds a structured Error for the given operation and code.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Channel: -1, Rank: -1, Msg: msg}
}

// NewConfigError builds a fatal configuration error: unknown memory type,
// unknown queue structure, or an inconsistent timing parameter.
func NewConfigError(op, msg string) *Error {
	return NewError(op, ErrCodeConfigInvalid, msg)
}

// NewChannelError builds an error scoped to one channel.
func NewChannelError(op string, channel int, code ErrorCode, msg string) *Error {
	e := NewError(op, code, msg)
	e.Channel = channel
	return e
}

// PanicInvariantViolation panics with a structured invariant-violation
// error. Invariant violations abort the simulation: they indicate
// implementation bugs, never recoverable conditions. Call sites pass the
// channel/rank that observed the violation.
func PanicInvariantViolation(op string, channel, rank int, msg string) {
	e := NewError(op, ErrCodeInvariantViolation, msg)
	e.Channel = channel
	e.Rank = rank
	panic(e)
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
