package fngen

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneric is the catch-all failure. Every other error wraps it.
	ErrGeneric = errors.New("function generator error")

	// ErrInvalidArgument reports a setting outside the device limits.
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", ErrGeneric)

	// ErrUnknownSignal reports an unknown signal type or preset index.
	ErrUnknownSignal = fmt.Errorf("%w: unknown signal", ErrGeneric)

	// ErrUnknownPreset reports a preset index outside the table.
	ErrUnknownPreset = fmt.Errorf("%w: preset index out of range", ErrUnknownSignal)

	// ErrCreate reports that the timer or the output could not be acquired.
	ErrCreate = fmt.Errorf("%w: cannot create generator", ErrGeneric)
)

// Numeric result codes reported over the wire.
const (
	CodeNone          int32 = 0
	CodeErr           int32 = -1
	CodeUnknownSignal int32 = -2
	CodeCreate        int32 = -3
)

// Code maps err to its numeric result code.
func Code(err error) int32 {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrUnknownSignal):
		return CodeUnknownSignal
	case errors.Is(err, ErrCreate):
		return CodeCreate
	default:
		return CodeErr
	}
}

// CodeError is the inverse of Code: it returns the sentinel for a numeric
// result code, or nil for CodeNone.
func CodeError(code int32) error {
	switch code {
	case CodeNone:
		return nil
	case CodeUnknownSignal:
		return ErrUnknownSignal
	case CodeCreate:
		return ErrCreate
	default:
		return ErrGeneric
	}
}
