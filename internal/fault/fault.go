// Package fault defines the error taxonomy shared by the codecs and the
// command dispatcher.
package fault

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every codec failure wraps exactly one of these.
var (
	ErrFormat     = errors.New("format error")
	ErrRange      = errors.New("range error")
	ErrValidation = errors.New("validation error")
	ErrOutOfData  = errors.New("out of data")
	ErrProtocol   = errors.New("protocol error")
)

// UnknownOpcodeError is returned when a property block contains an opcode
// the active flag table does not define.
type UnknownOpcodeError struct {
	Opcode byte
	Table  string
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X for %s", e.Opcode, e.Table)
}

// Unwrap makes UnknownOpcodeError match ErrFormat.
func (e *UnknownOpcodeError) Unwrap() error {
	return ErrFormat
}

// Formatf returns an ErrFormat-wrapped error.
func Formatf(format string, args ...any) error {
	return wrap(ErrFormat, format, args)
}

// Rangef returns an ErrRange-wrapped error.
func Rangef(format string, args ...any) error {
	return wrap(ErrRange, format, args)
}

// Validationf returns an ErrValidation-wrapped error.
func Validationf(format string, args ...any) error {
	return wrap(ErrValidation, format, args)
}

// OutOfDataf returns an ErrOutOfData-wrapped error.
func OutOfDataf(format string, args ...any) error {
	return wrap(ErrOutOfData, format, args)
}

// Protocolf returns an ErrProtocol-wrapped error.
func Protocolf(format string, args ...any) error {
	return wrap(ErrProtocol, format, args)
}

func wrap(kind error, format string, args []any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Name returns the taxonomy name of err, used as the source field of log
// notifications. Errors outside the taxonomy are reported as "Error".
func Name(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "FormatError"
	case errors.Is(err, ErrRange):
		return "RangeError"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrOutOfData):
		return "OutOfData"
	case errors.Is(err, ErrProtocol):
		return "ProtocolError"
	default:
		return "Error"
	}
}
