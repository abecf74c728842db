package proto

import (
	"errors"
	"fmt"
)

// StatusError is a one-byte protocol error code, stable across calls. It is
// carried as the payload of an error reply and doubles as a Go error on the
// client side.
type StatusError byte

// Protocol error codes.
const (
	// ErrMalformedRequest indicates the request was not a byte sequence.
	ErrMalformedRequest StatusError = 0x10
	// ErrEmptyRequest indicates the request had no opcode byte.
	ErrEmptyRequest StatusError = 0x11
	// ErrUnknownOpcode indicates an opcode outside the dispatch table.
	ErrUnknownOpcode StatusError = 0x12
	// ErrInitFailed indicates the one-time radio stack bring-up failed.
	ErrInitFailed StatusError = 0x30
	// ErrStopNotStarted indicates BLE_STOP before BLE_START.
	ErrStopNotStarted StatusError = 0x32
	// ErrNotStarted indicates a data or scan operation before BLE_START.
	ErrNotStarted StatusError = 0x40
	// ErrNoData indicates LATEST with no merged record yet.
	ErrNoData StatusError = 0x41
	// ErrShortPayload indicates LATEST_FOR without its 2-byte id.
	ErrShortPayload StatusError = 0x42
	// ErrNotFound indicates LATEST_FOR missed every merged record.
	ErrNotFound StatusError = 0x43
)

func (e StatusError) Error() string {
	switch e {
	case ErrMalformedRequest:
		return "malformed request"
	case ErrEmptyRequest:
		return "empty request"
	case ErrUnknownOpcode:
		return "unknown opcode"
	case ErrInitFailed:
		return "radio stack initialization failed"
	case ErrStopNotStarted:
		return "stop requested before start"
	case ErrNotStarted:
		return "subsystem not started"
	case ErrNoData:
		return "no merged advertisement observed yet"
	case ErrShortPayload:
		return "request payload too short"
	case ErrNotFound:
		return "device not found"
	default:
		return fmt.Sprintf("protocol error 0x%02x", byte(e))
	}
}

// Code returns the wire representation of the error.
func (e StatusError) Code() byte {
	return byte(e)
}

var (
	// ErrShortReply indicates a reply frame without a status byte.
	ErrShortReply = errors.New("reply too short")

	// ErrBadRecord indicates a merged-record payload that does not match its
	// own length fields.
	ErrBadRecord = errors.New("malformed merged-record payload")

	// ErrFrameTooLarge indicates a frame exceeding the 16-bit length prefix.
	ErrFrameTooLarge = errors.New("frame exceeds maximum frame size")

	// ErrUnexpectedReply indicates a success reply whose payload does not
	// match what the opcode promises.
	ErrUnexpectedReply = errors.New("unexpected reply payload")

	// ErrServerClosed indicates the server has been shut down.
	ErrServerClosed = errors.New("server closed")
)
