package proto

import (
	"sync"

	"github.com/sbkit/sbscan/logger"
	"github.com/sbkit/sbscan/scanner"
)

// Dispatcher decodes opcode-tagged requests, drives the scanner, and encodes
// replies. It is transport agnostic: Handle processes exactly one request per
// call and never panics on adversarial input.
//
// The radio stack is brought up lazily on the first BLE_START; data and scan
// operations before that point are rejected with ErrNotStarted.
type Dispatcher struct {
	mu      sync.Mutex
	started bool

	scanner *scanner.Scanner
	logger  logger.Logger
}

// NewDispatcher creates a Dispatcher over the given scanner.
func NewDispatcher(s *scanner.Scanner, l logger.Logger) *Dispatcher {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Dispatcher{scanner: s, logger: l}
}

// Started reports whether the radio stack has been brought up.
func (d *Dispatcher) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

// Handle processes one request and returns the reply. Every failure is local
// to the request that triggered it; nothing here terminates the scan loop.
func (d *Dispatcher) Handle(req []byte) []byte {
	if req == nil {
		return errReply(ErrMalformedRequest)
	}
	if len(req) < 1 {
		return errReply(ErrEmptyRequest)
	}

	opcode := req[0]
	payload := req[1:]

	switch opcode {
	case OpPing:
		return okReply(pongPayload)

	case OpEcho:
		return okReply(payload)

	case OpBLEStart:
		return d.handleStart()

	case OpBLEStop:
		return d.handleStop()

	case OpLatest:
		return d.handleLatest()

	case OpLatestFor:
		return d.handleLatestFor(payload)

	default:
		d.logger.Debug("unknown opcode", "opcode", opcode)
		return errReply(ErrUnknownOpcode)
	}
}

func (d *Dispatcher) handleStart() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		if err := d.scanner.Bringup(); err != nil {
			d.logger.Error("radio bring-up failed", "error", err)
			return errReply(ErrInitFailed)
		}
		d.started = true
		// The first scan starts from the radio's ready callback.
	} else {
		// Restart path: the stack is already up, re-issue the scan directly.
		if err := d.scanner.Start(); err != nil {
			d.logger.Warn("scan restart failed", "error", err)
		}
	}

	return okReply([]byte{0x01})
}

func (d *Dispatcher) handleStop() []byte {
	if !d.Started() {
		return errReply(ErrStopNotStarted)
	}

	if err := d.scanner.Stop(); err != nil {
		d.logger.Warn("scan stop failed", "error", err)
	}

	return okReply([]byte{0x01})
}

func (d *Dispatcher) handleLatest() []byte {
	if !d.Started() {
		return errReply(ErrNotStarted)
	}

	rec, err := d.scanner.Cache().SnapshotLatest()
	if err != nil {
		return errReply(ErrNoData)
	}

	return okReply(EncodeRecord(&rec))
}

func (d *Dispatcher) handleLatestFor(payload []byte) []byte {
	if !d.Started() {
		return errReply(ErrNotStarted)
	}
	if len(payload) < 2 {
		return errReply(ErrShortPayload)
	}

	id := uint16(payload[0])<<8 | uint16(payload[1])

	rec, err := d.scanner.Cache().SnapshotByID(id)
	if err != nil {
		return errReply(ErrNotFound)
	}

	return okReply(EncodeRecord(&rec))
}
