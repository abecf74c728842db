package proto

import (
	"encoding/binary"
	"io"
)

// MaxFrameSize is the largest request or reply frame the transport carries,
// bounded by the 2-byte length prefix.
const MaxFrameSize = 0xFFFF

// readFrame reads one length-prefixed frame. A zero-length frame is valid and
// yields an empty (non-nil) slice, so that empty requests still reach the
// dispatcher and earn their ErrEmptyRequest reply.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	frameLen := binary.BigEndian.Uint16(lenBuf[:])
	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}

	return frame, nil
}

// writeFrame writes one length-prefixed frame.
func writeFrame(w io.Writer, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}

	return nil
}
