package proto

// Request opcodes.
const (
	OpPing      = 0x01
	OpEcho      = 0x02
	OpBLEStart  = 0x10
	OpBLEStop   = 0x11
	OpLatest    = 0x12
	OpLatestFor = 0x13
)

// Reply status bytes.
const (
	StatusOK  = 0x00
	StatusErr = 0x01
)

// pongPayload is the fixed PING success payload.
var pongPayload = []byte{'P', 'O', 'N', 'G'}

// okReply builds a success reply with the given payload.
func okReply(payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	out[0] = StatusOK
	copy(out[1:], payload)

	return out
}

// errReply builds an error reply carrying a single error code byte.
func errReply(code StatusError) []byte {
	return []byte{StatusErr, code.Code()}
}
