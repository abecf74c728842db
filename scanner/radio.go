package scanner

import "sync/atomic"

// ScanParams are the discovery parameters handed to the radio backend.
// They are fixed for the life of the process; sbscan always scans actively,
// continuously, and without duplicate filtering so that ADV_IND and SCAN_RSP
// fragments keep flowing for already-known devices.
type ScanParams struct {
	// Interval and Window are in 0.625 ms units, as in the HCI LE scan
	// parameters.
	Interval uint16
	Window   uint16

	Active           bool
	FilterDuplicates bool
}

// DefaultScanParams matches the parameters the ESP32 deployment uses.
var DefaultScanParams = ScanParams{
	Interval: 0x0010,
	Window:   0x0010,
	Active:   true,
}

// Advertisement is one observed broadcast frame. Data is the raw AD structure
// payload and is only valid for the duration of the callback; the cache
// copies out whatever it keeps.
type Advertisement struct {
	Addr Addr
	RSSI int8
	Data []byte
}

// Events is the callback surface a radio backend drives. The Scanner
// implements it. Callbacks may arrive on any goroutine with no ordering
// guarantee relative to protocol request handling.
type Events interface {
	// OnAdvertisement is invoked once per observed broadcast frame.
	OnAdvertisement(a Advertisement)
	// OnScanComplete is invoked when a discovery run ends for any reason
	// other than an explicit cancel issued through this process.
	OnScanComplete()
	// OnReady is invoked once, when the radio stack has resolved its own
	// address and is able to scan.
	OnReady()
}

// Radio abstracts the underlying radio stack. Implementations deliver events
// through the Events handler registered at bring-up.
type Radio interface {
	// Bringup performs the one-time stack initialization and registers the
	// event handler. It must be called before Scan or CancelScan.
	Bringup(ev Events) error
	// Scan issues a continuous discovery request with the given parameters.
	Scan(params ScanParams) error
	// CancelScan cancels an in-flight discovery request.
	CancelScan() error
}

// ScanState represents the scan controller state.
type ScanState uint32

const (
	// Idle indicates no discovery request is outstanding.
	Idle ScanState = iota
	// Scanning indicates a continuous discovery request has been issued.
	Scanning
)

// String returns the string representation of the current state.
func (s ScanState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// AtomicScanState is a lock-free holder for the scan controller state.
type AtomicScanState struct {
	state atomic.Uint32
}

// Get returns the current state.
func (st *AtomicScanState) Get() ScanState {
	return ScanState(st.state.Load())
}

// Set sets the current state.
func (st *AtomicScanState) Set(state ScanState) {
	st.state.Store(uint32(state))
}

// IsScanning reports whether the state is Scanning.
func (st *AtomicScanState) IsScanning() bool {
	return st.Get() == Scanning
}
