package scanner

import "errors"

var (
	// ErrNoData indicates that no merged advertisement has been observed yet.
	ErrNoData = errors.New("no merged advertisement observed yet")

	// ErrDeviceNotFound indicates that no merged cache entry matches the
	// requested device id.
	ErrDeviceNotFound = errors.New("no merged device with the requested id")

	// ErrRadioNil indicates that a Scanner was constructed without a radio backend.
	ErrRadioNil = errors.New("radio backend is nil")
)
