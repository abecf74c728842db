package publish

import "errors"

var (
	// ErrConnectFailed indicates the initial broker connection did not come up.
	ErrConnectFailed = errors.New("mqtt connect failed")

	// ErrNotConnected indicates a publish attempt while the broker connection
	// is down.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrPublishFailed indicates the broker did not accept a message in time.
	ErrPublishFailed = errors.New("mqtt publish failed")
)
