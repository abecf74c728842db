// Package sensor decodes merged SwitchBot service fragments into typed sensor
// readings.
//
// It is a consumer of the scanner's wire contract, not part of the scan
// engine: the engine only guarantees faithful delivery of the raw fragments,
// and this package maps the service fragment's leading model discriminator
// onto a closed set of reading shapes with fixed bit-field offsets. A fragment
// with a known model but too few bytes decodes to ErrTruncated, an unknown
// model to ErrUnknownModel.
package sensor
