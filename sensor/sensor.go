package sensor

import (
	"errors"
	"fmt"
)

// Model discriminators carried in the first service-fragment byte. The top
// bit of that byte is a status flag on some models and is masked off before
// comparison.
const (
	ModelBot     = 0x48 // 'H'
	ModelMeter   = 0x54 // 'T'
	ModelContact = 0x64 // 'd'
	ModelMotion  = 0x73 // 's'
)

var (
	// ErrUnknownModel indicates a service fragment whose model discriminator
	// is outside the recognized set.
	ErrUnknownModel = errors.New("unrecognized sensor model")

	// ErrTruncated indicates a recognized model whose fragment is too short
	// for its fixed field layout.
	ErrTruncated = errors.New("service fragment too short for model")
)

// Reading is one decoded sensor state.
type Reading interface {
	// Model returns the masked model discriminator the reading was decoded from.
	Model() byte
}

// Meter is a temperature/humidity sensor reading.
type Meter struct {
	Battery     int     // percent
	Temperature float64 // Celsius
	Humidity    int     // percent
}

func (Meter) Model() byte { return ModelMeter }

// Bot is a press/switch actuator state.
type Bot struct {
	Battery int
	On      bool
}

func (Bot) Model() byte { return ModelBot }

// Motion is a PIR sensor reading.
type Motion struct {
	Battery  int
	Detected bool
}

func (Motion) Model() byte { return ModelMotion }

// Contact is a door/window sensor reading.
type Contact struct {
	Battery        int
	Open           bool
	MotionDetected bool
}

func (Contact) Model() byte { return ModelContact }

// Fixed field layout, offsets into the service fragment:
//
//	svc[0]  model discriminator (bit 7: model-specific flag)
//	svc[1]  battery percentage (bit 7 reserved)
//	svc[2+] model specific
const (
	meterLen   = 5
	botLen     = 2
	motionLen  = 3
	contactLen = 4
)

// Decode maps a service fragment onto its reading shape.
func Decode(svc []byte) (Reading, error) {
	if len(svc) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(svc))
	}

	model := svc[0] & 0x7F
	battery := int(svc[1] & 0x7F)

	switch model {
	case ModelMeter:
		if len(svc) < meterLen {
			return nil, fmt.Errorf("%w: meter needs %d bytes, got %d", ErrTruncated, meterLen, len(svc))
		}
		// svc[3] bit 7 is the sign, low bits the integer part; svc[2] low
		// nibble is tenths; svc[4] low bits the humidity.
		temp := float64(svc[3]&0x7F) + float64(svc[2]&0x0F)/10
		if svc[3]&0x80 == 0 {
			temp = -temp
		}
		return Meter{
			Battery:     battery,
			Temperature: temp,
			Humidity:    int(svc[4] & 0x7F),
		}, nil

	case ModelBot:
		if len(svc) < botLen {
			return nil, fmt.Errorf("%w: bot needs %d bytes, got %d", ErrTruncated, botLen, len(svc))
		}
		return Bot{
			Battery: battery,
			On:      svc[0]&0x80 != 0,
		}, nil

	case ModelMotion:
		if len(svc) < motionLen {
			return nil, fmt.Errorf("%w: motion needs %d bytes, got %d", ErrTruncated, motionLen, len(svc))
		}
		return Motion{
			Battery:  battery,
			Detected: svc[2]&0x40 != 0,
		}, nil

	case ModelContact:
		if len(svc) < contactLen {
			return nil, fmt.Errorf("%w: contact needs %d bytes, got %d", ErrTruncated, contactLen, len(svc))
		}
		return Contact{
			Battery:        battery,
			Open:           svc[3]&0x02 != 0,
			MotionDetected: svc[3]&0x80 != 0,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %#02x", ErrUnknownModel, model)
	}
}
