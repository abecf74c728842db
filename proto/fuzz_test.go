package proto

import (
	"testing"

	"github.com/sbkit/sbscan/scanner"
)

// FuzzDispatcherHandle fuzzes the request decoder with arbitrary requests.
//
// The invariant is: Handle must never panic, and every reply must carry a
// valid status byte, with exactly one error code byte on the error path.
func FuzzDispatcherHandle(f *testing.F) {
	f.Add([]byte{OpPing})
	f.Add([]byte{OpEcho, 0x01, 0x02})
	f.Add([]byte{OpLatest})
	f.Add([]byte{OpLatestFor, 0x80, 0x06})
	f.Add([]byte{OpLatestFor, 0x80})
	f.Add([]byte{0xFF, 0xFF})
	f.Add([]byte{})

	radio := scanner.NewMockRadio()
	s, err := scanner.New(radio, nil)
	if err != nil {
		f.Fatal(err)
	}
	radio.On("Bringup", s).Return(nil).Maybe()
	radio.On("Scan", scanner.DefaultScanParams).Return(nil).Maybe()
	radio.On("CancelScan").Return(nil).Maybe()

	d := NewDispatcher(s, nil)

	f.Fuzz(func(t *testing.T, req []byte) {
		reply := d.Handle(req)

		if len(reply) < 1 {
			t.Fatalf("reply without status byte")
		}
		switch reply[0] {
		case StatusOK:
		case StatusErr:
			if len(reply) != 2 {
				t.Fatalf("error reply must carry exactly one code byte, got %d", len(reply)-1)
			}
		default:
			t.Fatalf("invalid status byte 0x%02x", reply[0])
		}
	})
}

// FuzzDecodeRecord fuzzes the merged-record decoder. It must never panic and
// never return views escaping the input.
func FuzzDecodeRecord(f *testing.F) {
	f.Add([]byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0xCE, 0x01, 0x54, 0x02, 0x69, 0x09})
	f.Add([]byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0xCE, 0x00, 0x00})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := DecodeRecord(data)
		if err != nil {
			return
		}
		if len(rec.Service) > len(data) || len(rec.Manufacturer) > len(data) {
			t.Fatalf("decoded views larger than input")
		}
	})
}
