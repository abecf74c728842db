package proto

import (
	"github.com/sbkit/sbscan/scanner"
)

// Record is the wire form of a merged device record:
//
//	addr(6) ++ rssi(1, signed) ++ svcLen(1) ++ svc ++ mfgLen(1) ++ mfg
type Record struct {
	Addr         scanner.Addr
	RSSI         int8
	Service      []byte
	Manufacturer []byte
}

// EncodeRecord encodes a cache snapshot into its wire form.
func EncodeRecord(rec *scanner.DeviceRecord) []byte {
	svc := rec.Service()
	mfg := rec.Manufacturer()

	out := make([]byte, 0, 6+1+1+len(svc)+1+len(mfg))
	out = append(out, rec.Addr[:]...)
	out = append(out, byte(rec.RSSI))
	out = append(out, byte(len(svc)))
	out = append(out, svc...)
	out = append(out, byte(len(mfg)))
	out = append(out, mfg...)

	return out
}

// DecodeRecord parses the wire form of a merged device record.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record

	if len(data) < 6+1+1 {
		return rec, ErrBadRecord
	}

	copy(rec.Addr[:], data[:6])
	rec.RSSI = int8(data[6])

	pos := 7
	svcLen := int(data[pos])
	pos++
	if pos+svcLen+1 > len(data) {
		return Record{}, ErrBadRecord
	}
	rec.Service = data[pos : pos+svcLen]
	pos += svcLen

	mfgLen := int(data[pos])
	pos++
	if pos+mfgLen != len(data) {
		return Record{}, ErrBadRecord
	}
	rec.Manufacturer = data[pos:]

	return rec, nil
}
