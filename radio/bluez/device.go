package bluez

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/sbkit/sbscan/adv"
	"github.com/sbkit/sbscan/scanner"
)

// deviceState is what the backend remembers about a Device1 object. BlueZ
// sends PropertiesChanged deltas, so a data-only update reuses the last RSSI
// it reported.
type deviceState struct {
	addr scanner.Addr
	rssi int8
}

// parseMAC converts a colon-separated BlueZ address string into the
// little-endian byte order used everywhere else.
func parseMAC(s string) (scanner.Addr, error) {
	var addr scanner.Addr

	parts := strings.Split(s, ":")
	if len(parts) != len(addr) {
		return addr, fmt.Errorf("bluez: malformed address %q", s)
	}

	for i, part := range parts {
		octet, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return addr, fmt.Errorf("bluez: malformed address %q: %w", s, err)
		}
		addr[len(addr)-1-i] = byte(octet)
	}

	return addr, nil
}

// synthesizePayload re-encodes the advertisement-bearing Device1 properties
// into a raw AD payload. Only the vendor company id and the 0xFD3D service
// UUID are carried over; other entries belong to devices the scanner does
// not track.
func synthesizePayload(props map[string]dbus.Variant) []byte {
	var payload []byte

	if variant, ok := props["ManufacturerData"]; ok {
		if mfg, ok := variant.Value().(map[uint16]dbus.Variant); ok {
			if data, ok := mfg[adv.CompanyID]; ok {
				if raw, ok := data.Value().([]byte); ok {
					payload = adv.AppendManufacturerData(payload, adv.CompanyID, raw)
				}
			}
		}
	}

	if variant, ok := props["ServiceData"]; ok {
		if svc, ok := variant.Value().(map[string]dbus.Variant); ok {
			for uuid, data := range svc {
				parsed, ok := parseUUID16(uuid)
				if !ok || parsed != adv.ServiceUUID {
					continue
				}
				if raw, ok := data.Value().([]byte); ok {
					payload = adv.AppendServiceData16(payload, adv.ServiceUUID, raw)
				}
			}
		}
	}

	return payload
}

// parseUUID16 extracts the 16-bit alias from a full 128-bit Bluetooth base
// UUID string, e.g. "0000fd3d-0000-1000-8000-00805f9b34fb" -> 0xFD3D.
func parseUUID16(s string) (uint16, bool) {
	if len(s) != 36 || !strings.HasPrefix(s, "0000") {
		return 0, false
	}
	if !strings.HasSuffix(s, "-0000-1000-8000-00805f9b34fb") {
		return 0, false
	}

	v, err := strconv.ParseUint(s[4:8], 16, 16)
	if err != nil {
		return 0, false
	}

	return uint16(v), true
}

// extractRSSI pulls the RSSI property out of a Device1 property map. BlueZ
// reports it as an int16.
func extractRSSI(props map[string]dbus.Variant) (int8, bool) {
	variant, ok := props["RSSI"]
	if !ok {
		return 0, false
	}
	v, ok := variant.Value().(int16)
	if !ok {
		return 0, false
	}

	return int8(v), true
}
