package adv

// AD structure types carried in BLE advertising payloads.
const (
	// TypeManufacturerData is the Manufacturer Specific Data AD type.
	TypeManufacturerData = 0xFF
	// TypeServiceData16 is the Service Data - 16-bit UUID AD type.
	TypeServiceData16 = 0x16
)

// SwitchBot constants:
//   - Company ID in Manufacturer Data = 0x0969
//   - Service Data UUID (16-bit) = 0xFD3D
//
// SwitchBot often splits Manufacturer Data (ADV_IND) and Service Data (SCAN_RSP).
const (
	// CompanyID is the SwitchBot company identifier as transmitted
	// (little-endian in the manufacturer data value).
	CompanyID uint16 = 0x0969
	// ServiceUUID is the SwitchBot service data 16-bit UUID as transmitted
	// (little-endian in the service data value).
	ServiceUUID uint16 = 0xFD3D
)

// Fields holds the sub-fields extracted from one advertisement payload.
//
// Manufacturer and Service are borrowed views into the buffer passed to
// Extract; they are only valid until that buffer is reused.
type Fields struct {
	// Manufacturer is the full Manufacturer Specific Data value, company
	// identifier included.
	Manufacturer []byte
	// Service is the service data payload after the 16-bit UUID.
	Service []byte

	HasManufacturer bool
	HasService      bool
}

// Extract walks the AD structures in data and returns the SwitchBot-relevant
// fields. It stops at the first zero length field or at a length that would
// run past the end of the buffer; no error is reported for malformed input,
// extraction simply yields whatever was already found.
//
// If more than one Manufacturer Specific Data structure appears, the last one
// wins. Service data is only picked up when its leading 16-bit UUID matches
// ServiceUUID.
func Extract(data []byte) Fields {
	var fields Fields

	i := 0
	for i < len(data) {
		length := int(data[i])
		if length == 0 {
			break
		}
		// Need i + 1 + length <= len(data); otherwise malformed.
		if i+1+length > len(data) {
			break
		}

		typ := data[i+1]
		val := data[i+2 : i+1+length]

		switch typ {
		case TypeManufacturerData:
			if len(val) >= 2 {
				fields.Manufacturer = val
				fields.HasManufacturer = true
			}
		case TypeServiceData16:
			// UUID is little-endian in the payload.
			if len(val) >= 2 && uint16(val[0])|uint16(val[1])<<8 == ServiceUUID {
				fields.Service = val[2:]
				fields.HasService = true
			}
		}

		i += 1 + length
	}

	return fields
}

// IsVendorFragment reports whether mfg starts with the SwitchBot company
// identifier in little-endian order.
func IsVendorFragment(mfg []byte) bool {
	if len(mfg) < 2 {
		return false
	}
	return uint16(mfg[0])|uint16(mfg[1])<<8 == CompanyID
}
