package adv

// AppendManufacturerData appends a Manufacturer Specific Data AD structure
// carrying the company identifier in little-endian order followed by data.
// Oversize values that cannot fit the one-byte length field are skipped.
func AppendManufacturerData(dst []byte, companyID uint16, data []byte) []byte {
	if 3+len(data) > 0xFF {
		return dst
	}

	dst = append(dst, byte(3+len(data)), TypeManufacturerData)
	dst = append(dst, byte(companyID), byte(companyID>>8))

	return append(dst, data...)
}

// AppendServiceData16 appends a Service Data - 16-bit UUID AD structure with
// the UUID in little-endian order followed by data.
func AppendServiceData16(dst []byte, uuid uint16, data []byte) []byte {
	if 3+len(data) > 0xFF {
		return dst
	}

	dst = append(dst, byte(3+len(data)), TypeServiceData16)
	dst = append(dst, byte(uuid), byte(uuid>>8))

	return append(dst, data...)
}
