// Package adv extracts vendor-specific fields from raw BLE advertisement payloads.
//
// An advertisement payload is a sequence of AD structures, each encoded as
// [length][type][value...]. The extractor walks that sequence and picks out
// the two structures SwitchBot devices broadcast their state in: Manufacturer
// Specific Data (type 0xFF) and Service Data with a 16-bit UUID (type 0x16).
//
// Extraction never fails: a malformed length field truncates the walk, and
// whatever was found up to that point is returned. The returned fields are
// views into the input buffer and must be copied out before the buffer is
// reused.
package adv
