// Package scanner implements the scan/merge/cache engine at the heart of sbscan.
//
// A radio backend (see the Radio interface) delivers advertisement events to a
// Scanner. Each event is decoded by the adv package and merged into a fixed
// capacity device cache keyed by hardware address: SwitchBot devices split
// their state across a Manufacturer Specific Data structure in the ADV_IND
// frame and a Service Data structure in the SCAN_RSP frame, so the two
// fragments of one device usually arrive in separate events.
//
// A cache entry is considered merged once both fragments are present and the
// manufacturer fragment carries the SwitchBot company identifier. The cache
// tracks the most recently merged entry, and supports lookup by the 16-bit
// device id derived from the manufacturer fragment.
//
// The radio event callback and protocol request handling race freely; the
// cache serializes them with a single mutex, and snapshots copy whole records
// under that mutex so readers observe a consistent cross-field view.
package scanner
