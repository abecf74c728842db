// Package bluez implements the scanner's Radio interface on top of the BlueZ
// D-Bus API.
//
// Bring-up connects to the system bus, powers the adapter, and subscribes to
// the ObjectManager and Properties signals that BlueZ emits for discovered
// devices. Advertisement data arrives as Device1 properties (Address, RSSI,
// ManufacturerData, ServiceData); the backend re-encodes them into a raw AD
// payload so that the scanner's extractor stays the single parsing path.
//
// BlueZ owns the actual LE scan interval and window, so those ScanParams
// fields are advisory here; duplicate filtering maps onto the discovery
// filter's DuplicateData option.
package bluez
