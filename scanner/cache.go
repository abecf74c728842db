package scanner

import (
	"fmt"
	"sync"

	"github.com/sbkit/sbscan/adv"
)

const (
	// MaxDevices is the number of slots in the device cache. First-seen
	// devices occupy their slot for the life of the process; there is no
	// eviction.
	MaxDevices = 12

	// MaxFragmentLen is the largest fragment the cache stores, matching the
	// 31-byte legacy advertising payload limit. Longer fragments are
	// silently discarded on update.
	MaxFragmentLen = 31
)

// Addr is a 6-byte BLE hardware address, stored in wire order.
type Addr [6]byte

// String renders the address in human MAC order, most significant octet first.
func (a Addr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[5], a[4], a[3], a[2], a[1], a[0])
}

// DeviceRecord is the merged per-address state accumulated from advertisement
// events. Records obtained from cache snapshots are self-contained copies and
// stay valid after the cache moves on.
type DeviceRecord struct {
	Addr Addr
	RSSI int8

	inUse bool

	hasMfg bool
	mfgLen uint8
	mfg    [MaxFragmentLen]byte

	hasSvc bool
	svcLen uint8
	svc    [MaxFragmentLen]byte

	// deviceID is derived from mfg[6..7] when the fragment is long enough.
	deviceID    uint16
	hasDeviceID bool
}

// Manufacturer returns the stored manufacturer fragment, or nil if absent.
func (d *DeviceRecord) Manufacturer() []byte {
	if !d.hasMfg {
		return nil
	}
	return d.mfg[:d.mfgLen]
}

// Service returns the stored service fragment, or nil if absent.
func (d *DeviceRecord) Service() []byte {
	if !d.hasSvc {
		return nil
	}
	return d.svc[:d.svcLen]
}

// DeviceID returns the derived 16-bit device id and whether it is defined.
// The id is defined once a manufacturer fragment of at least 8 bytes has been
// seen; it is the big-endian value at fragment offset 6.
func (d *DeviceRecord) DeviceID() (uint16, bool) {
	return d.deviceID, d.hasDeviceID
}

// merged reports whether the record holds both fragments and the manufacturer
// fragment carries the SwitchBot company identifier.
func (d *DeviceRecord) merged() bool {
	return d.hasMfg && d.hasSvc && adv.IsVendorFragment(d.mfg[:d.mfgLen])
}

// refreshDeviceID rederives the device id from the manufacturer fragment.
// A fragment shorter than 8 bytes leaves the previous id untouched.
func (d *DeviceRecord) refreshDeviceID() {
	if d.hasMfg && d.mfgLen >= 8 {
		d.deviceID = uint16(d.mfg[6])<<8 | uint16(d.mfg[7])
		d.hasDeviceID = true
	}
}

// Cache is the fixed-capacity table of per-address merged state. One instance
// lives for the whole process; the zero value is not usable, use NewCache.
//
// All exported methods serialize through a single mutex. The radio event
// callback (producer) and the protocol dispatcher (consumer) may call into
// the cache concurrently without further coordination.
type Cache struct {
	mu     sync.Mutex
	slots  [MaxDevices]DeviceRecord
	latest int
}

// NewCache creates an empty device cache.
func NewCache() *Cache {
	return &Cache{latest: -1}
}

// ObserveOutcome describes what one advertisement event did to the cache.
type ObserveOutcome struct {
	// Dropped is set when the address was unseen and no free slot remained.
	Dropped bool
	// Merged is set when the slot is merged-valid after this event.
	Merged bool
	// Transitioned is set when this event moved the slot from not-merged to
	// merged. Used for observability only.
	Transitioned bool
	// Record is a copy of the slot taken under the lock, valid only when the
	// event was not dropped.
	Record DeviceRecord
}

// Observe merges one advertisement event into the cache: it finds or
// allocates the slot for addr, overwrites the signal strength and whichever
// fragments the event carried, and re-evaluates merge validity.
//
// When the cache is full and addr is unseen the event is dropped silently,
// matching the legacy behavior; Dropped is set so callers can log it.
func (c *Cache) Observe(addr Addr, rssi int8, fields adv.Fields) ObserveOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.findOrAlloc(addr)
	if idx < 0 {
		return ObserveOutcome{Dropped: true}
	}

	wasMerged := c.slots[idx].merged()

	c.update(idx, rssi, fields)
	merged := c.recomputeMerged(idx)

	return ObserveOutcome{
		Merged:       merged,
		Transitioned: merged && !wasMerged,
		Record:       c.slots[idx],
	}
}

// SnapshotLatest copies out the most recently merged record.
// It returns ErrNoData when no merge has happened yet.
func (c *Cache) SnapshotLatest() (DeviceRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest < 0 {
		return DeviceRecord{}, ErrNoData
	}

	return c.slots[c.latest], nil
}

// SnapshotByID copies out the first merged record whose derived device id
// equals id, scanning slots in ascending order. Slots that are free, not
// merged-valid, or without a defined id are skipped.
// It returns ErrDeviceNotFound on a miss.
func (c *Cache) SnapshotByID(id uint16) (DeviceRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		slot := &c.slots[i]
		if !slot.inUse || !slot.merged() {
			continue
		}
		slot.refreshDeviceID()
		if slot.hasDeviceID && slot.deviceID == id {
			return *slot, nil
		}
	}

	return DeviceRecord{}, ErrDeviceNotFound
}

// Len returns the number of allocated slots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for i := range c.slots {
		if c.slots[i].inUse {
			n++
		}
	}

	return n
}

// findOrAlloc returns the slot index for addr, claiming the first free slot
// for a previously unseen address. It returns -1 when the table is full.
// Caller must hold c.mu.
func (c *Cache) findOrAlloc(addr Addr) int {
	for i := range c.slots {
		if c.slots[i].inUse && c.slots[i].Addr == addr {
			return i
		}
	}
	for i := range c.slots {
		if !c.slots[i].inUse {
			c.slots[i] = DeviceRecord{inUse: true, Addr: addr}
			return i
		}
	}

	return -1
}

// update overwrites the signal strength and whichever fragments the event
// carried. Each fragment type is independently replaced by the latest
// observation; an oversize fragment leaves the stored one untouched.
// Caller must hold c.mu.
func (c *Cache) update(idx int, rssi int8, fields adv.Fields) {
	slot := &c.slots[idx]

	slot.RSSI = rssi

	if fields.HasManufacturer && len(fields.Manufacturer) <= MaxFragmentLen {
		slot.hasMfg = true
		slot.mfgLen = uint8(len(fields.Manufacturer))
		copy(slot.mfg[:], fields.Manufacturer)
	}
	if fields.HasService && len(fields.Service) <= MaxFragmentLen {
		slot.hasSvc = true
		slot.svcLen = uint8(len(fields.Service))
		copy(slot.svc[:], fields.Service)
	}
}

// recomputeMerged re-evaluates merge validity for the slot. When valid it
// rederives the device id and points latest at this slot unconditionally:
// "most recently completed", not "best". It returns the current validity.
// Caller must hold c.mu.
func (c *Cache) recomputeMerged(idx int) bool {
	slot := &c.slots[idx]
	if !slot.merged() {
		return false
	}

	slot.refreshDeviceID()
	c.latest = idx

	return true
}
