package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbkit/sbscan/adv"
)

func testAddr(b byte) Addr {
	return Addr{b, b, b, b, b, b}
}

func mfgFields(mfg []byte) adv.Fields {
	return adv.Fields{Manufacturer: mfg, HasManufacturer: true}
}

func svcFields(svc []byte) adv.Fields {
	return adv.Fields{Service: svc, HasService: true}
}

func bothFields(mfg, svc []byte) adv.Fields {
	return adv.Fields{
		Manufacturer:    mfg,
		HasManufacturer: true,
		Service:         svc,
		HasService:      true,
	}
}

// vendorMfg is the worked SwitchBot manufacturer fragment: company id 0x0969
// little-endian, device id 0x8006 big-endian at offset 6.
var vendorMfg = []byte{0x69, 0x09, 0x00, 0x00, 0x00, 0x00, 0x80, 0x06}

func TestCache_FindOrAllocIdempotent(t *testing.T) {
	c := NewCache()

	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.findOrAlloc(testAddr(1))
	require.GreaterOrEqual(t, first, 0)

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.findOrAlloc(testAddr(1)))
	}

	second := c.findOrAlloc(testAddr(2))
	require.GreaterOrEqual(t, second, 0)
	assert.NotEqual(t, first, second)
}

func TestCache_CapacityExceeded(t *testing.T) {
	c := NewCache()

	for i := 0; i < MaxDevices; i++ {
		outcome := c.Observe(testAddr(byte(i)), -40, mfgFields(vendorMfg))
		require.False(t, outcome.Dropped, "slot %d should allocate", i)
	}
	require.Equal(t, MaxDevices, c.Len())

	// The 13th distinct address is dropped silently.
	outcome := c.Observe(testAddr(0xFF), -40, mfgFields(vendorMfg))
	assert.True(t, outcome.Dropped)
	assert.Equal(t, MaxDevices, c.Len())

	// The existing slots are untouched and still reachable.
	for i := 0; i < MaxDevices; i++ {
		outcome := c.Observe(testAddr(byte(i)), -41, svcFields([]byte{0x54, 0x64, 0x32}))
		require.False(t, outcome.Dropped)
		assert.Equal(t, testAddr(byte(i)), outcome.Record.Addr)
	}
}

func TestCache_MergeArrivalOrders(t *testing.T) {
	svc := []byte{0x54, 0x64, 0x32}

	tests := []struct {
		description string
		events      []adv.Fields
	}{
		{
			description: "manufacturer first",
			events:      []adv.Fields{mfgFields(vendorMfg), svcFields(svc)},
		},
		{
			description: "service first",
			events:      []adv.Fields{svcFields(svc), mfgFields(vendorMfg)},
		},
		{
			description: "both in one event",
			events:      []adv.Fields{bothFields(vendorMfg, svc)},
		},
		{
			description: "interleaved with repeats",
			events: []adv.Fields{
				svcFields(svc),
				svcFields(svc),
				mfgFields(vendorMfg),
				mfgFields(vendorMfg),
			},
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			c := NewCache()

			var last ObserveOutcome
			transitions := 0
			for _, fields := range test.events {
				last = c.Observe(testAddr(7), -55, fields)
				require.False(t, last.Dropped)
				if last.Transitioned {
					transitions++
				}
			}

			assert.True(t, last.Merged)
			assert.Equal(t, 1, transitions, "exactly one not-merged to merged transition")

			id, ok := last.Record.DeviceID()
			require.True(t, ok)
			assert.Equal(t, uint16(0x8006), id)
		})
	}
}

func TestCache_MergeRequiresVendorID(t *testing.T) {
	c := NewCache()

	// Both fragments present, but the manufacturer data is not SwitchBot's.
	foreign := []byte{0x4C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80, 0x06}
	outcome := c.Observe(testAddr(3), -50, bothFields(foreign, []byte{0x54, 0x64, 0x32}))
	require.False(t, outcome.Dropped)
	assert.False(t, outcome.Merged)

	_, err := c.SnapshotLatest()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCache_DeviceIDDefinition(t *testing.T) {
	tests := []struct {
		description string
		mfg         []byte
		expectedID  uint16
		defined     bool
	}{
		{
			description: "eight byte fragment defines the id",
			mfg:         vendorMfg,
			expectedID:  0x8006,
			defined:     true,
		},
		{
			description: "seven byte fragment leaves the id undefined",
			mfg:         []byte{0x69, 0x09, 0x00, 0x00, 0x00, 0x00, 0x80},
			defined:     false,
		},
		{
			description: "id bytes are big-endian at offset 6",
			mfg:         []byte{0x69, 0x09, 0, 0, 0, 0, 0x12, 0x34, 0xFF},
			expectedID:  0x1234,
			defined:     true,
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			c := NewCache()
			outcome := c.Observe(testAddr(9), -60, bothFields(test.mfg, []byte{0x54}))
			require.False(t, outcome.Dropped)

			id, ok := outcome.Record.DeviceID()
			assert.Equal(t, test.defined, ok)
			if test.defined {
				assert.Equal(t, test.expectedID, id)
			}
		})
	}
}

func TestCache_OversizeFragmentDiscarded(t *testing.T) {
	c := NewCache()

	outcome := c.Observe(testAddr(4), -45, bothFields(vendorMfg, []byte{0x54, 0x64, 0x32}))
	require.True(t, outcome.Merged)

	oversize := make([]byte, MaxFragmentLen+1)
	oversize[0] = 0x69
	oversize[1] = 0x09

	// The oversize manufacturer fragment is discarded, rssi still updates.
	outcome = c.Observe(testAddr(4), -70, mfgFields(oversize))
	require.False(t, outcome.Dropped)
	assert.Equal(t, vendorMfg, outcome.Record.Manufacturer())
	assert.Equal(t, int8(-70), outcome.Record.RSSI)
	assert.True(t, outcome.Merged)

	// A 31-byte fragment is right at the limit and is stored.
	limit := make([]byte, MaxFragmentLen)
	limit[0] = 0x69
	limit[1] = 0x09
	outcome = c.Observe(testAddr(4), -70, mfgFields(limit))
	assert.Equal(t, limit, outcome.Record.Manufacturer())
}

func TestCache_FragmentsOverwrittenIndependently(t *testing.T) {
	c := NewCache()

	c.Observe(testAddr(5), -40, svcFields([]byte{0x54, 0x64, 0x32}))
	c.Observe(testAddr(5), -42, mfgFields(vendorMfg))

	// A later service-only event replaces the service fragment but leaves the
	// manufacturer fragment alone.
	outcome := c.Observe(testAddr(5), -44, svcFields([]byte{0x54, 0x10, 0x00}))
	assert.Equal(t, []byte{0x54, 0x10, 0x00}, outcome.Record.Service())
	assert.Equal(t, vendorMfg, outcome.Record.Manufacturer())
	assert.True(t, outcome.Merged)
}

func TestCache_SnapshotLatest(t *testing.T) {
	c := NewCache()

	_, err := c.SnapshotLatest()
	assert.ErrorIs(t, err, ErrNoData)

	c.Observe(testAddr(1), -40, bothFields(vendorMfg, []byte{0x54, 0x64, 0x32}))
	rec, err := c.SnapshotLatest()
	require.NoError(t, err)
	assert.Equal(t, testAddr(1), rec.Addr)

	// "Most recently completed" semantics: a second device that merges later
	// takes over latest unconditionally, even at worse signal strength.
	otherMfg := []byte{0x69, 0x09, 0x00, 0x00, 0x00, 0x00, 0x11, 0x22}
	c.Observe(testAddr(2), -90, bothFields(otherMfg, []byte{0x64, 0x01}))
	rec, err = c.SnapshotLatest()
	require.NoError(t, err)
	assert.Equal(t, testAddr(2), rec.Addr)

	// Re-merging the first device moves latest back.
	c.Observe(testAddr(1), -40, svcFields([]byte{0x54, 0x64, 0x33}))
	rec, err = c.SnapshotLatest()
	require.NoError(t, err)
	assert.Equal(t, testAddr(1), rec.Addr)
}

func TestCache_SnapshotByID(t *testing.T) {
	c := NewCache()

	_, err := c.SnapshotByID(0x8006)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	// Slot 0: merged but different id. Slot 1: not merged (service only).
	// Slot 2: the one we want.
	c.Observe(testAddr(1), -40, bothFields([]byte{0x69, 0x09, 0, 0, 0, 0, 0x11, 0x22}, []byte{0x64}))
	c.Observe(testAddr(2), -40, svcFields([]byte{0x54, 0x64, 0x32}))
	c.Observe(testAddr(3), -40, bothFields(vendorMfg, []byte{0x54, 0x64, 0x32}))

	rec, err := c.SnapshotByID(0x8006)
	require.NoError(t, err)
	assert.Equal(t, testAddr(3), rec.Addr)

	rec, err = c.SnapshotByID(0x1122)
	require.NoError(t, err)
	assert.Equal(t, testAddr(1), rec.Addr)

	_, err = c.SnapshotByID(0xDEAD)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestCache_SnapshotIsCopy(t *testing.T) {
	c := NewCache()

	c.Observe(testAddr(6), -40, bothFields(vendorMfg, []byte{0x54, 0x64, 0x32}))
	rec, err := c.SnapshotLatest()
	require.NoError(t, err)

	// Mutating the cache after the snapshot must not show through.
	c.Observe(testAddr(6), -80, svcFields([]byte{0x54, 0x00, 0x00}))
	assert.Equal(t, int8(-40), rec.RSSI)
	assert.Equal(t, []byte{0x54, 0x64, 0x32}, rec.Service())
}
