package bluez

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/sbkit/sbscan/logger"
	"github.com/sbkit/sbscan/scanner"
)

const (
	bluezBus = "org.bluez"

	adapterInterface = "org.bluez.Adapter1"
	deviceInterface  = "org.bluez.Device1"

	signalInterfacesAdded   = "org.freedesktop.DBus.ObjectManager.InterfacesAdded"
	signalPropertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"

	errInProgress    = "org.bluez.Error.InProgress"
	errUnknownObject = "org.freedesktop.DBus.Error.UnknownObject"
)

var (
	// ErrAdapterNotFound indicates the configured adapter does not exist on
	// the bus.
	ErrAdapterNotFound = errors.New("bluez: adapter does not exist")

	// ErrNotBroughtUp indicates Scan or CancelScan before Bringup.
	ErrNotBroughtUp = errors.New("bluez: radio not brought up")
)

// Radio drives BLE discovery through BlueZ. It implements scanner.Radio.
type Radio struct {
	adapterID string
	logger    logger.Logger

	bus     *dbus.Conn
	adapter dbus.BusObject
	events  scanner.Events

	sigCh chan *dbus.Signal

	// devices maps Device1 object paths to their parsed address and last
	// seen signal strength, so PropertiesChanged signals can be attributed
	// without a bus round trip.
	mu      sync.Mutex
	devices map[dbus.ObjectPath]*deviceState

	// cancelling suppresses the scan-completed callback for discovery stops
	// this process requested itself.
	cancelling atomic.Bool
}

// New creates a Radio for the given BlueZ adapter id, e.g. "hci0".
func New(adapterID string, l logger.Logger) *Radio {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Radio{
		adapterID: adapterID,
		logger:    l,
		devices:   make(map[dbus.ObjectPath]*deviceState),
	}
}

// Bringup implements scanner.Radio. It connects to the system bus, verifies
// and powers the adapter, subscribes to device signals, and reports ready
// once the adapter's own address resolves.
func (r *Radio) Bringup(ev scanner.Events) error {
	bus, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("bluez: system bus: %w", err)
	}
	r.bus = bus
	r.adapter = bus.Object(bluezBus, dbus.ObjectPath("/org/bluez/"+r.adapterID))
	r.events = ev

	addrVariant, err := r.adapter.GetProperty(adapterInterface + ".Address")
	if err != nil {
		var dbusErr dbus.Error
		if errors.As(err, &dbusErr) && dbusErr.Name == errUnknownObject {
			return fmt.Errorf("%w: %s", ErrAdapterNotFound, r.adapterID)
		}
		return fmt.Errorf("bluez: query adapter: %w", err)
	}

	if err := r.adapter.SetProperty(adapterInterface+".Powered", dbus.MakeVariant(true)); err != nil {
		return fmt.Errorf("bluez: power on adapter: %w", err)
	}

	matchRules := [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager"),
			dbus.WithMatchMember("InterfacesAdded"),
		},
		{
			dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
			dbus.WithMatchMember("PropertiesChanged"),
		},
	}
	for _, rule := range matchRules {
		if err := bus.AddMatchSignal(rule...); err != nil {
			return fmt.Errorf("bluez: add match signal: %w", err)
		}
	}

	r.sigCh = make(chan *dbus.Signal, 64)
	bus.Signal(r.sigCh)
	go r.handleSignals()

	var ownAddr string
	if err := addrVariant.Store(&ownAddr); err != nil {
		return fmt.Errorf("bluez: adapter address: %w", err)
	}
	r.logger.Info("adapter up", "adapter", r.adapterID, "addr", ownAddr)

	ev.OnReady()

	return nil
}

// Scan implements scanner.Radio. It applies the LE discovery filter and
// starts discovery. An already-running discovery is treated as success, so a
// re-issue stays harmless.
func (r *Radio) Scan(params scanner.ScanParams) error {
	if r.adapter == nil {
		return ErrNotBroughtUp
	}

	filter := map[string]dbus.Variant{
		"Transport":     dbus.MakeVariant("le"),
		"DuplicateData": dbus.MakeVariant(!params.FilterDuplicates),
	}
	if err := r.adapter.Call(adapterInterface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		return fmt.Errorf("bluez: set discovery filter: %w", err)
	}

	r.cancelling.Store(false)

	if err := r.adapter.Call(adapterInterface+".StartDiscovery", 0).Err; err != nil {
		var dbusErr dbus.Error
		if errors.As(err, &dbusErr) && dbusErr.Name == errInProgress {
			return nil
		}
		return fmt.Errorf("bluez: start discovery: %w", err)
	}

	return nil
}

// CancelScan implements scanner.Radio.
func (r *Radio) CancelScan() error {
	if r.adapter == nil {
		return ErrNotBroughtUp
	}

	r.cancelling.Store(true)

	if err := r.adapter.Call(adapterInterface+".StopDiscovery", 0).Err; err != nil {
		return fmt.Errorf("bluez: stop discovery: %w", err)
	}

	return nil
}

// Close tears down the signal subscription and the bus connection.
func (r *Radio) Close() error {
	if r.bus == nil {
		return nil
	}
	if r.sigCh != nil {
		r.bus.RemoveSignal(r.sigCh)
		close(r.sigCh)
	}

	return r.bus.Close()
}

func (r *Radio) handleSignals() {
	for sig := range r.sigCh {
		switch sig.Name {
		case signalInterfacesAdded:
			r.handleInterfacesAdded(sig)
		case signalPropertiesChanged:
			r.handlePropertiesChanged(sig)
		}
	}
}

// handleInterfacesAdded processes newly discovered devices. The signal body
// is (object path, map[interface]map[property]variant).
func (r *Radio) handleInterfacesAdded(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	interfaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	props, ok := interfaces[deviceInterface]
	if !ok {
		return
	}

	addrStr, _ := props["Address"].Value().(string)
	addr, err := parseMAC(addrStr)
	if err != nil {
		return
	}

	state := &deviceState{addr: addr}
	if rssi, ok := extractRSSI(props); ok {
		state.rssi = rssi
	}

	r.mu.Lock()
	r.devices[path] = state
	r.mu.Unlock()

	r.emitAdvertisement(state.addr, state.rssi, props)
}

// handlePropertiesChanged processes updates for already-known devices, and
// the adapter's own Discovering flag. The signal body is
// (interface, changed map, invalidated list).
func (r *Radio) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	switch iface {
	case adapterInterface:
		r.handleAdapterChanged(sig.Path, changed)
	case deviceInterface:
		r.handleDeviceChanged(sig.Path, changed)
	}
}

func (r *Radio) handleAdapterChanged(path dbus.ObjectPath, changed map[string]dbus.Variant) {
	if path != dbus.ObjectPath("/org/bluez/"+r.adapterID) {
		return
	}

	discovering, ok := changed["Discovering"].Value().(bool)
	if !ok || discovering {
		return
	}

	// Discovery stopped. A stop this process requested itself is not a
	// completion; everything else restarts through the scanner callback.
	if r.cancelling.CompareAndSwap(true, false) {
		return
	}

	r.logger.Debug("discovery stopped by stack")
	if r.events != nil {
		r.events.OnScanComplete()
	}
}

func (r *Radio) handleDeviceChanged(path dbus.ObjectPath, changed map[string]dbus.Variant) {
	state, ok := r.lookupDevice(path)
	if !ok {
		return
	}

	r.mu.Lock()
	if rssi, ok := extractRSSI(changed); ok {
		state.rssi = rssi
	}
	addr, rssi := state.addr, state.rssi
	r.mu.Unlock()

	r.emitAdvertisement(addr, rssi, changed)
}

// lookupDevice resolves a Device1 object path to its cached state, falling
// back to a bus round trip for devices BlueZ knew before this process
// started.
func (r *Radio) lookupDevice(path dbus.ObjectPath) (*deviceState, bool) {
	r.mu.Lock()
	state, ok := r.devices[path]
	r.mu.Unlock()
	if ok {
		return state, true
	}

	variant, err := r.bus.Object(bluezBus, path).GetProperty(deviceInterface + ".Address")
	if err != nil {
		return nil, false
	}
	addrStr, _ := variant.Value().(string)
	parsed, err := parseMAC(addrStr)
	if err != nil {
		return nil, false
	}

	state = &deviceState{addr: parsed}
	r.mu.Lock()
	r.devices[path] = state
	r.mu.Unlock()

	return state, true
}

// emitAdvertisement synthesizes a raw AD payload from the Device1 properties
// and delivers it to the scanner. Properties without advertisement content
// (plain RSSI keepalives included) are delivered too: the frame simply
// carries no fragments and the scanner ignores it.
func (r *Radio) emitAdvertisement(addr scanner.Addr, rssi int8, props map[string]dbus.Variant) {
	if r.events == nil {
		return
	}

	r.events.OnAdvertisement(scanner.Advertisement{
		Addr: addr,
		RSSI: rssi,
		Data: synthesizePayload(props),
	})
}
