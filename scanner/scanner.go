package scanner

import (
	"github.com/sbkit/sbscan/adv"
	"github.com/sbkit/sbscan/logger"
)

// MergedHandler is invoked when a cache slot transitions from not-merged to
// merged. The record is a snapshot copy; the handler runs on the radio event
// goroutine outside the cache lock and should not block for long.
type MergedHandler func(rec DeviceRecord)

// Scanner owns the device cache and the scan controller state, and implements
// the Events callback surface driven by the radio backend.
type Scanner struct {
	cache  *Cache
	radio  Radio
	state  AtomicScanState
	params ScanParams
	logger logger.Logger

	onMerged MergedHandler
}

// New creates a Scanner over the given radio backend using DefaultScanParams.
func New(radio Radio, l logger.Logger) (*Scanner, error) {
	if radio == nil {
		return nil, ErrRadioNil
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Scanner{
		cache:  NewCache(),
		radio:  radio,
		params: DefaultScanParams,
		logger: l,
	}, nil
}

// Cache returns the device cache.
func (s *Scanner) Cache() *Cache {
	return s.cache
}

// State returns the current scan controller state.
func (s *Scanner) State() ScanState {
	return s.state.Get()
}

// SetMergedHandler registers a handler for merge transitions. It must be set
// before the radio starts delivering events.
func (s *Scanner) SetMergedHandler(h MergedHandler) {
	s.onMerged = h
}

// Bringup performs the one-time radio stack initialization. The radio calls
// back into OnReady once it can scan, which issues the first Start.
func (s *Scanner) Bringup() error {
	return s.radio.Bringup(s)
}

// Start issues a continuous discovery request. Restarting while already
// scanning is a harmless re-issue.
func (s *Scanner) Start() error {
	s.logger.Debug("start scan",
		"restart", s.state.IsScanning(),
		"active", s.params.Active,
		"itvl", s.params.Interval,
		"window", s.params.Window,
		"filter_duplicates", s.params.FilterDuplicates,
	)

	if err := s.radio.Scan(s.params); err != nil {
		s.logger.Error("scan request failed", "error", err)
		return err
	}
	s.state.Set(Scanning)

	return nil
}

// Stop cancels the in-flight discovery request.
func (s *Scanner) Stop() error {
	err := s.radio.CancelScan()
	if err != nil {
		s.logger.Error("scan cancel failed", "error", err)
		return err
	}
	s.state.Set(Idle)

	return nil
}

// OnReady implements Events. It fires once the radio stack has resolved its
// own address and triggers the first scan.
func (s *Scanner) OnReady() {
	s.logger.Info("radio ready, starting scan")
	_ = s.Start()
}

// OnScanComplete implements Events. A completed discovery run is always
// restarted, even when it completed because Stop raced a pending completion
// event; a Stop can therefore be overridden by a late completion. That
// matches the deployed firmware and stays until the intended semantics are
// confirmed.
func (s *Scanner) OnScanComplete() {
	s.logger.Debug("scan window completed, restarting")
	_ = s.Start()
}

// OnAdvertisement implements Events. It extracts the SwitchBot fragments from
// the raw payload and merges them into the cache. Frames carrying neither
// fragment type never touch the cache.
func (s *Scanner) OnAdvertisement(a Advertisement) {
	fields := adv.Extract(a.Data)

	s.logger.Debug("advertisement",
		"addr", a.Addr,
		"rssi", a.RSSI,
		"len", len(a.Data),
		"has_mfg", fields.HasManufacturer,
		"has_svc", fields.HasService,
	)

	if !fields.HasManufacturer && !fields.HasService {
		return
	}

	outcome := s.cache.Observe(a.Addr, a.RSSI, fields)
	if outcome.Dropped {
		s.logger.Debug("device cache full, event dropped", "addr", a.Addr)
		return
	}

	if outcome.Transitioned {
		s.logger.Info("merged device",
			"addr", outcome.Record.Addr,
			"rssi", outcome.Record.RSSI,
			"mfg_len", len(outcome.Record.Manufacturer()),
			"svc_len", len(outcome.Record.Service()),
		)
		if s.onMerged != nil {
			s.onMerged(outcome.Record)
		}
	}
}
