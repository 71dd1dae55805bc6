// Package overlay is the mode controller. It moves the overlay between
// interactive mode (an ordinary top-level window) and desktop mode (placed
// behind the desktop icons with system-wide input forwarded into it), and
// keeps desktop mode alive across shell restarts.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"deskweb/internal/cache"
	"deskweb/internal/config"
	"deskweb/internal/desktop"
	"deskweb/internal/hook"
	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

// Mode is the overlay's current presentation.
type Mode string

const (
	Interactive Mode = "interactive"
	Desktop     Mode = "desktop"
	// Recovering: desktop mode was requested but the placement was lost and
	// the watchdog is trying to restore it.
	Recovering Mode = "recovering"
)

// backoffFactor grows the delay between placement attempts.
const backoffFactor = 1.5

// Status is a diagnostic snapshot for the frontend and logs.
type Status struct {
	Mode          Mode             `json:"mode"`
	FilterActive  bool             `json:"filter_active"`
	Variant       string           `json:"variant,omitempty"`
	Overlay       string           `json:"overlay,omitempty"`
	Widget        string           `json:"widget,omitempty"`
	SuppressCount uint64           `json:"suppress_count"`
	Reattaches    int              `json:"reattaches"`
	LastError     string           `json:"last_error,omitempty"`
	Input         hook.Stats       `json:"input"`
	Classes       cache.CacheStats `json:"classes"`
}

// Service owns the overlay's mode and every OS resource desktop mode holds.
type Service struct {
	config   *config.Service
	platform Platform
	props    winprop.Store
	injector *desktop.Injector
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// opMu serializes mode transitions; mu guards the fields below.
	opMu sync.Mutex
	mu   sync.RWMutex

	mode          Mode
	overlay       win.HWND
	widget        win.HWND
	fwd           *hook.Forwarder
	releaseFilter func()
	stopHook      func()
	engaged       bool
	marked        bool
	watchdog      *watchdog
	suppressed    uint64 // suppressions counted on previously bound widgets
	lastCount     uint64 // highest counter value read from the current widget
	reattaches    int
	lastErr       string
	closed        bool

	subscribers map[int]func(Mode)
	nextSub     int
}

// New creates a new overlay service
func New(configSvc *config.Service, platform Platform, logger *slog.Logger) (*Service, error) {
	if configSvc == nil || platform == nil {
		return nil, errors.New("overlay: config and platform are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "overlay")

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:      configSvc,
		platform:    platform,
		props:       platform.Props(),
		injector:    desktop.NewInjector(platform.Shell(), logger),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		mode:        Interactive,
		subscribers: make(map[int]func(Mode)),
	}, nil
}

// Bind records the overlay's top-level window and its render widget and
// marks the widget as a filter target for the rest of its lifetime. It is
// called once the web content is up and the widget exists, before desktop
// mode is entered.
func (s *Service) Bind(overlay, widget win.HWND) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = overlay
	if widget != s.widget {
		s.releaseWidgetLocked()
		s.widget = widget
		if err := s.markLocked(); err != nil {
			s.logger.Warn("mark render widget", "widget", widget.String(), "error", err)
		}
	}
	s.logger.Debug("overlay windows bound", "overlay", overlay.String(), "widget", widget.String())
}

// Subscribe registers fn for mode changes. Callbacks run on the goroutine
// that changed the mode and must not change it again.
func (s *Service) Subscribe(fn func(Mode)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Mode returns the current mode.
func (s *Service) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// EnterDesktopMode attaches the overlay to the desktop and starts input
// forwarding. Placement is retried with backoff while the desktop hierarchy
// is missing. If the mouse hook cannot be installed everything is rolled
// back and the overlay stays interactive.
func (s *Service) EnterDesktopMode(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	closed, mode := s.closed, s.mode
	s.mu.RUnlock()

	if closed {
		return ErrShutdown
	}
	if mode != Interactive {
		return nil
	}

	if err := s.engageLocked(ctx, true); err != nil {
		s.recordError(err)
		return err
	}

	s.startWatchdogLocked()
	s.setMode(Desktop)
	return nil
}

// ExitDesktopMode stops forwarding, removes the filter and restores the
// overlay to an ordinary window. It is a no-op in interactive mode.
func (s *Service) ExitDesktopMode() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.exitLocked()
}

func (s *Service) exitLocked() error {
	s.mu.Lock()
	mode, wd := s.mode, s.watchdog
	s.watchdog = nil
	s.mu.Unlock()

	if mode == Interactive {
		return nil
	}
	if wd != nil {
		wd.Stop()
	}
	err := s.disengageLocked()
	s.setMode(Interactive)
	return err
}

// ToggleMode switches between interactive and desktop mode and remembers
// the choice for the next start.
func (s *Service) ToggleMode(ctx context.Context) (Mode, error) {
	var err error
	if s.Mode() == Interactive {
		err = s.EnterDesktopMode(ctx)
	} else {
		err = s.ExitDesktopMode()
	}

	mode := s.Mode()
	cfg := s.config.Get()
	cfg.Overlay.DesktopMode = mode != Interactive
	if serr := s.config.UpdateOverlay(cfg.Overlay); serr != nil {
		s.logger.Warn("persist overlay mode", "error", serr)
	}
	return mode, err
}

// engageLocked acquires every desktop-mode resource or none of them.
func (s *Service) engageLocked(ctx context.Context, retry bool) error {
	s.mu.RLock()
	overlay, widget := s.overlay, s.widget
	s.mu.RUnlock()

	if overlay == 0 || widget == 0 {
		return ErrNotAttached
	}

	attempts := 1
	if retry {
		attempts = s.config.Get().Placement.Attempts
	}
	if err := s.attach(ctx, overlay, attempts); err != nil {
		return err
	}

	// Normally marked by Bind already.
	s.mu.Lock()
	err := s.markLocked()
	s.mu.Unlock()
	if err != nil {
		s.detach()
		return fmt.Errorf("mark render widget: %w", err)
	}

	release, err := s.platform.InstallFilter(widget)
	if err != nil {
		// Content still works without the filter; hover state just flickers.
		s.logger.Warn("leave filter unavailable, continuing without it", "error", err)
		release = nil
	}

	fwd := hook.NewForwarder(s.platform.Target(widget), s.platform.Classifier(), s.platform.Sender(), s.props, release != nil, s.logger)
	fwd.Activate()

	stop, err := s.platform.StartMouseHook(fwd)
	if err != nil {
		fwd.Deactivate()
		if release != nil {
			release()
		}
		s.clearLeave(widget)
		s.detach()
		s.logger.Warn("mouse hook unavailable, staying interactive", "error", err)
		return err
	}

	s.mu.Lock()
	s.fwd = fwd
	s.releaseFilter = release
	s.stopHook = stop
	s.engaged = true
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// disengageLocked releases what engageLocked acquired, in reverse order.
func (s *Service) disengageLocked() error {
	s.mu.Lock()
	if !s.engaged {
		s.mu.Unlock()
		return nil
	}
	fwd, release, stop, widget := s.fwd, s.releaseFilter, s.stopHook, s.widget
	s.engaged = false
	s.releaseFilter = nil
	s.stopHook = nil
	s.mu.Unlock()

	// Final leave first, while the hook and filter are still in place.
	fwd.Deactivate()
	stop()
	if release != nil {
		release()
	}
	s.clearLeave(widget)
	return s.detach()
}

func (s *Service) attach(ctx context.Context, overlay win.HWND, attempts int) error {
	placement := s.config.Get().Placement
	delay := placement.BaseDelay()

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.injector.Attach(overlay); err == nil {
			return nil
		}
		if !desktop.IsRetryable(err) || attempt == attempts {
			break
		}
		s.logger.Debug("desktop placement failed, retrying", "attempt", attempt, "delay", delay, "error", err)

		// Add jitter so a restarting shell is not polled in lockstep
		jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}

		delay = time.Duration(float64(delay) * backoffFactor)
		if ceiling := placement.MaxDelay(); delay > ceiling {
			delay = ceiling
		}
	}
	return err
}

func (s *Service) detach() error {
	if err := s.injector.Detach(); err != nil {
		s.logger.Warn("detach overlay", "error", err)
		return err
	}
	return nil
}

// clearLeave drops an explicit leave nobody will consume once the filter is
// gone. The marker and the suppress counter stay with the widget.
func (s *Service) clearLeave(widget win.HWND) {
	if err := s.props.Clear(widget, winprop.ExplicitLeave); err != nil && !winprop.IsAccessError(err) {
		s.logger.Warn("clear explicit leave", "error", err)
	}
}

func (s *Service) markLocked() error {
	if s.widget == 0 || s.marked {
		return nil
	}
	if err := s.props.Mark(s.widget, winprop.TargetMarker); err != nil {
		return err
	}
	s.marked = true
	return nil
}

// releaseWidgetLocked folds the widget's counter into the running total and
// removes every overlay attribute from it.
func (s *Service) releaseWidgetLocked() {
	if s.widget == 0 {
		return
	}
	if n, err := s.props.Value(s.widget, winprop.SuppressCount); err == nil && n > s.lastCount {
		s.lastCount = n
	}
	s.suppressed += s.lastCount
	s.lastCount = 0
	s.marked = false
	if err := winprop.ClearAll(s.props, s.widget); err != nil && !winprop.IsAccessError(err) {
		s.logger.Warn("clear render widget attributes", "error", err)
	}
}

func (s *Service) startWatchdogLocked() {
	interval := s.config.Get().Placement.WatchdogInterval()
	if interval <= 0 {
		return
	}
	wd := newWatchdog(interval, s.supervise, s.logger)

	s.mu.Lock()
	s.watchdog = wd
	s.mu.Unlock()
	wd.Start()
}

// supervise runs on every watchdog tick. A lost placement is torn down and
// re-established; an error return makes the watchdog back off.
func (s *Service) supervise(wd *watchdog) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if wd.stopped() {
		return nil
	}

	switch s.Mode() {
	case Desktop:
		if s.injector.Verify() {
			return nil
		}
		s.logger.Warn("desktop placement lost, reattaching")
		if err := s.disengageLocked(); err != nil {
			s.logger.Debug("teardown of lost placement", "error", err)
		}
		s.setMode(Recovering)
	case Recovering:
	default:
		return nil
	}

	err := s.engageLocked(s.ctx, false)
	if err == nil {
		s.mu.Lock()
		s.reattaches++
		s.mu.Unlock()
		s.logger.Info("desktop placement restored")
		s.setMode(Desktop)
		return nil
	}

	s.recordError(err)
	if desktop.IsRetryable(err) {
		return err
	}

	s.logger.Warn("giving up on desktop mode", "error", err)
	s.mu.Lock()
	s.watchdog = nil
	s.mu.Unlock()
	wd.Stop()
	s.setMode(Interactive)
	return nil
}

// SuppressCount returns how many spurious pointer-leaves the filter has
// swallowed for this overlay. It never decreases, even after the widget is
// destroyed.
func (s *Service) SuppressCount() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.widget == 0 {
		return 0, ErrNotAttached
	}
	n, err := s.props.Value(s.widget, winprop.SuppressCount)
	if err != nil && !winprop.IsAccessError(err) {
		return s.suppressed + s.lastCount, err
	}
	if err == nil && n > s.lastCount {
		s.lastCount = n
	}
	return s.suppressed + s.lastCount, nil
}

// Status returns a diagnostic snapshot.
func (s *Service) Status() Status {
	count, _ := s.SuppressCount()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Mode:          s.mode,
		FilterActive:  s.engaged && s.releaseFilter != nil,
		SuppressCount: count,
		Reattaches:    s.reattaches,
		LastError:     s.lastErr,
	}
	if s.overlay != 0 {
		st.Overlay = s.overlay.String()
	}
	if s.widget != 0 {
		st.Widget = s.widget.String()
	}
	if layer, ok := s.injector.Layer(); ok {
		st.Variant = layer.Variant.String()
	}
	if s.fwd != nil {
		st.Input = s.fwd.Stats()
	}
	if c, ok := s.platform.Classifier().(interface{ CacheStats() cache.CacheStats }); ok {
		st.Classes = c.CacheStats()
	}
	return st
}

// Shutdown leaves desktop mode, removes the overlay's attributes from the
// widget and saves configuration. Safe to call from every exit path.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.opMu.Lock()
	if err := s.exitLocked(); err != nil {
		s.logger.Warn("exit desktop mode on shutdown", "error", err)
	}
	s.mu.Lock()
	s.releaseWidgetLocked()
	s.mu.Unlock()
	s.opMu.Unlock()

	// Save current state
	if err := s.config.Save(); err != nil {
		s.logger.Warn("save config on shutdown", "error", err)
	}
}

func (s *Service) setMode(m Mode) {
	s.mu.Lock()
	if s.mode == m {
		s.mu.Unlock()
		return
	}
	s.mode = m
	subs := make([]func(Mode), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.Info("overlay mode changed", "mode", string(m))
	for _, fn := range subs {
		fn(m)
	}
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err.Error()
}
