// Package hook captures system-wide mouse input while the overlay lives on
// the desktop, forwards eligible events straight into the render widget and
// arms the explicit-leave flag before every genuine pointer exit.
package hook

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

// Target is the render widget events are delivered to. The forwarder serves
// exactly one target; supporting several overlays means one Target per
// overlay and an eligibility test that knows which one is under the cursor.
type Target interface {
	Handle() win.HWND
	Alive() bool
	// Bounds returns the widget's screen rectangle.
	Bounds() (win.Rect, bool)
	// ToClient converts a screen point into widget-local coordinates.
	ToClient(p win.Point) (win.Point, bool)
}

// Classifier answers whether the topmost window at a screen point belongs to
// the desktop (wallpaper, icon layer, or the overlay itself) rather than to
// another application.
type Classifier interface {
	DesktopOwnedAt(p win.Point) bool
}

// Sender delivers synthesized input into a window without hit-testing.
type Sender interface {
	Send(w win.HWND, ev SynthesizedEvent) error
	// Leave delivers a pointer-leave notification.
	Leave(w win.HWND) error
}

// ArmTimeout bounds how long an armed explicit leave may stay unconsumed.
// The filter takes the flag as soon as the widget retrieves the leave, so an
// older flag means the posted leave was lost and the next exit re-arms it.
const ArmTimeout = 500 * time.Millisecond

// Decision is what the forwarder did with one raw event.
type Decision int

const (
	// Inactive: desktop mode is off.
	Inactive Decision = iota
	// Forwarded: the event was synthesized into the render widget.
	Forwarded
	// Skipped: the event was not eligible and the pointer was already outside.
	Skipped
	// Left: the event ended a hover episode and a genuine leave was sent.
	Left
	// Dropped: the target window is gone or could not be addressed.
	Dropped
)

func (d Decision) String() string {
	switch d {
	case Forwarded:
		return "forwarded"
	case Skipped:
		return "skipped"
	case Left:
		return "left"
	case Dropped:
		return "dropped"
	default:
		return "inactive"
	}
}

// Stats are the forwarder's diagnostic counters.
type Stats struct {
	Forwarded  uint64 `json:"forwarded"`
	Skipped    uint64 `json:"skipped"`
	Leaves     uint64 `json:"leaves"`
	LeavesHeld uint64 `json:"leaves_held"`
	Dropped    uint64 `json:"dropped"`
	SendErrors uint64 `json:"send_errors"`
}

// Forwarder turns raw mouse events into synthesized render-widget input.
//
// The OS serializes hook callbacks, but Activate/Deactivate come from other
// goroutines, so the per-episode state sits behind a mutex.
type Forwarder struct {
	target     Target
	classifier Classifier
	sender     Sender
	props      winprop.Store
	filtered   bool
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	active  bool
	inside  bool
	pressed buttons
	armedAt time.Time

	forwarded  atomic.Uint64
	skipped    atomic.Uint64
	leaves     atomic.Uint64
	leavesHeld atomic.Uint64
	dropped    atomic.Uint64
	sendErrors atomic.Uint64
}

// NewForwarder wires a forwarder. It starts inactive. filtered tells it
// whether the leave filter is installed on the target's thread; without it
// nothing consumes the explicit-leave flag, so leaves are sent unarmed.
func NewForwarder(target Target, classifier Classifier, sender Sender, props winprop.Store, filtered bool, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		target:     target,
		classifier: classifier,
		sender:     sender,
		props:      props,
		filtered:   filtered,
		logger:     logger,
		now:        time.Now,
	}
}

// Activate starts forwarding; called when desktop mode begins.
func (f *Forwarder) Activate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	f.inside = false
	f.pressed = 0
}

// Deactivate stops forwarding. If the pointer was over the overlay, the
// content gets one genuine leave so it does not keep a stale hover state.
func (f *Forwarder) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return
	}
	if f.inside && f.target.Alive() {
		f.leaveLocked(f.target.Handle())
	}
	f.active = false
	f.inside = false
}

// Active reports whether desktop-mode forwarding is on.
func (f *Forwarder) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Handle processes one raw event. It never consumes the event; the caller
// always passes it on to the rest of the hook chain.
func (f *Forwarder) Handle(ev MouseEvent) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return Inactive
	}
	if !f.target.Alive() {
		f.inside = false
		f.dropped.Add(1)
		return Dropped
	}
	h := f.target.Handle()

	f.pressed.apply(ev)

	if !f.eligible(ev.Point) {
		f.skipped.Add(1)
		if f.inside {
			f.leaveLocked(h)
			return Left
		}
		return Skipped
	}

	client, ok := f.target.ToClient(ev.Point)
	if !ok {
		f.dropped.Add(1)
		return Dropped
	}

	syn := SynthesizedEvent{
		Kind:       ev.Kind,
		Client:     client,
		Screen:     ev.Point,
		Keys:       uintptr(f.pressed),
		WheelDelta: ev.WheelDelta,
		XButton:    ev.XButton,
	}
	if err := f.sender.Send(h, syn); err != nil {
		f.sendErrors.Add(1)
		f.logger.Debug("deliver synthesized event", "kind", ev.Kind.String(), "error", err)
		return Dropped
	}

	f.inside = true
	f.forwarded.Add(1)
	return Forwarded
}

// eligible: inside the overlay and not covered by another application.
func (f *Forwarder) eligible(p win.Point) bool {
	bounds, ok := f.target.Bounds()
	if !ok || !bounds.Contains(p) {
		return false
	}
	return f.classifier.DesktopOwnedAt(p)
}

// leaveLocked arms the explicit-leave flag and then delivers the leave.
// If the previous explicit leave has not been consumed yet it is still
// queued for the widget and will end this episode too, so a second one is
// not armed. A flag older than ArmTimeout belongs to a lost leave and is
// re-armed.
func (f *Forwarder) leaveLocked(h win.HWND) {
	f.inside = false

	if !f.filtered {
		f.sendLeaveLocked(h)
		return
	}

	pending, err := f.props.IsSet(h, winprop.ExplicitLeave)
	if err != nil {
		f.logger.Debug("explicit-leave flag unreadable", "target", h.String(), "error", err)
		return
	}
	now := f.now()
	if pending && !f.armedAt.IsZero() && now.Sub(f.armedAt) < ArmTimeout {
		f.leavesHeld.Add(1)
		return
	}
	if pending {
		f.logger.Debug("explicit leave was never consumed, re-arming", "target", h.String())
	} else if err := f.props.Mark(h, winprop.ExplicitLeave); err != nil {
		f.logger.Debug("arm explicit leave", "target", h.String(), "error", err)
		return
	}
	f.armedAt = now

	if !f.sendLeaveLocked(h) {
		// Nothing will consume the flag; disarm so the next spurious leave is
		// not mistaken for this one.
		_ = f.props.Clear(h, winprop.ExplicitLeave)
		f.armedAt = time.Time{}
	}
}

func (f *Forwarder) sendLeaveLocked(h win.HWND) bool {
	if err := f.sender.Leave(h); err != nil {
		f.sendErrors.Add(1)
		f.logger.Debug("deliver pointer leave", "target", h.String(), "error", err)
		return false
	}
	f.leaves.Add(1)
	return true
}

// Stats returns a snapshot of the diagnostic counters.
func (f *Forwarder) Stats() Stats {
	return Stats{
		Forwarded:  f.forwarded.Load(),
		Skipped:    f.skipped.Load(),
		Leaves:     f.leaves.Load(),
		LeavesHeld: f.leavesHeld.Load(),
		Dropped:    f.dropped.Load(),
		SendErrors: f.sendErrors.Load(),
	}
}
