//go:build !windows

package overlay

import (
	"log/slog"

	"deskweb/internal/config"
	"deskweb/internal/desktop"
	"deskweb/internal/filter"
	"deskweb/internal/hook"
	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

// otherPlatform keeps the overlay interactive: the shell refuses placement,
// so desktop mode is never entered.
type otherPlatform struct {
	props  *winprop.Memory
	logger *slog.Logger
}

// NewPlatform returns a platform on which desktop mode is unsupported.
func NewPlatform(cfg *config.Service, logger *slog.Logger) (Platform, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &otherPlatform{props: winprop.NewMemory(), logger: logger}, nil
}

func (p *otherPlatform) Props() winprop.Store { return p.props }

func (p *otherPlatform) Shell() desktop.Shell { return desktop.NewShell() }

func (p *otherPlatform) Target(widget win.HWND) hook.Target { return deadTarget(widget) }

func (p *otherPlatform) Classifier() hook.Classifier { return nowhere{} }

func (p *otherPlatform) Sender() hook.Sender { return nowhere{} }

func (p *otherPlatform) InstallFilter(widget win.HWND) (func(), error) {
	if _, err := filter.Install("", widget, p.logger); err != nil {
		return nil, err
	}
	return func() {}, nil
}

func (p *otherPlatform) StartMouseHook(fwd *hook.Forwarder) (func(), error) {
	if _, err := hook.Start(fwd, p.logger); err != nil {
		return nil, err
	}
	return func() {}, nil
}

type deadTarget win.HWND

func (t deadTarget) Handle() win.HWND                       { return win.HWND(t) }
func (t deadTarget) Alive() bool                            { return false }
func (t deadTarget) Bounds() (win.Rect, bool)               { return win.Rect{}, false }
func (t deadTarget) ToClient(p win.Point) (win.Point, bool) { return p, false }

type nowhere struct{}

func (nowhere) DesktopOwnedAt(win.Point) bool              { return false }
func (nowhere) Send(win.HWND, hook.SynthesizedEvent) error { return desktop.ErrUnsupported }
func (nowhere) Leave(win.HWND) error                       { return desktop.ErrUnsupported }
