//go:build windows

package overlay

import (
	"log/slog"

	"deskweb/internal/cache"
	"deskweb/internal/config"
	"deskweb/internal/desktop"
	"deskweb/internal/filter"
	"deskweb/internal/hook"
	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

type nativePlatform struct {
	props      *winprop.Native
	shell      desktop.Shell
	classifier *hook.DesktopClassifier
	dllPath    string
	logger     *slog.Logger
}

// NewPlatform returns the Win32 platform. The classification cache and the
// filter DLL location come from configuration.
func NewPlatform(cfg *config.Service, logger *slog.Logger) (Platform, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dllPath, err := cfg.FilterDLLPath()
	if err != nil {
		return nil, err
	}
	input := cfg.Get().Input
	return &nativePlatform{
		props:      winprop.NewNative(),
		shell:      desktop.NewShell(),
		classifier: hook.NewDesktopClassifier(hook.NativeWindowInfo{}, cache.New(input.ClassCacheSize, input.ClassCacheTTL())),
		dllPath:    dllPath,
		logger:     logger,
	}, nil
}

func (p *nativePlatform) Props() winprop.Store { return p.props }

func (p *nativePlatform) Shell() desktop.Shell { return p.shell }

func (p *nativePlatform) Target(widget win.HWND) hook.Target { return hook.WindowTarget{HWND: widget} }

func (p *nativePlatform) Classifier() hook.Classifier { return p.classifier }

func (p *nativePlatform) Sender() hook.Sender { return hook.PostSender{} }

func (p *nativePlatform) InstallFilter(widget win.HWND) (func(), error) {
	reg, err := filter.Install(p.dllPath, widget, p.logger)
	if err != nil {
		return nil, err
	}
	return reg.Remove, nil
}

func (p *nativePlatform) StartMouseHook(fwd *hook.Forwarder) (func(), error) {
	h, err := hook.Start(fwd, p.logger)
	if err != nil {
		return nil, err
	}
	return h.Stop, nil
}
