package overlay

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deskweb/internal/config"
	"deskweb/internal/desktop"
	"deskweb/internal/hook"
	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

const (
	testOverlay win.HWND = 0x100
	testWidget  win.HWND = 0x200
)

type fakeShell struct {
	mu             sync.Mutex
	locateFailures int
	unsupported    bool
	overlayDead    bool
	holds          bool
	locates        int
	places         int
	restores       int
}

func (f *fakeShell) Alive(w win.HWND) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return w != 0 && !f.overlayDead
}

func (f *fakeShell) Locate() (desktop.Layer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locates++
	if f.unsupported {
		return desktop.Layer{}, desktop.ErrUnsupported
	}
	if f.locateFailures > 0 {
		f.locateFailures--
		return desktop.Layer{}, errors.New("Progman not found")
	}
	return desktop.Layer{Variant: desktop.Raised, Progman: 1, IconView: 2, Wallpaper: 3}, nil
}

func (f *fakeShell) Capture(win.HWND) (desktop.Placement, error) {
	return desktop.Placement{Style: 0x10CF0000}, nil
}

func (f *fakeShell) Place(win.HWND, desktop.Layer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places++
	f.holds = true
	return nil
}

func (f *fakeShell) Restore(win.HWND, desktop.Placement, desktop.Layer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	f.holds = false
	return nil
}

func (f *fakeShell) Holds(win.HWND, desktop.Layer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holds
}

// restart simulates the shell going away and, optionally, taking the
// overlay window with it.
func (f *fakeShell) restart(overlayDies bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds = false
	f.overlayDead = overlayDies
}

func (f *fakeShell) counts() (locates, places, restores int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locates, f.places, f.restores
}

type stubTarget struct{}

func (stubTarget) Handle() win.HWND                       { return testWidget }
func (stubTarget) Alive() bool                            { return true }
func (stubTarget) Bounds() (win.Rect, bool)               { return win.Rect{Right: 100, Bottom: 100}, true }
func (stubTarget) ToClient(p win.Point) (win.Point, bool) { return p, true }

type stubInput struct{}

func (stubInput) DesktopOwnedAt(win.Point) bool              { return true }
func (stubInput) Send(win.HWND, hook.SynthesizedEvent) error { return nil }
func (stubInput) Leave(win.HWND) error                       { return nil }

type fakePlatform struct {
	props *winprop.Memory
	shell *fakeShell

	mu          sync.Mutex
	filterErr   error
	hookErr     error
	filterLive  int
	hookLive    int
	filterCalls int
	fwd         *hook.Forwarder
	onHookStop  func()
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{props: winprop.NewMemory(), shell: &fakeShell{}}
}

func (p *fakePlatform) Props() winprop.Store        { return p.props }
func (p *fakePlatform) Shell() desktop.Shell        { return p.shell }
func (p *fakePlatform) Target(win.HWND) hook.Target { return stubTarget{} }
func (p *fakePlatform) Classifier() hook.Classifier { return stubInput{} }
func (p *fakePlatform) Sender() hook.Sender         { return stubInput{} }

func (p *fakePlatform) InstallFilter(win.HWND) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filterCalls++
	if p.filterErr != nil {
		return nil, p.filterErr
	}
	p.filterLive++
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.filterLive--
	}, nil
}

func (p *fakePlatform) StartMouseHook(fwd *hook.Forwarder) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hookErr != nil {
		return nil, p.hookErr
	}
	p.hookLive++
	p.fwd = fwd
	return func() {
		p.mu.Lock()
		p.hookLive--
		onStop := p.onHookStop
		p.mu.Unlock()
		if onStop != nil {
			onStop()
		}
	}, nil
}

func (p *fakePlatform) forwarder() *hook.Forwarder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fwd
}

func (p *fakePlatform) live() (filters, hooks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filterLive, p.hookLive
}

type modeLog struct {
	mu    sync.Mutex
	modes []Mode
}

func (l *modeLog) record(m Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modes = append(l.modes, m)
}

func (l *modeLog) snapshot() []Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Mode(nil), l.modes...)
}

func newTestService(t *testing.T, p *fakePlatform) (*Service, *config.Service) {
	t.Helper()
	cfgSvc, err := config.NewAt(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("config.NewAt failed: %v", err)
	}
	cfg := cfgSvc.Get()
	cfg.Placement.Attempts = 3
	cfg.Placement.BaseDelayMs = 1
	cfg.Placement.MaxDelayMs = 2
	cfg.Placement.WatchdogIntervalMs = 0
	cfgSvc.Set(cfg)

	svc, err := New(cfgSvc, p, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(svc.Shutdown)
	svc.Bind(testOverlay, testWidget)
	return svc, cfgSvc
}

func setWatchdogInterval(cfgSvc *config.Service, ms int) {
	cfg := cfgSvc.Get()
	cfg.Placement.WatchdogIntervalMs = ms
	cfgSvc.Set(cfg)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestService_EnterAndExit(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)
	var log modeLog
	svc.Subscribe(log.record)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	if svc.Mode() != Desktop {
		t.Fatalf("mode = %s; want desktop", svc.Mode())
	}
	if set, _ := p.props.IsSet(testWidget, winprop.TargetMarker); !set {
		t.Error("render widget not marked")
	}
	if filters, hooks := p.live(); filters != 1 || hooks != 1 {
		t.Errorf("filters = %d, hooks = %d; want 1, 1", filters, hooks)
	}
	if st := svc.Status(); st.Variant != "raised" || !st.FilterActive {
		t.Errorf("status = %+v", st)
	}

	if err := svc.ExitDesktopMode(); err != nil {
		t.Fatalf("ExitDesktopMode failed: %v", err)
	}
	if svc.Mode() != Interactive {
		t.Errorf("mode = %s; want interactive", svc.Mode())
	}
	if set, _ := p.props.IsSet(testWidget, winprop.TargetMarker); !set {
		t.Error("marker removed while the widget is still bound")
	}
	if filters, hooks := p.live(); filters != 0 || hooks != 0 {
		t.Errorf("filters = %d, hooks = %d left installed", filters, hooks)
	}
	if _, _, restores := p.shell.counts(); restores != 1 {
		t.Errorf("restores = %d; want 1", restores)
	}

	got := log.snapshot()
	if len(got) != 2 || got[0] != Desktop || got[1] != Interactive {
		t.Errorf("notifications = %v", got)
	}
}

func TestService_EnterTwiceIsNoop(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)

	for i := 0; i < 2; i++ {
		if err := svc.EnterDesktopMode(context.Background()); err != nil {
			t.Fatalf("EnterDesktopMode failed: %v", err)
		}
	}
	if _, places, _ := p.shell.counts(); places != 1 {
		t.Errorf("places = %d; want 1", places)
	}
}

func TestService_EnterWithoutWindows(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)
	svc.Bind(0, 0)

	if err := svc.EnterDesktopMode(context.Background()); !errors.Is(err, ErrNotAttached) {
		t.Errorf("err = %v; want ErrNotAttached", err)
	}
	if _, err := svc.SuppressCount(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("SuppressCount err = %v; want ErrNotAttached", err)
	}
}

func TestService_RetriesPlacement(t *testing.T) {
	p := newFakePlatform()
	p.shell.locateFailures = 2
	svc, _ := newTestService(t, p)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	if locates, _, _ := p.shell.counts(); locates != 3 {
		t.Errorf("locates = %d; want 3", locates)
	}
}

func TestService_PlacementGivesUp(t *testing.T) {
	p := newFakePlatform()
	p.shell.locateFailures = 10
	svc, _ := newTestService(t, p)

	err := svc.EnterDesktopMode(context.Background())
	if !desktop.IsRetryable(err) {
		t.Fatalf("err = %v; want retryable placement error", err)
	}
	if locates, _, _ := p.shell.counts(); locates != 3 {
		t.Errorf("locates = %d; want 3", locates)
	}
	if st := svc.Status(); st.Mode != Interactive || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestService_UnsupportedNotRetried(t *testing.T) {
	p := newFakePlatform()
	p.shell.unsupported = true
	svc, _ := newTestService(t, p)

	if err := svc.EnterDesktopMode(context.Background()); !errors.Is(err, desktop.ErrUnsupported) {
		t.Fatalf("err = %v; want ErrUnsupported", err)
	}
	if locates, _, _ := p.shell.counts(); locates != 1 {
		t.Errorf("locates = %d; want 1", locates)
	}
}

func TestService_HookFailureFallsBackToInteractive(t *testing.T) {
	p := newFakePlatform()
	p.hookErr = &win.HookInstallError{Hook: "mouse", Err: errors.New("access denied")}
	svc, _ := newTestService(t, p)

	err := svc.EnterDesktopMode(context.Background())
	var hookErr *win.HookInstallError
	if !errors.As(err, &hookErr) {
		t.Fatalf("err = %v; want *win.HookInstallError", err)
	}
	if svc.Mode() != Interactive {
		t.Errorf("mode = %s; want interactive", svc.Mode())
	}
	if set, _ := p.props.IsSet(testWidget, winprop.ExplicitLeave); set {
		t.Error("explicit leave left armed after rollback")
	}
	if filters, _ := p.live(); filters != 0 {
		t.Errorf("filter left installed after rollback")
	}
	if _, places, restores := p.shell.counts(); places != 1 || restores != 1 {
		t.Errorf("places = %d, restores = %d; want 1, 1", places, restores)
	}
}

func TestService_FilterFailureDegrades(t *testing.T) {
	p := newFakePlatform()
	p.filterErr = &win.HookInstallError{Hook: "leave filter", Err: errors.New("dll not found")}
	svc, _ := newTestService(t, p)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	st := svc.Status()
	if st.Mode != Desktop || st.FilterActive {
		t.Errorf("status = %+v; want desktop without filter", st)
	}

	// Nothing consumes the explicit-leave flag, so every exit still gets
	// its own leave.
	fwd := p.forwarder()
	for i := 0; i < 3; i++ {
		fwd.Handle(hook.MouseEvent{Kind: hook.Move, Point: win.Point{X: 10, Y: 10}})
		fwd.Handle(hook.MouseEvent{Kind: hook.Move, Point: win.Point{X: 500, Y: 500}})
	}
	if in := svc.Status().Input; in.Leaves != 3 || in.LeavesHeld != 0 {
		t.Errorf("Leaves = %d, LeavesHeld = %d; want 3, 0", in.Leaves, in.LeavesHeld)
	}
}

func TestService_SuppressCountSurvivesSessions(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	if err := svc.EnterDesktopMode(ctx); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	p.props.Increment(testWidget, winprop.SuppressCount)
	p.props.Increment(testWidget, winprop.SuppressCount)
	if n, _ := svc.SuppressCount(); n != 2 {
		t.Errorf("SuppressCount = %d; want 2", n)
	}

	if err := svc.ExitDesktopMode(); err != nil {
		t.Fatalf("ExitDesktopMode failed: %v", err)
	}
	if n, _ := svc.SuppressCount(); n != 2 {
		t.Errorf("SuppressCount after exit = %d; want 2", n)
	}

	if err := svc.EnterDesktopMode(ctx); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	p.props.Increment(testWidget, winprop.SuppressCount)
	if n, _ := svc.SuppressCount(); n != 3 {
		t.Errorf("SuppressCount = %d; want 3", n)
	}
}

func TestService_SuppressCountDuringTeardown(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	p.props.Increment(testWidget, winprop.SuppressCount)
	p.props.Increment(testWidget, winprop.SuppressCount)

	var during []uint64
	p.onHookStop = func() {
		n, err := svc.SuppressCount()
		if err != nil {
			t.Errorf("SuppressCount during teardown failed: %v", err)
		}
		during = append(during, n)
	}
	if err := svc.ExitDesktopMode(); err != nil {
		t.Fatalf("ExitDesktopMode failed: %v", err)
	}

	if len(during) != 1 || during[0] != 2 {
		t.Errorf("SuppressCount during teardown = %v; want [2]", during)
	}
	if n, _ := svc.SuppressCount(); n != 2 {
		t.Errorf("SuppressCount after exit = %d; want 2", n)
	}
}

func TestService_MarkerFollowsWidgetLifetime(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)

	if set, _ := p.props.IsSet(testWidget, winprop.TargetMarker); !set {
		t.Fatal("Bind did not mark the render widget")
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.EnterDesktopMode(ctx); err != nil {
			t.Fatalf("EnterDesktopMode failed: %v", err)
		}
		if err := svc.ExitDesktopMode(); err != nil {
			t.Fatalf("ExitDesktopMode failed: %v", err)
		}
		if set, _ := p.props.IsSet(testWidget, winprop.TargetMarker); !set {
			t.Fatalf("session %d: marker removed on exit", i)
		}
	}
	p.props.Increment(testWidget, winprop.SuppressCount)

	svc.Shutdown()
	if set, _ := p.props.IsSet(testWidget, winprop.TargetMarker); set {
		t.Error("marker left on render widget after shutdown")
	}
	if n, _ := svc.SuppressCount(); n != 1 {
		t.Errorf("SuppressCount after shutdown = %d; want 1", n)
	}
}

func TestService_ToggleModePersists(t *testing.T) {
	p := newFakePlatform()
	svc, cfgSvc := newTestService(t, p)
	cfg := cfgSvc.Get()
	cfg.Overlay.DesktopMode = false
	cfgSvc.Set(cfg)

	mode, err := svc.ToggleMode(context.Background())
	if err != nil || mode != Desktop {
		t.Fatalf("ToggleMode = %s, %v; want desktop", mode, err)
	}
	if !cfgSvc.Get().Overlay.DesktopMode {
		t.Error("desktop mode not persisted")
	}

	mode, err = svc.ToggleMode(context.Background())
	if err != nil || mode != Interactive {
		t.Fatalf("ToggleMode = %s, %v; want interactive", mode, err)
	}
	if cfgSvc.Get().Overlay.DesktopMode {
		t.Error("interactive mode not persisted")
	}
}

func TestService_ShutdownIsIdempotent(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	svc.Shutdown()
	svc.Shutdown()

	if _, _, restores := p.shell.counts(); restores != 1 {
		t.Errorf("restores = %d; want 1", restores)
	}
	if filters, hooks := p.live(); filters != 0 || hooks != 0 {
		t.Errorf("filters = %d, hooks = %d left installed", filters, hooks)
	}
	if err := svc.EnterDesktopMode(context.Background()); !errors.Is(err, ErrShutdown) {
		t.Errorf("err = %v; want ErrShutdown", err)
	}
}

func TestService_WatchdogReattachesAfterShellRestart(t *testing.T) {
	p := newFakePlatform()
	svc, cfgSvc := newTestService(t, p)
	setWatchdogInterval(cfgSvc, 5)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	p.shell.restart(false)

	waitFor(t, "reattach", func() bool {
		st := svc.Status()
		return st.Reattaches == 1 && st.Mode == Desktop
	})
	if filters, hooks := p.live(); filters != 1 || hooks != 1 {
		t.Errorf("filters = %d, hooks = %d; want 1, 1", filters, hooks)
	}
}

func TestService_WatchdogGivesUpWhenOverlayDies(t *testing.T) {
	p := newFakePlatform()
	svc, cfgSvc := newTestService(t, p)
	setWatchdogInterval(cfgSvc, 5)
	var log modeLog
	svc.Subscribe(log.record)

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	p.shell.restart(true)

	waitFor(t, "fallback to interactive", func() bool {
		return svc.Mode() == Interactive
	})
	got := log.snapshot()
	want := []Mode{Desktop, Recovering, Interactive}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notifications = %v; want %v", got, want)
			break
		}
	}
	if filters, hooks := p.live(); filters != 0 || hooks != 0 {
		t.Errorf("filters = %d, hooks = %d left installed", filters, hooks)
	}
}

func TestService_UnsubscribeStopsNotifications(t *testing.T) {
	p := newFakePlatform()
	svc, _ := newTestService(t, p)
	var log modeLog
	cancel := svc.Subscribe(log.record)
	cancel()

	if err := svc.EnterDesktopMode(context.Background()); err != nil {
		t.Fatalf("EnterDesktopMode failed: %v", err)
	}
	if got := log.snapshot(); len(got) != 0 {
		t.Errorf("notifications after unsubscribe = %v", got)
	}
}
