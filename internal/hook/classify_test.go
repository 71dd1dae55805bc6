package hook

import (
	"testing"
	"time"

	"deskweb/internal/cache"
	"deskweb/internal/win"
)

// fakeWindows places one window per column of 100 pixels.
type fakeWindows struct {
	columns []win.HWND
	roots   map[win.HWND]win.HWND
	classes map[win.HWND]string
	lookups int
}

func (f *fakeWindows) WindowAt(p win.Point) win.HWND {
	i := int(p.X / 100)
	if p.X < 0 || i >= len(f.columns) {
		return 0
	}
	return f.columns[i]
}

func (f *fakeWindows) Root(h win.HWND) win.HWND { return f.roots[h] }

func (f *fakeWindows) ClassName(h win.HWND) string {
	f.lookups++
	return f.classes[h]
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{
		// overlay widget, icon view, tooltip, editor
		columns: []win.HWND{0x10, 0x20, 0x30, 0x40},
		roots: map[win.HWND]win.HWND{
			0x10: 0x1,
			0x20: 0x2,
			0x40: 0x4,
		},
		classes: map[win.HWND]string{
			0x1:  "WorkerW",
			0x2:  "Progman",
			0x30: "tooltips_class32",
			0x4:  "Notepad",
		},
	}
}

func TestDesktopClassifier(t *testing.T) {
	c := NewDesktopClassifier(newFakeWindows(), nil)

	tests := []struct {
		name string
		at   win.Point
		want bool
	}{
		{"overlay under wallpaper worker", win.Point{X: 50, Y: 10}, true},
		{"icon view under progman", win.Point{X: 150, Y: 10}, true},
		{"icon tooltip", win.Point{X: 250, Y: 10}, true},
		{"application window", win.Point{X: 350, Y: 10}, false},
		{"nothing there", win.Point{X: 950, Y: 10}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.DesktopOwnedAt(tc.at); got != tc.want {
				t.Errorf("DesktopOwnedAt(%v) = %v; want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestDesktopClassifier_Caches(t *testing.T) {
	info := newFakeWindows()
	svc := cache.New(16, time.Minute)
	c := NewDesktopClassifier(info, svc)

	for i := 0; i < 5; i++ {
		c.DesktopOwnedAt(win.Point{X: 350, Y: 10})
	}

	if info.lookups != 1 {
		t.Errorf("class lookups = %d; want 1", info.lookups)
	}
	class, ok := svc.Get(0x40)
	if !ok || class.Name != "Notepad" || class.DesktopOwned {
		t.Errorf("cached class = %+v, %v", class, ok)
	}
}

func TestDesktopClassifier_VanishedWindowNotCached(t *testing.T) {
	info := newFakeWindows()
	// 0x50 is under the cursor but already destroyed: no class.
	info.columns = append(info.columns, 0x50)
	svc := cache.New(16, time.Minute)
	c := NewDesktopClassifier(info, svc)

	for i := 0; i < 3; i++ {
		if c.DesktopOwnedAt(win.Point{X: 450, Y: 10}) {
			t.Fatal("vanished window classified as desktop")
		}
	}
	if info.lookups != 3 {
		t.Errorf("class lookups = %d; want 3", info.lookups)
	}
	if s := c.CacheStats(); s.Size != 0 || s.Misses != 3 {
		t.Errorf("cache stats = %+v; want empty cache with 3 misses", s)
	}
}
