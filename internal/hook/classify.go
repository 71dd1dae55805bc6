package hook

import (
	"deskweb/internal/cache"
	"deskweb/internal/win"
)

// WindowInfo is the window-manager query surface the classifier needs.
type WindowInfo interface {
	// WindowAt returns the topmost window at a screen point.
	WindowAt(p win.Point) win.HWND
	// Root returns the top-level ancestor of h.
	Root(h win.HWND) win.HWND
	// ClassName returns the registered class of h.
	ClassName(h win.HWND) string
}

// desktopRoots are top-level classes that belong to the desktop itself.
// Icon tooltips are top-level popups of the shell and count as desktop too,
// otherwise hovering an icon over the overlay would end the hover episode.
var desktopRoots = map[string]bool{
	"Progman":          true,
	"WorkerW":          true,
	"tooltips_class32": true,
}

// DesktopClassifier implements Classifier with a per-handle cache.
type DesktopClassifier struct {
	info  WindowInfo
	cache *cache.Service
}

// NewDesktopClassifier creates a classifier. A nil cache disables caching.
func NewDesktopClassifier(info WindowInfo, c *cache.Service) *DesktopClassifier {
	return &DesktopClassifier{info: info, cache: c}
}

// DesktopOwnedAt reports whether the topmost window at p is part of the
// desktop. The overlay is a child of the desktop layer once attached, so it
// is covered by the same test.
func (c *DesktopClassifier) DesktopOwnedAt(p win.Point) bool {
	h := c.info.WindowAt(p)
	if h == 0 {
		return false
	}

	if c.cache != nil {
		if class, ok := c.cache.Get(h); ok {
			return class.DesktopOwned
		}
	}

	root := c.info.Root(h)
	if root == 0 {
		root = h
	}
	name := c.info.ClassName(root)
	if name == "" {
		// The window went away under the cursor; its handle may be reused.
		if c.cache != nil {
			c.cache.Forget(h)
		}
		return false
	}
	class := cache.Class{Name: name, DesktopOwned: desktopRoots[name]}

	if c.cache != nil {
		c.cache.Set(h, class)
	}
	return class.DesktopOwned
}

// CacheStats reports the class cache counters; zero when caching is off.
func (c *DesktopClassifier) CacheStats() cache.CacheStats {
	if c.cache == nil {
		return cache.CacheStats{}
	}
	return c.cache.Stats()
}
