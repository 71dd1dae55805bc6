//go:build windows

package winprop

import (
	"golang.org/x/sys/windows"

	"deskweb/internal/win"
)

// Native is the Store backed by the window property table
// (SetPropW/GetPropW/RemovePropW). It is safe to use from the controlling
// process and from inside the render process.
type Native struct {
	names map[string]*uint16
}

// NewNative prepares the UTF-16 property names once so the hot path never
// allocates.
func NewNative() *Native {
	n := &Native{names: make(map[string]*uint16, len(Names))}
	for _, name := range Names {
		n.names[name] = windows.StringToUTF16Ptr(name)
	}
	return n
}

func (n *Native) name(s string) *uint16 {
	if p, ok := n.names[s]; ok {
		return p
	}
	return windows.StringToUTF16Ptr(s)
}

func (n *Native) Mark(w win.HWND, name string) error {
	if !win.IsWindow(w) {
		return &PropertyAccessError{Window: w, Name: name, Op: "mark"}
	}
	if !win.SetProp(w, n.name(name), 1) {
		return &PropertyAccessError{Window: w, Name: name, Op: "mark"}
	}
	return nil
}

func (n *Native) IsSet(w win.HWND, name string) (bool, error) {
	if !win.IsWindow(w) {
		return false, &PropertyAccessError{Window: w, Name: name, Op: "test"}
	}
	return win.GetProp(w, n.name(name)) != 0, nil
}

func (n *Native) Clear(w win.HWND, name string) error {
	if !win.IsWindow(w) {
		return &PropertyAccessError{Window: w, Name: name, Op: "clear"}
	}
	win.RemoveProp(w, n.name(name))
	return nil
}

// Take relies on RemovePropW returning the removed value, which makes the
// test and the clear a single call.
func (n *Native) Take(w win.HWND, name string) (bool, error) {
	if !win.IsWindow(w) {
		return false, &PropertyAccessError{Window: w, Name: name, Op: "take"}
	}
	return win.RemoveProp(w, n.name(name)) != 0, nil
}

// Increment is a read-modify-write; only the filter writes the counter and
// it does so from the window's own thread.
func (n *Native) Increment(w win.HWND, name string) (uint64, error) {
	if !win.IsWindow(w) {
		return 0, &PropertyAccessError{Window: w, Name: name, Op: "increment"}
	}
	p := n.name(name)
	next := win.GetProp(w, p) + 1
	if !win.SetProp(w, p, next) {
		return 0, &PropertyAccessError{Window: w, Name: name, Op: "increment"}
	}
	return uint64(next), nil
}

func (n *Native) Value(w win.HWND, name string) (uint64, error) {
	if !win.IsWindow(w) {
		return 0, &PropertyAccessError{Window: w, Name: name, Op: "read"}
	}
	return uint64(win.GetProp(w, n.name(name))), nil
}
