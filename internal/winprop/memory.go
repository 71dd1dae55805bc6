package winprop

import (
	"sync"

	"deskweb/internal/win"
)

// Memory is an in-process Store. It backs tests and platforms without a
// per-window property table. Every non-zero handle is alive until Destroy
// is called for it.
type Memory struct {
	mu        sync.Mutex
	props     map[win.HWND]map[string]uint64
	destroyed map[win.HWND]bool
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		props:     make(map[win.HWND]map[string]uint64),
		destroyed: make(map[win.HWND]bool),
	}
}

// Destroy simulates the window going away: its properties are dropped and
// later accesses fail with *PropertyAccessError.
func (m *Memory) Destroy(w win.HWND) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.props, w)
	m.destroyed[w] = true
}

func (m *Memory) Mark(w win.HWND, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliveLocked(w) {
		return &PropertyAccessError{Window: w, Name: name, Op: "mark"}
	}
	m.tableLocked(w)[name] = 1
	return nil
}

func (m *Memory) IsSet(w win.HWND, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliveLocked(w) {
		return false, &PropertyAccessError{Window: w, Name: name, Op: "test"}
	}
	return m.props[w][name] != 0, nil
}

func (m *Memory) Clear(w win.HWND, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliveLocked(w) {
		return &PropertyAccessError{Window: w, Name: name, Op: "clear"}
	}
	delete(m.props[w], name)
	return nil
}

func (m *Memory) Take(w win.HWND, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliveLocked(w) {
		return false, &PropertyAccessError{Window: w, Name: name, Op: "take"}
	}
	v := m.props[w][name]
	delete(m.props[w], name)
	return v != 0, nil
}

func (m *Memory) Increment(w win.HWND, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliveLocked(w) {
		return 0, &PropertyAccessError{Window: w, Name: name, Op: "increment"}
	}
	t := m.tableLocked(w)
	t[name]++
	return t[name], nil
}

func (m *Memory) Value(w win.HWND, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.aliveLocked(w) {
		return 0, &PropertyAccessError{Window: w, Name: name, Op: "read"}
	}
	return m.props[w][name], nil
}

func (m *Memory) aliveLocked(w win.HWND) bool {
	return w != 0 && !m.destroyed[w]
}

func (m *Memory) tableLocked(w win.HWND) map[string]uint64 {
	t, ok := m.props[w]
	if !ok {
		t = make(map[string]uint64)
		m.props[w] = t
	}
	return t
}
