package core

import "sync"

// Clipboard holds at most one entry: the payload of the latest copy or cut.
// Paste reads it without consuming it.
type Clipboard struct {
	mu    sync.RWMutex
	entry *ClipboardEntry
}

// NewClipboard returns an empty clipboard.
func NewClipboard() *Clipboard { return &Clipboard{} }

// Set overwrites the live entry.
func (c *Clipboard) Set(entry ClipboardEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := entry.Clone()
	c.entry = &cp
}

// Get returns a copy of the live entry.
func (c *Clipboard) Get() (ClipboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return ClipboardEntry{}, false
	}
	return c.entry.Clone(), true
}

// Clear empties the clipboard.
func (c *Clipboard) Clear() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

func (c *Clipboard) clone() *Clipboard {
	out := NewClipboard()
	if entry, ok := c.Get(); ok {
		out.entry = &entry
	}
	return out
}
