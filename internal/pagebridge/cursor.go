// Purpose: Owns cursor.go, the per-tab cursor position store (spec §3
// "Cursor state", §4.2 "Cursor persistence"). Single-writer: the engine
// reports, the bridge caches, so a new content-script instance after
// navigation resumes from the same point.
package pagebridge

import (
	"sync"

	"github.com/hugopalma17/human-browser/internal/engine"
)

// CursorStore caches the last-known cursor position per tab.
type CursorStore struct {
	mu   sync.RWMutex
	byTab map[int]engine.Point
}

// NewCursorStore builds an empty store.
func NewCursorStore() *CursorStore {
	return &CursorStore{byTab: make(map[int]engine.Point)}
}

// Report records tabID's cursor position, called by the interaction engine
// before a navigation replaces its content-script instance.
func (s *CursorStore) Report(tabID int, p engine.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTab[tabID] = p
}

// Get returns tabID's last-known position, defaulting to the origin if
// none was ever reported.
func (s *CursorStore) Get(tabID int) engine.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byTab[tabID]
}
