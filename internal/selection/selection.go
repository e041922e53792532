// Package selection tracks what the editor has selected and expanded, and
// the viewport and interaction state style edits apply to.
package selection

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/style"
)

// State is the selection and expansion state of one editing session.
type State struct {
	mu       sync.RWMutex
	selected string
	item     string
	multi    []string
	expanded map[string]bool
	viewport style.Viewport
	state    style.State
}

// New returns an empty selection editing the desktop viewport.
func New() *State {
	return &State{
		expanded: make(map[string]bool),
		viewport: style.Desktop,
		state:    style.StateNone,
	}
}

// Select makes blockID the single selection, with itemID naming a nested
// collection item inside it. An empty blockID clears the selection.
func (s *State) Select(blockID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = blockID
	s.item = ""
	s.multi = nil
	if blockID != "" {
		s.item = itemID
		s.multi = []string{blockID}
	}
}

// Toggle adds blockID to or removes it from the multi-selection. The
// primary selection follows the most recently added block.
func (s *State) Toggle(blockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blockID == "" {
		return
	}
	s.item = ""
	if i := slices.Index(s.multi, blockID); i >= 0 {
		s.multi = slices.Delete(s.multi, i, i+1)
		if s.selected == blockID {
			s.selected = ""
			if n := len(s.multi); n > 0 {
				s.selected = s.multi[n-1]
			}
		}
		return
	}
	s.multi = append(s.multi, blockID)
	s.selected = blockID
}

// Clear drops the selection. Expansion is kept.
func (s *State) Clear() {
	s.Select("", "")
}

// Selected returns the primary selected block id.
func (s *State) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectedItem returns the selected nested-collection item id.
func (s *State) SelectedItem() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item
}

// SelectedIDs returns the multi-selection in selection order.
func (s *State) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.multi)
}

// IsSelected reports whether id is part of the selection.
func (s *State) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.multi, id)
}

func (s *State) Expand(id string) {
	s.mu.Lock()
	s.expanded[id] = true
	s.mu.Unlock()
}

func (s *State) Collapse(id string) {
	s.mu.Lock()
	delete(s.expanded, id)
	s.mu.Unlock()
}

// ToggleExpanded flips id and returns the new state.
func (s *State) ToggleExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded[id] {
		delete(s.expanded, id)
		return false
	}
	s.expanded[id] = true
	return true
}

func (s *State) IsExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}

// ExpandedIDs returns the expanded ids, sorted.
func (s *State) ExpandedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := lo.Keys(s.expanded)
	slices.Sort(ids)
	return ids
}

// SetViewport sets the viewport style edits write to. Unknown viewports
// are ignored.
func (s *State) SetViewport(v style.Viewport) bool {
	if !v.Valid() {
		return false
	}
	s.mu.Lock()
	s.viewport = v
	s.mu.Unlock()
	return true
}

func (s *State) Viewport() style.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// SetStyleState sets the interaction state style edits write to.
func (s *State) SetStyleState(st style.State) bool {
	if !st.Valid() {
		return false
	}
	if st == "" {
		st = style.StateNone
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return true
}

func (s *State) StyleState() style.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Forget drops every reference to the removed ids. A removed primary
// selection moves to retarget, unless retarget was removed as well. A
// removed item id clears the item selection.
func (s *State) Forget(removed []string, retarget string) {
	if len(removed) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	gone := lo.SliceToMap(removed, func(id string) (string, bool) { return id, true })

	for id := range gone {
		delete(s.expanded, id)
	}
	s.multi = lo.Reject(s.multi, func(id string, _ int) bool { return gone[id] })
	if gone[s.item] {
		s.item = ""
	}
	if s.selected == "" || !gone[s.selected] {
		return
	}
	s.item = ""
	s.selected = ""
	if retarget != "" && !gone[retarget] {
		s.selected = retarget
		if !slices.Contains(s.multi, retarget) {
			s.multi = append(s.multi, retarget)
		}
	}
}

// Finder is the part of the tree store breadcrumbs need.
type Finder interface {
	FindBlockByID(id string) *block.Block
	FindParentBlock(id string) *block.Block
}

// Crumb is one entry of a breadcrumb path.
type Crumb struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type block.Type `json:"type"`
}

// Breadcrumb returns the path from the root down to id, id included. It is
// empty when id is not in the tree.
func Breadcrumb(f Finder, id string) []Crumb {
	b := f.FindBlockByID(id)
	if b == nil {
		return nil
	}
	path := []Crumb{{ID: b.ID, Name: b.Name, Type: b.Type}}
	for p := f.FindParentBlock(b.ID); p != nil; p = f.FindParentBlock(p.ID) {
		path = append(path, Crumb{ID: p.ID, Name: p.Name, Type: p.Type})
	}
	slices.Reverse(path)
	return path
}
