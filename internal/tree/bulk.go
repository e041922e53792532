package tree

import (
	"errors"
	"fmt"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/preset"
	"github.com/livetemplate/pagecraft/internal/registry"
	"github.com/livetemplate/pagecraft/internal/style"
)

// ErrInvalidTree is returned when a document or subtree handed to the store
// breaks a structural rule.
var ErrInvalidTree = errors.New("invalid block tree")

// Snapshot is a deep copy of a whole document.
type Snapshot struct {
	Blocks []*block.Block `json:"blocks"`
	Page   PageSettings   `json:"page"`
}

// Snapshot copies the current document.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Blocks: block.CloneAll(s.root), Page: s.page}
}

// Replace swaps the whole document for snap after validating it. Ids in
// snap are kept.
func (s *Store) Replace(snap Snapshot) error {
	blocks := block.CloneAll(snap.Blocks)
	if err := s.validateRoot(blocks); err != nil {
		return err
	}
	s.mutate(func() (Change, bool) {
		s.root = blocks
		s.page = snap.Page
		s.rebuildIndex()
		return Change{Op: OpReplace}, true
	})
	return nil
}

func (s *Store) builder() preset.Builder {
	return preset.Builder{Registry: s.reg, NewID: s.newID}
}

// ApplyLayout replaces the root sequence with a fresh copy of the layout
// and resets the page settings.
func (s *Store) ApplyLayout(id string) error {
	layout, err := s.Presets().Layout(id)
	if err != nil {
		return err
	}
	blocks, err := s.builder().Nodes(layout.Blocks, "")
	if err != nil {
		return fmt.Errorf("layout %s: %w", id, err)
	}
	if err := s.validateRoot(blocks); err != nil {
		return fmt.Errorf("layout %s: %w", id, err)
	}
	s.mutate(func() (Change, bool) {
		s.root = blocks
		s.page = PageSettings{}
		s.rebuildIndex()
		return Change{Op: OpReplace}, true
	})
	return nil
}

// ApplyTheme sets the page typography and colors of theme id and merges
// its per-type base styles into every matching block. A theme carrying
// blocks replaces the root sequence first.
func (s *Store) ApplyTheme(id string) error {
	theme, err := s.Presets().Theme(id)
	if err != nil {
		return err
	}
	var blocks []*block.Block
	if len(theme.Blocks) > 0 {
		if blocks, err = s.builder().Nodes(theme.Blocks, ""); err != nil {
			return fmt.Errorf("theme %s: %w", id, err)
		}
		if err := s.validateRoot(blocks); err != nil {
			return fmt.Errorf("theme %s: %w", id, err)
		}
	}
	s.mutate(func() (Change, bool) {
		if blocks != nil {
			s.root = blocks
			s.rebuildIndex()
		}
		s.page.Theme = theme.ID
		if theme.Font != "" {
			s.page.Font = theme.Font
		}
		if theme.PrimaryColor != "" {
			s.page.PrimaryColor = theme.PrimaryColor
		}
		if theme.BackgroundColor != "" {
			s.page.BackgroundColor = theme.BackgroundColor
		}
		for _, b := range s.root {
			b.Walk(func(n *block.Block) bool {
				if props, ok := theme.Styles[n.Type]; ok {
					n.Styles = style.Apply(n.Styles, style.Patch{Base: props})
				}
				return true
			})
		}
		return Change{Op: OpReplace}, true
	})
	return nil
}

// InsertComponent builds component id and inserts its blocks, in order,
// starting at index under parentID. It returns copies of the inserted
// blocks.
func (s *Store) InsertComponent(id, parentID string, index int) ([]*block.Block, error) {
	comp, err := s.Presets().Component(id)
	if err != nil {
		return nil, err
	}
	parentType, ok := s.TypeOf(parentID)
	if !ok && parentID != "" {
		return nil, fmt.Errorf("%w: unknown parent %s", ErrInvalidTree, parentID)
	}
	blocks, err := s.builder().Nodes(comp.Blocks, parentType)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", id, err)
	}

	var out []*block.Block
	var insertErr error
	s.mutate(func() (Change, bool) {
		parent, ok := s.container(parentID)
		if !ok {
			insertErr = fmt.Errorf("%w: unknown parent %s", ErrInvalidTree, parentID)
			return Change{}, false
		}
		for _, b := range blocks {
			if s.reg.IsSingleton(b.Type) && s.rootHas(b.Type) {
				insertErr = fmt.Errorf("%w: only one %s allowed", ErrInvalidTree, b.Type)
				return Change{}, false
			}
		}
		next := index
		for _, b := range blocks {
			at := s.insertSlot(parent, b.Type, next)
			s.insert(parent, b, at)
			switch {
			case parent != nil || s.reg.PinOf(b.Type) == registry.PinNone:
				next = at + 1
			case at < next:
				next++
			}
			out = append(out, b.Clone())
		}
		if len(blocks) == 0 {
			return Change{}, false
		}
		return Change{Op: OpInsert, BlockID: blocks[0].ID, ParentID: parentID}, true
	})
	if insertErr != nil {
		return nil, insertErr
	}
	return out, nil
}

// InsertListPreset builds list preset id as a container of repeated items
// and inserts it at index under parentID. It returns nil when the preset is
// unknown or the container is not allowed there.
func (s *Store) InsertListPreset(id, parentID string, index int) *block.Block {
	l, err := s.Presets().List(id)
	if err != nil {
		s.reject(OpInsert, id, err.Error())
		return nil
	}
	parentType, ok := s.TypeOf(parentID)
	if !ok && parentID != "" {
		s.reject(OpInsert, parentID, "unknown parent")
		return nil
	}
	b, err := s.builder().List(l, parentType)
	if err != nil {
		s.reject(OpInsert, id, err.Error())
		return nil
	}
	return s.InsertSubtree(b, parentID, index)
}

// InsertSubtree inserts a copy of b with fresh ids for every block and item
// at index under parentID. It returns the inserted copy, or nil when b does
// not fit there.
func (s *Store) InsertSubtree(b *block.Block, parentID string, index int) *block.Block {
	if b == nil {
		return nil
	}
	c := b.Clone()
	var out *block.Block
	s.mutate(func() (Change, bool) {
		parent, ok := s.container(parentID)
		if !ok {
			s.reject(OpInsert, parentID, "unknown parent")
			return Change{}, false
		}
		c.Regenerate(s.newID)
		if err := s.validateNode(c, typeOf(parent), map[string]bool{}); err != nil {
			s.reject(OpInsert, c.ID, err.Error())
			return Change{}, false
		}
		if s.reg.IsSingleton(c.Type) && s.rootHas(c.Type) {
			s.reject(OpInsert, c.ID, "only one "+string(c.Type)+" allowed")
			return Change{}, false
		}
		s.insert(parent, c, s.insertSlot(parent, c.Type, index))
		out = c.Clone()
		return Change{Op: OpInsert, BlockID: c.ID, ParentID: parentID}, true
	})
	return out
}

// validateRoot checks a candidate root sequence: containment, unique ids,
// singletons and pinned positions.
func (s *Store) validateRoot(blocks []*block.Block) error {
	seen := map[string]bool{}
	for _, b := range blocks {
		if b == nil {
			return fmt.Errorf("%w: nil block", ErrInvalidTree)
		}
		if err := s.validateNode(b, "", seen); err != nil {
			return err
		}
	}
	count := map[block.Type]int{}
	for i, b := range blocks {
		count[b.Type]++
		if s.reg.IsSingleton(b.Type) && count[b.Type] > 1 {
			return fmt.Errorf("%w: more than one %s", ErrInvalidTree, b.Type)
		}
		switch s.reg.PinOf(b.Type) {
		case registry.PinFirst:
			if i != 0 {
				return fmt.Errorf("%w: %s must come first", ErrInvalidTree, b.Type)
			}
		case registry.PinLast:
			if i != len(blocks)-1 {
				return fmt.Errorf("%w: %s must come last", ErrInvalidTree, b.Type)
			}
		}
	}
	return nil
}

// validateNode checks b and its subtree. seen collects ids across calls.
func (s *Store) validateNode(b *block.Block, parent block.Type, seen map[string]bool) error {
	if _, ok := s.reg.Get(b.Type); !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTree, b.Type)
	}
	if !s.reg.CanContain(parent, b.Type) {
		return fmt.Errorf("%w: %s not allowed in %q", ErrInvalidTree, b.Type, parent)
	}
	if b.Settings == nil {
		settings, err := block.NewSettings(b.Type)
		if err != nil {
			return err
		}
		b.Settings = settings
	}
	if b.Settings.Type() != b.Type {
		return fmt.Errorf("%w: %s block carries %s settings", ErrInvalidTree, b.Type, b.Settings.Type())
	}
	block.FillItemIDs(b.Settings, s.newID)
	ids := append([]string{b.ID}, block.ItemIDs(b.Settings)...)
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty id in %s", ErrInvalidTree, b.Type)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidTree, id)
		}
		seen[id] = true
	}
	for _, c := range b.Children {
		if c == nil {
			return fmt.Errorf("%w: nil child of %s", ErrInvalidTree, b.ID)
		}
		if err := s.validateNode(c, b.Type, seen); err != nil {
			return err
		}
	}
	return nil
}
