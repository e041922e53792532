package tree

import (
	"slices"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/registry"
)

// rootSlots returns the range of root positions unpinned blocks may take:
// lo skips a leading first-pinned block, hi stops before a trailing
// last-pinned block. Both are insertion slots.
func (s *Store) rootSlots() (lo, hi int) {
	n := len(s.root)
	hi = n
	if n > 0 && s.reg.PinOf(s.root[0].Type) == registry.PinFirst {
		lo = 1
	}
	if n > lo && s.reg.PinOf(s.root[n-1].Type) == registry.PinLast {
		hi = n - 1
	}
	return lo, hi
}

// insertSlot resolves a requested index for a block of type t into a slot
// in the children of parent. Negative or oversized indexes append; root
// slots are clamped clear of pinned blocks.
func (s *Store) insertSlot(parent *block.Block, t block.Type, index int) int {
	list := *s.siblings(parent)
	if parent != nil {
		if index < 0 || index > len(list) {
			return len(list)
		}
		return index
	}
	switch s.reg.PinOf(t) {
	case registry.PinFirst:
		return 0
	case registry.PinLast:
		return len(list)
	}
	lo, hi := s.rootSlots()
	if index < 0 || index > hi {
		return hi
	}
	return max(index, lo)
}

func (s *Store) insert(parent, b *block.Block, slot int) {
	list := s.siblings(parent)
	*list = block.Insert(*list, slot, b)
	s.indexSubtree(b, parent)
}

// detach removes the block of e from its sibling list and returns its
// former position. The index is left untouched.
func (s *Store) detach(e *entry) int {
	list := s.siblings(e.parent)
	i := position(*list, e.node.ID)
	*list = block.Remove(*list, i)
	return i
}

func (s *Store) rootHas(t block.Type) bool {
	return slices.ContainsFunc(s.root, func(b *block.Block) bool { return b.Type == t })
}

// AddBlock creates a block of type t with default settings and inserts it
// at index under parentID ("" for root). A negative index appends. Header
// and footer always land at the ends of the root sequence. It returns a
// copy of the new block, or nil when the type is unknown, not allowed under
// the parent, or a second singleton.
func (s *Store) AddBlock(t block.Type, index int, parentID string) *block.Block {
	var out *block.Block
	s.mutate(func() (Change, bool) {
		parent, ok := s.container(parentID)
		if !ok {
			s.reject(OpAdd, parentID, "unknown parent")
			return Change{}, false
		}
		if !s.reg.CanContain(typeOf(parent), t) {
			s.reject(OpAdd, parentID, "type "+string(t)+" not allowed here")
			return Change{}, false
		}
		if s.reg.IsSingleton(t) && s.rootHas(t) {
			s.reject(OpAdd, parentID, "only one "+string(t)+" allowed")
			return Change{}, false
		}
		b, err := s.reg.NewBlock(t, s.newID(), s.newID)
		if err != nil {
			s.reject(OpAdd, parentID, err.Error())
			return Change{}, false
		}
		s.insert(parent, b, s.insertSlot(parent, t, index))
		out = b.Clone()
		return Change{Op: OpAdd, BlockID: b.ID, ParentID: parentID}, true
	})
	return out
}

// DeleteBlock removes id and its whole subtree. Protected blocks and
// unknown ids are left alone.
func (s *Store) DeleteBlock(id string) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpDelete, id, "unknown block")
			return Change{}, false
		}
		if s.reg.IsProtected(e.node.Type) {
			s.reject(OpDelete, id, "protected block")
			return Change{}, false
		}
		s.detach(e)
		removed := s.unindexSubtree(e.node)
		return Change{Op: OpDelete, BlockID: id, ParentID: idOf(e.parent), Removed: removed}, true
	})
}

// DuplicateBlock deep-copies id with fresh ids for every block and item in
// the copy and inserts it right after the source.
func (s *Store) DuplicateBlock(id string) *block.Block {
	var out *block.Block
	s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpDuplicate, id, "unknown block")
			return Change{}, false
		}
		if s.reg.IsProtected(e.node.Type) {
			s.reject(OpDuplicate, id, "protected block")
			return Change{}, false
		}
		c := e.node.Clone()
		c.Regenerate(s.newID)
		i := position(*s.siblings(e.parent), id)
		s.insert(e.parent, c, i+1)
		out = c.Clone()
		return Change{Op: OpDuplicate, BlockID: c.ID, ParentID: idOf(e.parent)}, true
	})
	return out
}

// ReorderBlocks moves the sibling at from to position to within parentID
// ("" for root), shifting the blocks in between. Out-of-range indexes and
// protected blocks are rejected; root destinations are clamped clear of
// pinned blocks. It reports whether the order changed.
func (s *Store) ReorderBlocks(from, to int, parentID string) bool {
	return s.mutate(func() (Change, bool) {
		parent, ok := s.container(parentID)
		if !ok {
			s.reject(OpReorder, parentID, "unknown parent")
			return Change{}, false
		}
		list := *s.siblings(parent)
		if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
			s.reject(OpReorder, parentID, "index out of range")
			return Change{}, false
		}
		if s.reg.IsProtected(list[from].Type) {
			s.reject(OpReorder, list[from].ID, "protected block")
			return Change{}, false
		}
		if parent == nil {
			lo, hi := s.rootSlots()
			to = min(max(to, lo), hi-1)
		}
		if from == to {
			return Change{}, false
		}
		block.Move(list, from, to)
		return Change{Op: OpReorder, BlockID: list[to].ID, ParentID: parentID}, true
	})
}

// MoveBlockToParent detaches id and reinserts it under parentID at index,
// where index is the final position after detaching. Moves into the
// block's own subtree, disallowed pairings and protected blocks are
// rejected. An empty parentID moves to root.
func (s *Store) MoveBlockToParent(id, parentID string, index int) bool {
	return s.mutate(func() (Change, bool) {
		return s.move(id, parentID, index)
	})
}

// MoveBlockToRoot is MoveBlockToParent with the root as destination.
func (s *Store) MoveBlockToRoot(id string, index int) bool {
	return s.MoveBlockToParent(id, "", index)
}

func (s *Store) move(id, parentID string, index int) (Change, bool) {
	e, ok := s.index[id]
	if !ok {
		s.reject(OpMove, id, "unknown block")
		return Change{}, false
	}
	if s.reg.IsProtected(e.node.Type) {
		s.reject(OpMove, id, "protected block")
		return Change{}, false
	}
	parent, ok := s.container(parentID)
	if !ok {
		s.reject(OpMove, parentID, "unknown parent")
		return Change{}, false
	}
	if parentID == id || s.isDescendant(id, parentID) {
		s.reject(OpMove, id, "move into own subtree")
		return Change{}, false
	}
	if !s.reg.CanContain(typeOf(parent), e.node.Type) {
		s.reject(OpMove, id, "type not allowed in target")
		return Change{}, false
	}

	oldParent := e.parent
	oldIndex := s.detach(e)
	slot := s.insertSlot(parent, e.node.Type, index)
	list := s.siblings(parent)
	*list = block.Insert(*list, slot, e.node)
	e.parent = parent

	if oldParent == parent && oldIndex == slot {
		return Change{}, false
	}
	return Change{Op: OpMove, BlockID: id, ParentID: parentID}, true
}

// WrapBlockInStack puts id inside a new stack at its position.
func (s *Store) WrapBlockInStack(id string) *block.Block {
	return s.WrapBlocksInStack([]string{id})
}

// WrapBlocksInStack moves sibling blocks into a new stack placed where the
// first of them (in sibling order) was. Relative order is kept. All ids
// must share a parent.
func (s *Store) WrapBlocksInStack(ids []string) *block.Block {
	var out *block.Block
	s.mutate(func() (Change, bool) {
		if len(ids) == 0 {
			return Change{}, false
		}
		first, ok := s.index[ids[0]]
		if !ok {
			s.reject(OpWrap, ids[0], "unknown block")
			return Change{}, false
		}
		parent := first.parent
		if !s.reg.CanContain(typeOf(parent), block.TypeStack) {
			s.reject(OpWrap, idOf(parent), "stack not allowed here")
			return Change{}, false
		}

		list := s.siblings(parent)
		var positions []int
		for _, id := range ids {
			e, ok := s.index[id]
			if !ok || e.parent != parent {
				s.reject(OpWrap, id, "not a sibling")
				return Change{}, false
			}
			if s.reg.IsProtected(e.node.Type) || !s.reg.CanContain(block.TypeStack, e.node.Type) {
				s.reject(OpWrap, id, "cannot be wrapped")
				return Change{}, false
			}
			i := position(*list, id)
			if slices.Contains(positions, i) {
				s.reject(OpWrap, id, "listed twice")
				return Change{}, false
			}
			positions = append(positions, i)
		}
		slices.Sort(positions)

		stack, err := s.reg.NewBlock(block.TypeStack, s.newID(), s.newID)
		if err != nil {
			s.reject(OpWrap, "", err.Error())
			return Change{}, false
		}
		for _, i := range positions {
			stack.Children = append(stack.Children, (*list)[i])
		}
		for i := len(positions) - 1; i >= 0; i-- {
			*list = block.Remove(*list, positions[i])
		}
		*list = block.Insert(*list, positions[0], stack)

		s.indexBlock(stack, parent)
		for _, c := range stack.Children {
			s.index[c.ID].parent = stack
		}
		out = stack.Clone()
		return Change{Op: OpWrap, BlockID: stack.ID, ParentID: idOf(parent)}, true
	})
	return out
}

// ConvertBlockType changes the type of id in place. Only registry
// conversion pairs are allowed; settings are remapped through the pair's
// renames, and the conversion is rejected when the parent or the existing
// children would no longer fit.
func (s *Store) ConvertBlockType(id string, to block.Type) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpConvert, id, "unknown block")
			return Change{}, false
		}
		from := e.node.Type
		conv, ok := s.reg.Conversion(from, to)
		if !ok {
			s.reject(OpConvert, id, "no conversion from "+string(from)+" to "+string(to))
			return Change{}, false
		}
		if !s.reg.CanContain(typeOf(e.parent), to) {
			s.reject(OpConvert, id, "target type not allowed in parent")
			return Change{}, false
		}
		for _, c := range e.node.Children {
			if !s.reg.CanContain(to, c.Type) {
				s.reject(OpConvert, id, "children not allowed in target type")
				return Change{}, false
			}
		}
		settings, err := block.Convert(e.node.Settings, to, conv.Renames)
		if err != nil {
			s.reject(OpConvert, id, err.Error())
			return Change{}, false
		}
		block.FillItemIDs(settings, s.newID)

		before := s.unindexItems(e.node)
		if def, ok := s.reg.Get(from); ok && e.node.Name == def.Name {
			if next, ok := s.reg.Get(to); ok {
				e.node.Name = next.Name
			}
		}
		e.node.Type = to
		e.node.Settings = settings
		s.indexItems(e.node)

		after := block.ItemIDs(settings)
		removed := slices.DeleteFunc(before, func(id string) bool { return slices.Contains(after, id) })
		return Change{Op: OpConvert, BlockID: id, ParentID: idOf(e.parent), Removed: removed}, true
	})
}
