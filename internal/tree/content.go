package tree

import (
	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/style"
)

// UpdateBlockSettings shallow-merges patch into the settings of id. Keys
// the block's settings do not have are dropped, nested collections are
// only changed through the item operations, and a nil value resets a field.
func (s *Store) UpdateBlockSettings(id string, patch map[string]any) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpSettings, id, "unknown block")
			return Change{}, false
		}
		merged, err := block.Merge(e.node.Settings, patch)
		if err != nil {
			s.reject(OpSettings, id, err.Error())
			return Change{}, false
		}
		e.node.Settings = merged
		return Change{Op: OpSettings, BlockID: id, ParentID: idOf(e.parent)}, true
	})
}

// UpdateBlockStyles shallow-merges patch into the styles of id, bucket by
// bucket.
func (s *Store) UpdateBlockStyles(id string, patch style.Patch) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpStyles, id, "unknown block")
			return Change{}, false
		}
		e.node.Styles = style.Apply(e.node.Styles, patch)
		return Change{Op: OpStyles, BlockID: id, ParentID: idOf(e.parent)}, true
	})
}

// ReplaceBlockStyles swaps the whole style record of id.
func (s *Store) ReplaceBlockStyles(id string, styles style.Styles) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpStyles, id, "unknown block")
			return Change{}, false
		}
		e.node.Styles = styles.Clone()
		return Change{Op: OpStyles, BlockID: id, ParentID: idOf(e.parent)}, true
	})
}

// ReplaceListStyles replaces the styles of id and of the matching block in
// every sibling item of the enclosing list collection. Items whose
// counterpart has OverwriteStyle set keep their own styles. Outside a list
// collection it behaves like ReplaceBlockStyles. It returns the ids that
// were restyled.
func (s *Store) ReplaceListStyles(id string, styles style.Styles) []string {
	var touched []string
	s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok {
			s.reject(OpStyles, id, "unknown block")
			return Change{}, false
		}
		touched = []string{id}
		e.node.Styles = styles.Clone()

		if container, ok := s.listContainer(id); ok {
			path, item := s.pathWithin(container, id)
			for _, sibling := range container.Children {
				if sibling == item {
					continue
				}
				target := follow(sibling, path)
				if target == nil || target.Type != e.node.Type || target.Styles.OverwriteStyle {
					continue
				}
				target.Styles = styles.Clone()
				target.Styles.OverwriteStyle = false
				touched = append(touched, target.ID)
			}
		}
		return Change{Op: OpStyles, BlockID: id, ParentID: idOf(e.parent)}, true
	})
	return touched
}

// pathWithin returns the child-index path from the list item containing id
// down to id, and that item.
func (s *Store) pathWithin(container *block.Block, id string) ([]int, *block.Block) {
	var path []int
	e := s.index[id]
	for e.parent != container {
		path = append([]int{position(e.parent.Children, e.node.ID)}, path...)
		e = s.index[e.parent.ID]
	}
	return path, e.node
}

func follow(b *block.Block, path []int) *block.Block {
	for _, i := range path {
		if i >= len(b.Children) {
			return nil
		}
		b = b.Children[i]
	}
	return b
}

// RenameBlock sets the display name of id.
func (s *Store) RenameBlock(id, name string) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok || e.node.Name == name {
			return Change{}, false
		}
		e.node.Name = name
		return Change{Op: OpRename, BlockID: id, ParentID: idOf(e.parent)}, true
	})
}

// SetSharedStyle links id to a shared style record, or unlinks it when
// sharedStyleID is empty.
func (s *Store) SetSharedStyle(id, sharedStyleID string) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[id]
		if !ok || e.node.SharedStyleID == sharedStyleID {
			return Change{}, false
		}
		e.node.SharedStyleID = sharedStyleID
		return Change{Op: OpStyles, BlockID: id, ParentID: idOf(e.parent)}, true
	})
}
