package tree

import (
	"encoding/json"

	"github.com/livetemplate/pagecraft/internal/block"
)

// AddItem appends an item built from fields to collection kind of blockID
// and returns its new id, or "" when the block does not carry the
// collection.
func (s *Store) AddItem(blockID string, kind block.Collection, fields map[string]any) string {
	var id string
	s.mutate(func() (Change, bool) {
		e, ok := s.index[blockID]
		if !ok || !block.Supports(e.node.Type, kind) {
			s.reject(OpItems, blockID, "no "+string(kind)+" collection")
			return Change{}, false
		}
		settings := block.CloneSettings(e.node.Settings)
		newID := s.newID()
		if err := block.AddItem(settings, kind, -1, newID, fields); err != nil {
			s.reject(OpItems, blockID, err.Error())
			return Change{}, false
		}
		e.node.Settings = settings
		s.items[newID] = itemRef{blockID: blockID, kind: kind}
		id = newID
		return Change{Op: OpItems, BlockID: blockID, ParentID: idOf(e.parent)}, true
	})
	return id
}

// owner resolves an item id to its block, checking it belongs to blockID
// and kind.
func (s *Store) owner(blockID string, kind block.Collection, itemID string) (*entry, bool) {
	ref, ok := s.items[itemID]
	if !ok || ref.blockID != blockID || ref.kind != kind {
		return nil, false
	}
	return s.index[blockID], true
}

// UpdateItem merges patch into an item. The item id cannot change.
func (s *Store) UpdateItem(blockID string, kind block.Collection, itemID string, patch map[string]any) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.owner(blockID, kind, itemID)
		if !ok {
			s.reject(OpItems, itemID, "unknown item")
			return Change{}, false
		}
		settings := block.CloneSettings(e.node.Settings)
		if _, err := block.UpdateItem(settings, kind, itemID, patch); err != nil {
			s.reject(OpItems, itemID, err.Error())
			return Change{}, false
		}
		e.node.Settings = settings
		return Change{Op: OpItems, BlockID: blockID, ParentID: idOf(e.parent)}, true
	})
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(blockID string, kind block.Collection, itemID string) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.owner(blockID, kind, itemID)
		if !ok {
			s.reject(OpItems, itemID, "unknown item")
			return Change{}, false
		}
		block.DeleteItem(e.node.Settings, kind, itemID)
		delete(s.items, itemID)
		return Change{Op: OpItems, BlockID: blockID, ParentID: idOf(e.parent), Removed: []string{itemID}}, true
	})
}

// ReorderItems moves an item within its collection with move-and-shift
// semantics. Out-of-range indexes are a no-op.
func (s *Store) ReorderItems(blockID string, kind block.Collection, from, to int) bool {
	return s.mutate(func() (Change, bool) {
		e, ok := s.index[blockID]
		if !ok || from == to {
			return Change{}, false
		}
		if !block.MoveItem(e.node.Settings, kind, from, to) {
			s.reject(OpItems, blockID, "index out of range")
			return Change{}, false
		}
		return Change{Op: OpItems, BlockID: blockID, ParentID: idOf(e.parent)}, true
	})
}

// Items returns copies of the items of collection kind of blockID.
func (s *Store) Items(blockID string, kind block.Collection) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[blockID]
	if !ok {
		return nil
	}
	items, _ := block.Items(e.node.Settings, kind)
	return items
}

func fieldsOf(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	delete(m, "id")
	return m
}

// Header navigation links.

func (s *Store) AddHeaderNavLink(blockID string, link block.NavLink) string {
	return s.AddItem(blockID, block.CollectionNavLinks, fieldsOf(link))
}

func (s *Store) UpdateHeaderNavLink(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionNavLinks, itemID, patch)
}

func (s *Store) DeleteHeaderNavLink(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionNavLinks, itemID)
}

func (s *Store) ReorderHeaderNavLinks(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionNavLinks, from, to)
}

// Footer links.

func (s *Store) AddFooterLink(blockID string, link block.FooterLink) string {
	return s.AddItem(blockID, block.CollectionFooterLinks, fieldsOf(link))
}

func (s *Store) UpdateFooterLink(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionFooterLinks, itemID, patch)
}

func (s *Store) DeleteFooterLink(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionFooterLinks, itemID)
}

func (s *Store) ReorderFooterLinks(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionFooterLinks, from, to)
}

// Footer social links.

func (s *Store) AddFooterSocialLink(blockID string, link block.SocialLink) string {
	return s.AddItem(blockID, block.CollectionSocialLinks, fieldsOf(link))
}

func (s *Store) UpdateFooterSocialLink(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionSocialLinks, itemID, patch)
}

func (s *Store) DeleteFooterSocialLink(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionSocialLinks, itemID)
}

func (s *Store) ReorderFooterSocialLinks(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionSocialLinks, from, to)
}

// Form fields.

func (s *Store) AddFormField(blockID string, field block.FormField) string {
	return s.AddItem(blockID, block.CollectionFormFields, fieldsOf(field))
}

func (s *Store) UpdateFormField(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionFormFields, itemID, patch)
}

func (s *Store) DeleteFormField(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionFormFields, itemID)
}

func (s *Store) ReorderFormFields(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionFormFields, from, to)
}

// Options of select, radio and checkbox fields. An option's value follows
// its label until it is set to something else.

func (s *Store) AddFieldOption(blockID string, opt block.Option) string {
	return s.AddItem(blockID, block.CollectionOptions, fieldsOf(opt))
}

func (s *Store) UpdateFieldOption(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionOptions, itemID, patch)
}

func (s *Store) DeleteFieldOption(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionOptions, itemID)
}

func (s *Store) ReorderFieldOptions(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionOptions, from, to)
}

// Grid post items.

func (s *Store) AddPostItem(blockID string, post block.PostItem) string {
	return s.AddItem(blockID, block.CollectionPosts, fieldsOf(post))
}

func (s *Store) UpdatePostItem(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionPosts, itemID, patch)
}

func (s *Store) DeletePostItem(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionPosts, itemID)
}

func (s *Store) ReorderPostItems(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionPosts, from, to)
}

// Grid link items.

func (s *Store) AddLinkItem(blockID string, link block.LinkItem) string {
	return s.AddItem(blockID, block.CollectionGridLinks, fieldsOf(link))
}

func (s *Store) UpdateLinkItem(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionGridLinks, itemID, patch)
}

func (s *Store) DeleteLinkItem(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionGridLinks, itemID)
}

func (s *Store) ReorderLinkItems(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionGridLinks, from, to)
}

// Grid product items.

func (s *Store) AddProductItem(blockID string, product block.ProductItem) string {
	return s.AddItem(blockID, block.CollectionProducts, fieldsOf(product))
}

func (s *Store) UpdateProductItem(blockID, itemID string, patch map[string]any) bool {
	return s.UpdateItem(blockID, block.CollectionProducts, itemID, patch)
}

func (s *Store) DeleteProductItem(blockID, itemID string) bool {
	return s.DeleteItem(blockID, block.CollectionProducts, itemID)
}

func (s *Store) ReorderProductItems(blockID string, from, to int) bool {
	return s.ReorderItems(blockID, block.CollectionProducts, from, to)
}
