// Package tree is the block tree store: the ordered, nested document of
// blocks and every operation that mutates it.
//
// All mutations go through Store methods, which keep an id index of blocks
// and nested-collection items in step with the tree. Invalid requests, such
// as unknown ids, disallowed parent/child pairings, cycle-forming moves and
// edits of protected blocks, are silent no-ops reported by a nil or false
// result. A duplicate id reaching the index is a programming fault and
// panics.
//
// Reads return deep copies; callers never hold references into the tree.
package tree

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/logging"
	"github.com/livetemplate/pagecraft/internal/preset"
	"github.com/livetemplate/pagecraft/internal/registry"
)

// Op names the kind of mutation reported in a Change.
type Op string

const (
	OpAdd       Op = "add"
	OpDelete    Op = "delete"
	OpDuplicate Op = "duplicate"
	OpReorder   Op = "reorder"
	OpMove      Op = "move"
	OpWrap      Op = "wrap"
	OpConvert   Op = "convert"
	OpSettings  Op = "settings"
	OpStyles    Op = "styles"
	OpRename    Op = "rename"
	OpItems     Op = "items"
	OpInsert    Op = "insert"
	OpPage      Op = "page"
	OpReplace   Op = "replace"
)

// Change describes one applied mutation. ParentID is the parent the block
// ends up under ("" for root). Removed lists every block and item id that
// left the tree.
type Change struct {
	Op       Op       `json:"op"`
	BlockID  string   `json:"block_id,omitempty"`
	ParentID string   `json:"parent_id,omitempty"`
	Removed  []string `json:"removed,omitempty"`
}

type entry struct {
	node   *block.Block
	parent *block.Block // nil at root
}

type itemRef struct {
	blockID string
	kind    block.Collection
}

// Store owns one document.
type Store struct {
	mu        sync.RWMutex
	reg       *registry.Registry
	presets   *preset.Library
	newID     func() string
	log       zerolog.Logger
	root      []*block.Block
	page      PageSettings
	index     map[string]*entry
	items     map[string]itemRef
	listeners []func(Change)
}

// Option configures a Store.
type Option func(*Store)

// WithPresets sets the preset library used by layout, theme, component and
// list preset operations.
func WithPresets(lib *preset.Library) Option {
	return func(s *Store) { s.presets = lib }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an empty store.
func New(reg *registry.Registry, opts ...Option) *Store {
	s := &Store{
		reg:   reg,
		newID: uuid.NewString,
		log:   logging.Nop(),
		index: make(map[string]*entry),
		items: make(map[string]itemRef),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presets == nil {
		s.presets = preset.Default()
	}
	s.log = logging.Component(s.log, "tree")
	return s
}

// Registry returns the registry the store validates against.
func (s *Store) Registry() *registry.Registry { return s.reg }

// NewID returns a fresh id from the store's generator.
func (s *Store) NewID() string { return s.newID() }

// Presets returns the current preset library.
func (s *Store) Presets() *preset.Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets
}

// SetPresets swaps the preset library, e.g. after a directory reload.
func (s *Store) SetPresets(lib *preset.Library) {
	s.mu.Lock()
	s.presets = lib
	s.mu.Unlock()
}

// OnChange registers fn to run after every applied mutation. Listeners run
// synchronously, outside the store lock, in registration order.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// mutate runs fn under the write lock and notifies listeners when fn
// reports a change.
func (s *Store) mutate(fn func() (Change, bool)) bool {
	s.mu.Lock()
	c, ok := fn()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	if !ok {
		return false
	}
	for _, l := range listeners {
		l(c)
	}
	return true
}

func (s *Store) reject(op Op, id, reason string) {
	s.log.Debug().Str("op", string(op)).Str("id", id).Msg(reason)
}

// index maintenance

func (s *Store) indexBlock(b, parent *block.Block) {
	if _, dup := s.index[b.ID]; dup {
		panic(fmt.Sprintf("tree: duplicate block id %q", b.ID))
	}
	if _, dup := s.items[b.ID]; dup {
		panic(fmt.Sprintf("tree: block id %q collides with an item", b.ID))
	}
	s.index[b.ID] = &entry{node: b, parent: parent}
	s.indexItems(b)
}

func (s *Store) indexSubtree(b, parent *block.Block) {
	s.indexBlock(b, parent)
	for _, c := range b.Children {
		s.indexSubtree(c, b)
	}
}

func (s *Store) indexItems(b *block.Block) {
	for _, kind := range block.Collections {
		for _, id := range block.CollectionIDs(b.Settings, kind) {
			if _, dup := s.items[id]; dup {
				panic(fmt.Sprintf("tree: duplicate item id %q", id))
			}
			if _, dup := s.index[id]; dup && id != b.ID {
				panic(fmt.Sprintf("tree: item id %q collides with a block", id))
			}
			s.items[id] = itemRef{blockID: b.ID, kind: kind}
		}
	}
}

func (s *Store) unindexItems(b *block.Block) []string {
	ids := block.ItemIDs(b.Settings)
	for _, id := range ids {
		delete(s.items, id)
	}
	return ids
}

// unindexSubtree drops b and everything under it and returns the ids.
func (s *Store) unindexSubtree(b *block.Block) []string {
	var removed []string
	b.Walk(func(n *block.Block) bool {
		delete(s.index, n.ID)
		removed = append(removed, n.ID)
		removed = append(removed, s.unindexItems(n)...)
		return true
	})
	return removed
}

func (s *Store) rebuildIndex() {
	s.index = make(map[string]*entry)
	s.items = make(map[string]itemRef)
	for _, b := range s.root {
		s.indexSubtree(b, nil)
	}
}

// siblings returns the child slice of parent, or the root sequence.
func (s *Store) siblings(parent *block.Block) *[]*block.Block {
	if parent == nil {
		return &s.root
	}
	return &parent.Children
}

// container resolves a parent id to its block. The empty id is the root
// and yields a nil block with ok true.
func (s *Store) container(parentID string) (*block.Block, bool) {
	if parentID == "" {
		return nil, true
	}
	e, ok := s.index[parentID]
	if !ok {
		return nil, false
	}
	return e.node, true
}

func typeOf(b *block.Block) block.Type {
	if b == nil {
		return ""
	}
	return b.Type
}

func idOf(b *block.Block) string {
	if b == nil {
		return ""
	}
	return b.ID
}

func position(list []*block.Block, id string) int {
	return slices.IndexFunc(list, func(b *block.Block) bool { return b.ID == id })
}

// reads

// Blocks returns a deep copy of the root sequence.
func (s *Store) Blocks() []*block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return block.CloneAll(s.root)
}

// Len returns the number of blocks in the tree.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// FindBlockByID returns a copy of the block with id, or nil.
func (s *Store) FindBlockByID(id string) *block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok {
		return nil
	}
	return e.node.Clone()
}

// FindParentBlock returns a copy of the parent of id. It is nil for root
// blocks and unknown ids.
func (s *Store) FindParentBlock(id string) *block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok || e.parent == nil {
		return nil
	}
	return e.parent.Clone()
}

// ParentID returns the parent id of id ("" at root) and whether id exists.
func (s *Store) ParentID(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok {
		return "", false
	}
	return idOf(e.parent), true
}

// TypeOf returns the type of id.
func (s *Store) TypeOf(id string) (block.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok {
		return "", false
	}
	return e.node.Type, true
}

// IndexOf returns the position of id among its siblings, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok {
		return -1
	}
	return position(*s.siblings(e.parent), id)
}

// ChildIDs returns the ids of the children of parentID, or of the root
// sequence when parentID is empty.
func (s *Store) ChildIDs(parentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parent, ok := s.container(parentID)
	if !ok {
		return nil
	}
	list := *s.siblings(parent)
	ids := make([]string, len(list))
	for i, b := range list {
		ids[i] = b.ID
	}
	return ids
}

// Contains reports whether a block or item with id exists.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, isBlock := s.index[id]
	_, isItem := s.items[id]
	return isBlock || isItem
}

// IsDescendant reports whether id lies strictly inside the subtree of
// ancestor.
func (s *Store) IsDescendant(ancestor, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isDescendant(ancestor, id)
}

func (s *Store) isDescendant(ancestor, id string) bool {
	e, ok := s.index[id]
	for ok && e.parent != nil {
		if e.parent.ID == ancestor {
			return true
		}
		e, ok = s.index[e.parent.ID]
	}
	return false
}

// Ancestors returns the ids from the root down to the parent of id.
func (s *Store) Ancestors(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	e, ok := s.index[id]
	for ok && e.parent != nil {
		out = append(out, e.parent.ID)
		e, ok = s.index[e.parent.ID]
	}
	slices.Reverse(out)
	return out
}

// Item is a nested-collection item located by id.
type Item struct {
	BlockID    string           `json:"block_id"`
	Collection block.Collection `json:"collection"`
	Value      any              `json:"value"`
}

// FindItem locates a nested-collection item by id.
func (s *Store) FindItem(itemID string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.items[itemID]
	if !ok {
		return Item{}, false
	}
	settings := s.index[ref.blockID].node.Settings
	values, _ := block.Items(settings, ref.kind)
	i := block.ItemIndex(settings, ref.kind, itemID)
	return Item{BlockID: ref.blockID, Collection: ref.kind, Value: values[i]}, true
}

// ancestry predicates

// IsInsideListCollection reports whether an ancestor of id was built from a
// list preset. List containers are recognised by name against the display
// names of the current list presets.
func (s *Store) IsInsideListCollection(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.listContainer(id)
	return ok
}

// listContainer returns the nearest ancestor of id named after a list
// preset.
func (s *Store) listContainer(id string) (*block.Block, bool) {
	names := s.presets.ListNames()
	e, ok := s.index[id]
	for ok && e.parent != nil {
		if slices.Contains(names, e.parent.Name) {
			return e.parent, true
		}
		e, ok = s.index[e.parent.ID]
	}
	return nil, false
}

// IsDirectChildOfGrid reports whether the parent of id is a grid.
func (s *Store) IsDirectChildOfGrid(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	return ok && e.parent != nil && e.parent.Type == block.TypeGrid
}

// GetParentGridColumns returns the column count of the nearest grid
// ancestor of id, or 0 when there is none.
func (s *Store) GetParentGridColumns(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	for ok && e.parent != nil {
		if g, isGrid := e.parent.Settings.(*block.GridSettings); isGrid {
			return g.Columns
		}
		e, ok = s.index[e.parent.ID]
	}
	return 0
}
