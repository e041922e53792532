// Package pagecraft is a visual page builder model: a tree of typed blocks
// with responsive styles, edited through selection, drag and drop, presets
// and undoable operations.
//
// An Editor wires the block tree store with selection, drag and drop and
// history so that callers only deal with one object:
//
//	ed := pagecraft.NewEditor()
//	hero := ed.AddBlock(block.TypeStack, -1, "")
//	ed.AddBlock(block.TypeHeading, 0, hero.ID)
//	ed.Undo()
package pagecraft

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/config"
	"github.com/livetemplate/pagecraft/internal/dnd"
	"github.com/livetemplate/pagecraft/internal/history"
	"github.com/livetemplate/pagecraft/internal/logging"
	"github.com/livetemplate/pagecraft/internal/preset"
	"github.com/livetemplate/pagecraft/internal/registry"
	"github.com/livetemplate/pagecraft/internal/selection"
	"github.com/livetemplate/pagecraft/internal/style"
	"github.com/livetemplate/pagecraft/internal/tree"
)

// ErrImportRejected is returned when an imported block does not fit the
// layout named in the frontmatter.
var ErrImportRejected = errors.New("imported block rejected by layout")

// Editor is one editing session over one document.
type Editor struct {
	// mu serializes facade mutations so a history entry always matches the
	// change that follows it.
	mu sync.Mutex

	reg   *registry.Registry
	store *tree.Store
	sel   *selection.State
	drag  *dnd.Coordinator
	hist  *history.History[tree.Snapshot]
	log   zerolog.Logger
}

type options struct {
	presets      *preset.Library
	log          zerolog.Logger
	historyLimit int
	expandDelay  time.Duration
	newID        func() string
}

// Option configures an Editor.
type Option func(*options)

func WithPresets(lib *preset.Library) Option {
	return func(o *options) { o.presets = lib }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

func WithAutoExpandDelay(d time.Duration) Option {
	return func(o *options) { o.expandDelay = d }
}

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithConfig applies the editor section of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.historyLimit = cfg.Editor.GetHistoryLimit()
		o.expandDelay = cfg.Editor.GetAutoExpandDelay()
	}
}

// NewEditor returns an editor over an empty document.
func NewEditor(opts ...Option) *Editor {
	o := options{
		log:          logging.Nop(),
		historyLimit: history.DefaultLimit,
		expandDelay:  dnd.DefaultAutoExpandDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg := registry.New()
	storeOpts := []tree.Option{tree.WithLogger(o.log)}
	if o.presets != nil {
		storeOpts = append(storeOpts, tree.WithPresets(o.presets))
	}
	if o.newID != nil {
		storeOpts = append(storeOpts, tree.WithIDGenerator(o.newID))
	}

	e := &Editor{
		reg:   reg,
		store: tree.New(reg, storeOpts...),
		sel:   selection.New(),
		hist:  history.New[tree.Snapshot](o.historyLimit),
		log:   logging.Component(o.log, "editor"),
	}
	e.drag = dnd.New(e.store, e.sel, dnd.WithAutoExpandDelay(o.expandDelay), dnd.WithLogger(o.log))
	e.store.OnChange(e.onChange)
	return e
}

func (e *Editor) Registry() *registry.Registry { return e.reg }
func (e *Editor) Store() *tree.Store { return e.store }
func (e *Editor) Selection() *selection.State { return e.sel }
func (e *Editor) Coordinator() *dnd.Coordinator { return e.drag }

// Presets returns the current preset library.
func (e *Editor) Presets() *preset.Library { return e.store.Presets() }

// SetPresets swaps the preset library.
func (e *Editor) SetPresets(lib *preset.Library) { e.store.SetPresets(lib) }

// OnChange registers fn to run after every applied document change.
func (e *Editor) OnChange(fn func(tree.Change)) { e.store.OnChange(fn) }

// Document returns a copy of the whole document.
func (e *Editor) Document() tree.Snapshot { return e.store.Snapshot() }

// onChange keeps selection and expansion in step with the tree.
func (e *Editor) onChange(c tree.Change) {
	switch c.Op {
	case tree.OpDelete:
		e.sel.Forget(c.Removed, c.ParentID)
	case tree.OpConvert, tree.OpItems:
		e.sel.Forget(c.Removed, c.BlockID)
	case tree.OpAdd, tree.OpDuplicate, tree.OpInsert, tree.OpWrap:
		if c.ParentID != "" {
			e.sel.Expand(c.ParentID)
		}
		e.sel.Select(c.BlockID, "")
	case tree.OpMove:
		if c.ParentID != "" {
			e.sel.Expand(c.ParentID)
		}
	case tree.OpReplace:
		e.prune()
	}
}

// prune forgets selected and expanded ids that left the document.
func (e *Editor) prune() {
	var gone []string
	ids := append(e.sel.SelectedIDs(), e.sel.ExpandedIDs()...)
	if item := e.sel.SelectedItem(); item != "" {
		ids = append(ids, item)
	}
	for _, id := range ids {
		if !e.store.Contains(id) {
			gone = append(gone, id)
		}
	}
	e.sel.Forget(gone, "")
}

// apply runs fn and records the document as it was before when fn reports
// a change.
func (e *Editor) apply(fn func() bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := e.store.Snapshot()
	if !fn() {
		return false
	}
	e.hist.Record(before)
	return true
}

func (e *Editor) applyBlock(fn func() *block.Block) *block.Block {
	var out *block.Block
	e.apply(func() bool {
		out = fn()
		return out != nil
	})
	return out
}

func (e *Editor) applyErr(fn func() error) error {
	var err error
	e.apply(func() bool {
		err = fn()
		return err == nil
	})
	return err
}

// applyAll runs a multi-step fn as one change. When any step fails the
// document is put back as it was and nothing is recorded.
func (e *Editor) applyAll(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := e.store.Snapshot()
	if err := fn(); err != nil {
		if rerr := e.store.Replace(before); rerr != nil {
			e.log.Error().Err(rerr).Msg("rollback snapshot rejected")
		}
		return err
	}
	e.hist.Record(before)
	return nil
}

// Structure.

func (e *Editor) AddBlock(t block.Type, index int, parentID string) *block.Block {
	return e.applyBlock(func() *block.Block { return e.store.AddBlock(t, index, parentID) })
}

func (e *Editor) DeleteBlock(id string) bool {
	return e.apply(func() bool { return e.store.DeleteBlock(id) })
}

// DeleteSelected deletes every selected block and reports how many went.
func (e *Editor) DeleteSelected() int {
	n := 0
	e.apply(func() bool {
		for _, id := range e.sel.SelectedIDs() {
			if e.store.DeleteBlock(id) {
				n++
			}
		}
		return n > 0
	})
	return n
}

func (e *Editor) DuplicateBlock(id string) *block.Block {
	return e.applyBlock(func() *block.Block { return e.store.DuplicateBlock(id) })
}

func (e *Editor) ReorderBlocks(from, to int, parentID string) bool {
	return e.apply(func() bool { return e.store.ReorderBlocks(from, to, parentID) })
}

func (e *Editor) MoveBlockToParent(id, parentID string, index int) bool {
	return e.apply(func() bool { return e.store.MoveBlockToParent(id, parentID, index) })
}

func (e *Editor) MoveBlockToRoot(id string, index int) bool {
	return e.apply(func() bool { return e.store.MoveBlockToRoot(id, index) })
}

func (e *Editor) WrapBlockInStack(id string) *block.Block {
	return e.applyBlock(func() *block.Block { return e.store.WrapBlockInStack(id) })
}

// WrapBlocksInStack wraps ids, or the current multi-selection when ids is
// empty.
func (e *Editor) WrapBlocksInStack(ids []string) *block.Block {
	if len(ids) == 0 {
		ids = e.sel.SelectedIDs()
	}
	return e.applyBlock(func() *block.Block { return e.store.WrapBlocksInStack(ids) })
}

func (e *Editor) ConvertBlockType(id string, t block.Type) bool {
	return e.apply(func() bool { return e.store.ConvertBlockType(id, t) })
}

func (e *Editor) RenameBlock(id, name string) bool {
	return e.apply(func() bool { return e.store.RenameBlock(id, name) })
}

// SetSharedStyle links id to a shared style; an empty id unlinks it.
func (e *Editor) SetSharedStyle(id, sharedStyleID string) bool {
	return e.apply(func() bool { return e.store.SetSharedStyle(id, sharedStyleID) })
}

// Content.

func (e *Editor) UpdateBlockSettings(id string, patch map[string]any) bool {
	return e.apply(func() bool { return e.store.UpdateBlockSettings(id, patch) })
}

func (e *Editor) UpdateBlockStyles(id string, patch style.Patch) bool {
	return e.apply(func() bool { return e.store.UpdateBlockStyles(id, patch) })
}

func (e *Editor) ReplaceBlockStyles(id string, styles style.Styles) bool {
	return e.apply(func() bool { return e.store.ReplaceBlockStyles(id, styles) })
}

// UpdateStyles writes props into the bucket being edited: the current
// interaction state when one is set, otherwise the current viewport. An
// empty value resets a property to its inherited value. Inside a list
// collection the change is copied to the matching block of every sibling
// item that does not overwrite its style.
func (e *Editor) UpdateStyles(id string, props style.Props) bool {
	return e.apply(func() bool {
		b := e.store.FindBlockByID(id)
		if b == nil {
			return false
		}
		var next style.Styles
		if st := e.sel.StyleState(); st != style.StateNone {
			next = style.SetStateOverrides(b.Styles, st, props)
		} else {
			next = style.SetViewportOverrides(b.Styles, e.sel.Viewport(), props)
		}
		if !b.Styles.OverwriteStyle && e.store.IsInsideListCollection(id) {
			return len(e.store.ReplaceListStyles(id, next)) > 0
		}
		return e.store.ReplaceBlockStyles(id, next)
	})
}

// ResetStyle removes property from the bucket being edited.
func (e *Editor) ResetStyle(id, property string) bool {
	return e.UpdateStyles(id, style.Props{property: ""})
}

// SetOverwriteStyle exempts id from list-wide style edits, or joins it back.
func (e *Editor) SetOverwriteStyle(id string, on bool) bool {
	return e.apply(func() bool {
		return e.store.UpdateBlockStyles(id, style.Patch{OverwriteStyle: &on})
	})
}

// EffectiveStyles resolves the styles of id for the current viewport and
// interaction state, registry defaults included.
func (e *Editor) EffectiveStyles(id string) style.Props {
	b := e.store.FindBlockByID(id)
	if b == nil {
		return nil
	}
	return style.Resolve(b.Styles, e.sel.Viewport(), e.sel.StyleState(), e.reg.DefaultStyles(b.Type))
}

// Nested collections.

func (e *Editor) AddItem(blockID string, kind block.Collection, fields map[string]any) string {
	var id string
	e.apply(func() bool {
		id = e.store.AddItem(blockID, kind, fields)
		return id != ""
	})
	return id
}

func (e *Editor) UpdateItem(blockID string, kind block.Collection, itemID string, patch map[string]any) bool {
	return e.apply(func() bool { return e.store.UpdateItem(blockID, kind, itemID, patch) })
}

func (e *Editor) DeleteItem(blockID string, kind block.Collection, itemID string) bool {
	return e.apply(func() bool { return e.store.DeleteItem(blockID, kind, itemID) })
}

func (e *Editor) ReorderItems(blockID string, kind block.Collection, from, to int) bool {
	return e.apply(func() bool { return e.store.ReorderItems(blockID, kind, from, to) })
}

// Presets and bulk edits.

func (e *Editor) ApplyLayout(id string) error {
	return e.applyErr(func() error { return e.store.ApplyLayout(id) })
}

func (e *Editor) ApplyTheme(id string) error {
	return e.applyErr(func() error { return e.store.ApplyTheme(id) })
}

func (e *Editor) InsertComponent(id, parentID string, index int) ([]*block.Block, error) {
	var out []*block.Block
	err := e.applyErr(func() error {
		var err error
		out, err = e.store.InsertComponent(id, parentID, index)
		return err
	})
	return out, err
}

func (e *Editor) InsertListPreset(id, parentID string, index int) *block.Block {
	return e.applyBlock(func() *block.Block { return e.store.InsertListPreset(id, parentID, index) })
}

// Paste inserts a copy of b with fresh ids.
func (e *Editor) Paste(b *block.Block, parentID string, index int) *block.Block {
	return e.applyBlock(func() *block.Block { return e.store.InsertSubtree(b, parentID, index) })
}

// Load replaces the whole document. Invalid trees are rejected and leave
// the document unchanged.
func (e *Editor) Load(snap tree.Snapshot) error {
	return e.applyErr(func() error { return e.store.Replace(snap) })
}

func (e *Editor) UpdatePageSettings(patch map[string]any) bool {
	return e.apply(func() bool { return e.store.UpdatePageSettings(patch) })
}

// ImportMarkdown replaces the document with the blocks parsed from src.
// A layout named in the frontmatter is applied first and the parsed
// blocks are added to it; a theme is applied last. On error the document
// is left unchanged.
func (e *Editor) ImportMarkdown(src []byte) (*Document, error) {
	doc, err := ParseMarkdown(src, e.reg, e.store.NewID)
	if err != nil {
		return nil, err
	}
	fm := doc.Frontmatter
	if fm.Layout != "" {
		if _, err := e.Presets().Layout(fm.Layout); err != nil {
			return nil, err
		}
	}
	if fm.Theme != "" {
		if _, err := e.Presets().Theme(fm.Theme); err != nil {
			return nil, err
		}
	}

	err = e.applyAll(func() error {
		if fm.Layout != "" {
			if err := e.store.ApplyLayout(fm.Layout); err != nil {
				return err
			}
			for _, b := range doc.Blocks {
				if e.store.InsertSubtree(b, "", -1) == nil {
					return fmt.Errorf("%w: %s %s", ErrImportRejected, b.Type, fm.Layout)
				}
			}
		} else if err := e.store.Replace(tree.Snapshot{Blocks: doc.Blocks}); err != nil {
			return err
		}
		if fm.Theme != "" {
			if err := e.store.ApplyTheme(fm.Theme); err != nil {
				return err
			}
		}
		page := doc.Page()
		e.store.UpdatePageSettings(map[string]any{
			"title":       page.Title,
			"description": page.Description,
			"favicon":     page.Favicon,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.sel.Clear()
	return doc, nil
}

// Undo restores the document as it was before the last change.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.hist.Undo(e.store.Snapshot())
	if !ok {
		return false
	}
	if err := e.store.Replace(prev); err != nil {
		e.log.Error().Err(err).Msg("undo snapshot rejected")
		return false
	}
	return true
}

// Redo reapplies the last undone change.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, ok := e.hist.Redo(e.store.Snapshot())
	if !ok {
		return false
	}
	if err := e.store.Replace(next); err != nil {
		e.log.Error().Err(err).Msg("redo snapshot rejected")
		return false
	}
	return true
}

func (e *Editor) CanUndo() bool { return e.hist.CanUndo() }
func (e *Editor) CanRedo() bool { return e.hist.CanRedo() }

// Selection.

// Select selects blockID, and itemID inside it. Unknown ids clear the
// selection.
func (e *Editor) Select(blockID, itemID string) {
	if blockID != "" && !e.store.Contains(blockID) {
		blockID = ""
	}
	if itemID != "" && !e.store.Contains(itemID) {
		itemID = ""
	}
	e.sel.Select(blockID, itemID)
}

// ToggleSelection adds or removes blockID from the multi-selection.
func (e *Editor) ToggleSelection(blockID string) {
	if e.store.Contains(blockID) {
		e.sel.Toggle(blockID)
	}
}

// SelectedBlock returns a copy of the selected block, or nil.
func (e *Editor) SelectedBlock() *block.Block {
	id := e.sel.Selected()
	if id == "" {
		return nil
	}
	return e.store.FindBlockByID(id)
}

// Breadcrumb returns the path from the root to the selected block.
func (e *Editor) Breadcrumb() []selection.Crumb {
	return selection.Breadcrumb(e.store, e.sel.Selected())
}

// Drag and drop.

func (e *Editor) StartDrag(p dnd.Payload) bool { return e.drag.Start(p) }
func (e *Editor) DragOver(t dnd.Target) bool { return e.drag.Over(t) }
func (e *Editor) DragEnter(blockID string) { e.drag.Enter(blockID) }
func (e *Editor) DragLeave(blockID string) { e.drag.Leave(blockID) }
func (e *Editor) EndDrag() { e.drag.End() }

// Drop completes the active drag as one undoable change.
func (e *Editor) Drop() (dnd.Result, bool) {
	var res dnd.Result
	ok := e.apply(func() bool {
		var ok bool
		res, ok = e.drag.Drop()
		return ok
	})
	return res, ok
}
