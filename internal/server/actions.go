package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/dnd"
	"github.com/livetemplate/pagecraft/internal/style"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	// ErrRejected reports an edit the document refused, such as deleting a
	// protected block or moving a block into its own subtree.
	ErrRejected = errors.New("edit rejected")
)

// action runs one envelope against the editor. edits marks actions that
// can change the document and therefore trigger a broadcast.
type action struct {
	edits bool
	run   func(ed *pagecraft.Editor, env Envelope) (any, error)
}

type placement struct {
	ParentID string `json:"parent_id"`
	Index    *int   `json:"index"`
}

// index returns the requested position, or -1 to append.
func (p placement) index() int {
	if p.Index == nil {
		return -1
	}
	return *p.Index
}

type presetRef struct {
	ID string `json:"id"`
	placement
}

type itemRef struct {
	Kind block.Collection `json:"kind"`
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("invalid data: %w", err)
	}
	return v, nil
}

// check turns a false edit result into ErrRejected.
func check(ok bool) (any, error) {
	if !ok {
		return nil, ErrRejected
	}
	return nil, nil
}

func found(b *block.Block) (any, error) {
	if b == nil {
		return nil, ErrRejected
	}
	return b, nil
}

func edit(fn func(ed *pagecraft.Editor, env Envelope) (any, error)) action {
	return action{edits: true, run: fn}
}

func view(fn func(ed *pagecraft.Editor, env Envelope) (any, error)) action {
	return action{run: fn}
}

var actions = map[string]action{
	// Structure.
	"add": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Type block.Type `json:"type"`
			placement
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return found(ed.AddBlock(p.Type, p.index(), p.ParentID))
	}),
	"delete": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		return check(ed.DeleteBlock(env.BlockID))
	}),
	"delete_selected": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		n := ed.DeleteSelected()
		if n == 0 {
			return nil, ErrRejected
		}
		return n, nil
	}),
	"duplicate": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		return found(ed.DuplicateBlock(env.BlockID))
	}),
	"reorder": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			ParentID string `json:"parent_id"`
			From     int    `json:"from"`
			To       int    `json:"to"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.ReorderBlocks(p.From, p.To, p.ParentID))
	}),
	"move": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[placement](env.Data)
		if err != nil {
			return nil, err
		}
		if p.ParentID == "" {
			return check(ed.MoveBlockToRoot(env.BlockID, p.index()))
		}
		return check(ed.MoveBlockToParent(env.BlockID, p.ParentID, p.index()))
	}),
	"wrap": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			IDs []string `json:"ids"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		if env.BlockID != "" && len(p.IDs) == 0 {
			return found(ed.WrapBlockInStack(env.BlockID))
		}
		return found(ed.WrapBlocksInStack(p.IDs))
	}),
	"convert": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Type block.Type `json:"type"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.ConvertBlockType(env.BlockID, p.Type))
	}),
	"rename": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Name string `json:"name"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.RenameBlock(env.BlockID, p.Name))
	}),
	"shared_style": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			ID string `json:"id"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.SetSharedStyle(env.BlockID, p.ID))
	}),
	"paste": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Block *block.Block `json:"block"`
			placement
		}](env.Data)
		if err != nil {
			return nil, err
		}
		if p.Block == nil {
			return nil, fmt.Errorf("invalid data: missing block")
		}
		return found(ed.Paste(p.Block, p.ParentID, p.index()))
	}),

	// Content and styles.
	"update_settings": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		patch, err := decode[map[string]any](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.UpdateBlockSettings(env.BlockID, patch))
	}),
	"update_styles": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		props, err := decode[style.Props](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.UpdateStyles(env.BlockID, props))
	}),
	"patch_styles": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		patch, err := decode[style.Patch](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.UpdateBlockStyles(env.BlockID, patch))
	}),
	"replace_styles": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		styles, err := decode[style.Styles](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.ReplaceBlockStyles(env.BlockID, styles))
	}),
	"reset_style": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Property string `json:"property"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.ResetStyle(env.BlockID, p.Property))
	}),
	"overwrite_style": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			On bool `json:"on"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.SetOverwriteStyle(env.BlockID, p.On))
	}),
	"page": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		patch, err := decode[map[string]any](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.UpdatePageSettings(patch))
	}),

	// Nested collections.
	"add_item": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			itemRef
			Fields map[string]any `json:"fields"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		id := ed.AddItem(env.BlockID, p.Kind, p.Fields)
		if id == "" {
			return nil, ErrRejected
		}
		return id, nil
	}),
	"update_item": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			itemRef
			Patch map[string]any `json:"patch"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.UpdateItem(env.BlockID, p.Kind, env.ItemID, p.Patch))
	}),
	"delete_item": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[itemRef](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.DeleteItem(env.BlockID, p.Kind, env.ItemID))
	}),
	"reorder_items": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			itemRef
			From int `json:"from"`
			To   int `json:"to"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.ReorderItems(env.BlockID, p.Kind, p.From, p.To))
	}),

	// Presets.
	"apply_layout": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[presetRef](env.Data)
		if err != nil {
			return nil, err
		}
		return nil, ed.ApplyLayout(p.ID)
	}),
	"apply_theme": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[presetRef](env.Data)
		if err != nil {
			return nil, err
		}
		return nil, ed.ApplyTheme(p.ID)
	}),
	"insert_component": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[presetRef](env.Data)
		if err != nil {
			return nil, err
		}
		return ed.InsertComponent(p.ID, p.ParentID, p.index())
	}),
	"insert_list": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[presetRef](env.Data)
		if err != nil {
			return nil, err
		}
		return found(ed.InsertListPreset(p.ID, p.ParentID, p.index()))
	}),
	"import": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Markdown string `json:"markdown"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		doc, err := ed.ImportMarkdown([]byte(p.Markdown))
		if err != nil {
			return nil, err
		}
		return doc.Frontmatter, nil
	}),

	// History.
	"undo": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		return check(ed.Undo())
	}),
	"redo": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		return check(ed.Redo())
	}),

	// Selection and editing context.
	"select": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		ed.Select(env.BlockID, env.ItemID)
		return ed.Breadcrumb(), nil
	}),
	"toggle_select": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		ed.ToggleSelection(env.BlockID)
		return ed.Selection().SelectedIDs(), nil
	}),
	"expand": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		return ed.Selection().ToggleExpanded(env.BlockID), nil
	}),
	"viewport": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Viewport style.Viewport `json:"viewport"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.Selection().SetViewport(p.Viewport))
	}),
	"style_state": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			State style.State `json:"state"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.Selection().SetStyleState(p.State))
	}),
	"effective_styles": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		props := ed.EffectiveStyles(env.BlockID)
		if props == nil {
			return nil, ErrRejected
		}
		return props, nil
	}),

	// Drag and drop.
	"drag_start": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		p, err := decode[struct {
			Tag  string `json:"tag"`
			Data string `json:"data"`
		}](env.Data)
		if err != nil {
			return nil, err
		}
		payload, err := dnd.DecodePayload(p.Tag, p.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.StartDrag(payload))
	}),
	"drag_over": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		t, err := decode[dnd.Target](env.Data)
		if err != nil {
			return nil, err
		}
		return check(ed.DragOver(t))
	}),
	"drag_enter": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		ed.DragEnter(env.BlockID)
		return nil, nil
	}),
	"drag_leave": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		ed.DragLeave(env.BlockID)
		return nil, nil
	}),
	"drag_end": view(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		ed.EndDrag()
		return nil, nil
	}),
	"drop": edit(func(ed *pagecraft.Editor, env Envelope) (any, error) {
		res, ok := ed.Drop()
		if !ok {
			return nil, ErrRejected
		}
		return res, nil
	}),
}

// dispatch runs env and reports whether the document may have changed.
func (s *Server) dispatch(env Envelope) (any, bool, error) {
	a, ok := actions[env.Action]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
	result, err := a.run(s.editor, env)
	return result, a.edits && err == nil, err
}
