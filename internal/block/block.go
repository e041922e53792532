// Package block defines the page document model: typed blocks, their
// settings variants and the nested collections some types carry.
package block

import (
	"encoding/json"
	"fmt"

	"github.com/livetemplate/pagecraft/internal/style"
)

// Type is a block type tag from a closed set.
type Type string

const (
	TypeHeader    Type = "header"
	TypeFooter    Type = "footer"
	TypeContainer Type = "container"
	TypeStack     Type = "stack"
	TypeGrid      Type = "grid"
	TypeForm      Type = "form"
	TypeCanvas    Type = "canvas"
	TypeFreeform  Type = "freeform"
	TypeVariants  Type = "variants"

	TypeHeading Type = "heading"
	TypeText    Type = "text"
	TypeImage   Type = "image"
	TypeVideo   Type = "video"
	TypeButton  Type = "button"
	TypeIcon    Type = "icon"
	TypeDivider Type = "divider"

	TypeFormInput    Type = "form-input"
	TypeFormTextarea Type = "form-textarea"
	TypeFormSelect   Type = "form-select"
	TypeFormRadio    Type = "form-radio"
	TypeFormCheckbox Type = "form-checkbox"
	TypeFormButton   Type = "form-button"
)

// Types lists every block type in palette order.
var Types = []Type{
	TypeHeader, TypeFooter,
	TypeContainer, TypeStack, TypeGrid, TypeForm, TypeCanvas, TypeFreeform, TypeVariants,
	TypeHeading, TypeText, TypeImage, TypeVideo, TypeButton, TypeIcon, TypeDivider,
	TypeFormInput, TypeFormTextarea, TypeFormSelect, TypeFormRadio, TypeFormCheckbox, TypeFormButton,
}

// Valid reports whether t belongs to the closed type set.
func (t Type) Valid() bool {
	_, err := NewSettings(t)
	return err == nil
}

// Block is a node in the document tree.
type Block struct {
	ID            string       `json:"id"`
	Type          Type         `json:"type"`
	Name          string       `json:"name"`
	Settings      Settings     `json:"settings"`
	Styles        style.Styles `json:"styles"`
	Children      []*Block     `json:"children,omitempty"`
	SharedStyleID string       `json:"shared_style_id,omitempty"`
}

// Clone returns a deep copy of b including all descendants and items.
// IDs are preserved.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := &Block{
		ID:            b.ID,
		Type:          b.Type,
		Name:          b.Name,
		Styles:        b.Styles.Clone(),
		SharedStyleID: b.SharedStyleID,
	}
	if b.Settings != nil {
		out.Settings = b.Settings.clone()
	}
	if len(b.Children) > 0 {
		out.Children = make([]*Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Walk calls fn for b and every descendant in depth-first pre-order.
// Returning false from fn skips the node's children.
func (b *Block) Walk(fn func(*Block) bool) {
	if b == nil {
		return
	}
	if !fn(b) {
		return
	}
	for _, c := range b.Children {
		c.Walk(fn)
	}
}

// IDs returns the ids of b, its descendants and every nested-collection
// item they carry.
func (b *Block) IDs() []string {
	var ids []string
	b.Walk(func(n *Block) bool {
		ids = append(ids, n.ID)
		ids = append(ids, ItemIDs(n.Settings)...)
		return true
	})
	return ids
}

// Regenerate assigns fresh ids from newID to b, all descendants and all
// their nested-collection items. Structure, settings and styles are kept.
func (b *Block) Regenerate(newID func() string) {
	b.Walk(func(n *Block) bool {
		n.ID = newID()
		regenerateItems(n.Settings, newID)
		return true
	})
}

type blockJSON struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	Name          string          `json:"name"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	Styles        style.Styles    `json:"styles"`
	Children      []*Block        `json:"children,omitempty"`
	SharedStyleID string          `json:"shared_style_id,omitempty"`
}

// UnmarshalJSON decodes settings into the variant selected by the type tag.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	settings, err := NewSettings(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Settings) > 0 && string(raw.Settings) != "null" {
		if settings, err = decodeSettings(raw.Type, raw.Settings); err != nil {
			return fmt.Errorf("block %s: %w", raw.ID, err)
		}
	}
	*b = Block{
		ID:            raw.ID,
		Type:          raw.Type,
		Name:          raw.Name,
		Settings:      settings,
		Styles:        raw.Styles,
		Children:      raw.Children,
		SharedStyleID: raw.SharedStyleID,
	}
	return nil
}

// CloneAll deep-copies a block sequence.
func CloneAll(blocks []*Block) []*Block {
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
