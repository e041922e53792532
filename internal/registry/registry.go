// Package registry holds the static block type metadata: categories, which
// types may contain which, structural protection and the conversion table.
package registry

import (
	"maps"
	"slices"

	"github.com/samber/lo"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/style"
)

// Category groups block types in the palette.
type Category string

const (
	CategorySection Category = "section"
	CategoryLayout  Category = "layout"
	CategoryContent Category = "content"
	CategoryForm    Category = "form"
)

// Pin fixes a root block to one end of the root sequence.
type Pin int

const (
	PinNone Pin = iota
	PinFirst
	PinLast
)

// Definition describes one block type.
type Definition struct {
	Type            block.Type   `json:"type"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Category        Category     `json:"category"`
	Icon            string       `json:"icon"`
	CanHaveChildren bool         `json:"can_have_children"`
	Allowed         []block.Type `json:"allowed_children,omitempty"`

	// Protected blocks cannot be deleted, duplicated, reordered or moved.
	Protected bool `json:"protected,omitempty"`
	RootOnly  bool `json:"root_only,omitempty"`
	Singleton bool `json:"singleton,omitempty"`
	Pin       Pin  `json:"pin,omitempty"`

	DefaultStyles style.Props `json:"default_styles,omitempty"`
}

// Conversion is an allowed in-place type change. Renames maps settings keys
// of the source type to keys of the target type.
type Conversion struct {
	From    block.Type        `json:"from"`
	To      block.Type        `json:"to"`
	Renames map[string]string `json:"renames,omitempty"`
}

type pair struct{ from, to block.Type }

// Registry is an immutable lookup table. The zero value is empty; use New.
type Registry struct {
	defs        map[block.Type]Definition
	rootAllowed []block.Type
	conversions map[pair]Conversion
}

var (
	contentTypes = []block.Type{
		block.TypeHeading, block.TypeText, block.TypeImage, block.TypeVideo,
		block.TypeButton, block.TypeIcon, block.TypeDivider,
	}
	layoutTypes = []block.Type{
		block.TypeContainer, block.TypeStack, block.TypeGrid, block.TypeForm,
		block.TypeCanvas, block.TypeFreeform, block.TypeVariants,
	}
	formFieldTypes = []block.Type{
		block.TypeFormInput, block.TypeFormTextarea, block.TypeFormSelect,
		block.TypeFormRadio, block.TypeFormCheckbox, block.TypeFormButton,
	}
)

// New returns the built-in registry.
func New() *Registry {
	nested := lo.Flatten([][]block.Type{layoutTypes, contentTypes})

	defs := []Definition{
		{Type: block.TypeHeader, Name: "Header", Category: CategorySection, Icon: "panel-top",
			Description: "Site header with logo and navigation links",
			Protected:   true, RootOnly: true, Singleton: true, Pin: PinFirst,
			DefaultStyles: style.Props{"padding": "16px 24px", "background": "#ffffff"}},
		{Type: block.TypeFooter, Name: "Footer", Category: CategorySection, Icon: "panel-bottom",
			Description: "Site footer with links and social profiles",
			Protected:   true, RootOnly: true, Singleton: true, Pin: PinLast,
			DefaultStyles: style.Props{"padding": "32px 24px", "background": "#f5f5f5"}},

		{Type: block.TypeContainer, Name: "Container", Category: CategoryLayout, Icon: "square",
			Description: "Centered, width-constrained wrapper", CanHaveChildren: true, Allowed: nested,
			DefaultStyles: style.Props{"padding": "24px", "margin": "0 auto"}},
		{Type: block.TypeStack, Name: "Stack", Category: CategoryLayout, Icon: "rows",
			Description: "Children laid out in a row or column", CanHaveChildren: true, Allowed: nested,
			DefaultStyles: style.Props{"display": "flex", "flex-direction": "column", "gap": "16px"}},
		{Type: block.TypeGrid, Name: "Grid", Category: CategoryLayout, Icon: "grid",
			Description: "Children or list items in columns", CanHaveChildren: true, Allowed: nested,
			DefaultStyles: style.Props{"display": "grid", "gap": "16px"}},
		{Type: block.TypeForm, Name: "Form", Category: CategoryLayout, Icon: "clipboard",
			Description: "Form with input fields", CanHaveChildren: true, Allowed: formFieldTypes,
			DefaultStyles: style.Props{"display": "flex", "flex-direction": "column", "gap": "12px"}},
		{Type: block.TypeCanvas, Name: "Canvas", Category: CategoryLayout, Icon: "frame",
			Description: "Fixed-size drawing area", CanHaveChildren: true, Allowed: nested,
			DefaultStyles: style.Props{"position": "relative"}},
		{Type: block.TypeFreeform, Name: "Freeform", Category: CategoryLayout, Icon: "move",
			Description: "Absolutely positioned children", CanHaveChildren: true, Allowed: nested,
			DefaultStyles: style.Props{"position": "relative"}},
		{Type: block.TypeVariants, Name: "Variants", Category: CategoryLayout, Icon: "layers",
			Description: "Alternative versions of a section", CanHaveChildren: true,
			Allowed: []block.Type{block.TypeStack, block.TypeContainer}},

		{Type: block.TypeHeading, Name: "Heading", Category: CategoryContent, Icon: "heading",
			DefaultStyles: style.Props{"font-weight": "700", "margin": "0"}},
		{Type: block.TypeText, Name: "Text", Category: CategoryContent, Icon: "type",
			DefaultStyles: style.Props{"margin": "0"}},
		{Type: block.TypeImage, Name: "Image", Category: CategoryContent, Icon: "image",
			DefaultStyles: style.Props{"max-width": "100%"}},
		{Type: block.TypeVideo, Name: "Video", Category: CategoryContent, Icon: "video",
			DefaultStyles: style.Props{"width": "100%"}},
		{Type: block.TypeButton, Name: "Button", Category: CategoryContent, Icon: "mouse-pointer",
			DefaultStyles: style.Props{"padding": "8px 16px", "border-radius": "4px"}},
		{Type: block.TypeIcon, Name: "Icon", Category: CategoryContent, Icon: "star"},
		{Type: block.TypeDivider, Name: "Divider", Category: CategoryContent, Icon: "minus",
			DefaultStyles: style.Props{"border-top": "1px solid #e5e5e5"}},

		{Type: block.TypeFormInput, Name: "Input", Category: CategoryForm, Icon: "text-cursor"},
		{Type: block.TypeFormTextarea, Name: "Textarea", Category: CategoryForm, Icon: "align-left"},
		{Type: block.TypeFormSelect, Name: "Select", Category: CategoryForm, Icon: "chevron-down"},
		{Type: block.TypeFormRadio, Name: "Radio", Category: CategoryForm, Icon: "circle-dot"},
		{Type: block.TypeFormCheckbox, Name: "Checkbox", Category: CategoryForm, Icon: "check-square"},
		{Type: block.TypeFormButton, Name: "Submit Button", Category: CategoryForm, Icon: "send"},
	}

	r := &Registry{
		defs:        make(map[block.Type]Definition, len(defs)),
		rootAllowed: lo.Without(block.Types, formFieldTypes...),
		conversions: make(map[pair]Conversion),
	}
	for _, d := range defs {
		r.defs[d.Type] = d
	}

	r.addGroup(block.TypeStack, block.TypeGrid, block.TypeContainer)
	r.addGroup(block.TypeHeading, block.TypeText)
	r.addGroup(block.TypeFormInput, block.TypeFormTextarea)
	r.addGroup(block.TypeFormSelect, block.TypeFormRadio, block.TypeFormCheckbox)
	r.add(Conversion{From: block.TypeButton, To: block.TypeText, Renames: map[string]string{"url": "link"}})
	r.add(Conversion{From: block.TypeText, To: block.TypeButton, Renames: map[string]string{"link": "url"}})

	return r
}

func (r *Registry) add(c Conversion) {
	r.conversions[pair{c.From, c.To}] = c
}

// addGroup makes every type in types convertible to every other.
func (r *Registry) addGroup(types ...block.Type) {
	for _, from := range types {
		for _, to := range types {
			if from != to {
				r.add(Conversion{From: from, To: to})
			}
		}
	}
}

// Get returns the definition for t.
func (r *Registry) Get(t block.Type) (Definition, bool) {
	d, ok := r.defs[t]
	return d, ok
}

// Definitions returns every definition in palette order.
func (r *Registry) Definitions() []Definition {
	return lo.FilterMap(block.Types, func(t block.Type, _ int) (Definition, bool) {
		return r.Get(t)
	})
}

// ByCategory returns the definitions in category c in palette order.
func (r *Registry) ByCategory(c Category) []Definition {
	return lo.Filter(r.Definitions(), func(d Definition, _ int) bool {
		return d.Category == c
	})
}

// CanHaveChildren reports whether blocks of type t hold child blocks.
func (r *Registry) CanHaveChildren(t block.Type) bool {
	return r.defs[t].CanHaveChildren
}

// IsLayout reports whether t is a layout type.
func (r *Registry) IsLayout(t block.Type) bool {
	return r.defs[t].Category == CategoryLayout
}

// IsProtected reports whether blocks of type t are structurally pinned.
func (r *Registry) IsProtected(t block.Type) bool {
	return r.defs[t].Protected
}

// IsSingleton reports whether at most one block of type t may exist.
func (r *Registry) IsSingleton(t block.Type) bool {
	return r.defs[t].Singleton
}

// PinOf returns the root pin of type t.
func (r *Registry) PinOf(t block.Type) Pin {
	return r.defs[t].Pin
}

// CanContain reports whether a block of type child may be placed directly
// under a block of type parent. An empty parent means the root sequence.
func (r *Registry) CanContain(parent, child block.Type) bool {
	d, ok := r.defs[child]
	if !ok {
		return false
	}
	if parent == "" {
		return lo.Contains(r.rootAllowed, child)
	}
	if d.RootOnly {
		return false
	}
	p, ok := r.defs[parent]
	if !ok || !p.CanHaveChildren {
		return false
	}
	return lo.Contains(p.Allowed, child)
}

// AllowedChildren returns the types that may be placed under parent, or at
// root when parent is empty.
func (r *Registry) AllowedChildren(parent block.Type) []block.Type {
	if parent == "" {
		return slices.Clone(r.rootAllowed)
	}
	return slices.Clone(r.defs[parent].Allowed)
}

// DefaultStyles returns a copy of the default props of t. They sit beneath
// a block's own base styles during resolution.
func (r *Registry) DefaultStyles(t block.Type) style.Props {
	return maps.Clone(r.defs[t].DefaultStyles)
}

// Conversion returns the conversion from one type to another.
func (r *Registry) Conversion(from, to block.Type) (Conversion, bool) {
	c, ok := r.conversions[pair{from, to}]
	return c, ok
}

// ConversionsFrom lists the types t converts to, in palette order.
func (r *Registry) ConversionsFrom(t block.Type) []block.Type {
	return lo.Filter(block.Types, func(to block.Type, _ int) bool {
		_, ok := r.conversions[pair{t, to}]
		return ok
	})
}

// NewBlock builds a block of type t with default settings and an empty
// style record. Collection items get ids from newID.
func (r *Registry) NewBlock(t block.Type, id string, newID func() string) (*block.Block, error) {
	settings, err := block.NewSettings(t)
	if err != nil {
		return nil, err
	}
	block.FillItemIDs(settings, newID)
	return &block.Block{
		ID:       id,
		Type:     t,
		Name:     r.defs[t].Name,
		Settings: settings,
	}, nil
}
