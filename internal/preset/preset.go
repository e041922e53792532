// Package preset loads the library of page layouts, themes, insertable
// components and list presets from YAML, and builds fresh block subtrees
// from them.
package preset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/style"
)

//go:embed library/*.yaml
var builtin embed.FS

var (
	ErrUnknownLayout    = errors.New("unknown layout")
	ErrUnknownTheme     = errors.New("unknown theme")
	ErrUnknownComponent = errors.New("unknown component")
	ErrUnknownList      = errors.New("unknown list preset")
)

// Node is a block template. Settings are overlaid on the type's defaults,
// collections included.
type Node struct {
	Type     block.Type     `yaml:"type" json:"type"`
	Name     string         `yaml:"name,omitempty" json:"name,omitempty"`
	Settings map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
	Styles   style.Styles   `yaml:"styles,omitempty" json:"styles,omitempty"`
	Children []Node         `yaml:"children,omitempty" json:"children,omitempty"`
}

// Layout replaces the whole root sequence.
type Layout struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Blocks      []Node `yaml:"blocks" json:"blocks,omitempty"`
}

// Theme sets page-level typography and colors and merges per-type base
// styles into every matching block. A theme with blocks also replaces the
// root sequence first.
type Theme struct {
	ID              string                     `yaml:"id" json:"id"`
	Name            string                     `yaml:"name" json:"name"`
	Description     string                     `yaml:"description,omitempty" json:"description,omitempty"`
	Font            string                     `yaml:"font,omitempty" json:"font,omitempty"`
	PrimaryColor    string                     `yaml:"primary_color,omitempty" json:"primary_color,omitempty"`
	BackgroundColor string                     `yaml:"background_color,omitempty" json:"background_color,omitempty"`
	Styles          map[block.Type]style.Props `yaml:"styles,omitempty" json:"styles,omitempty"`
	Blocks          []Node                     `yaml:"blocks,omitempty" json:"blocks,omitempty"`
}

// Component is a reusable group of blocks inserted at a position.
type Component struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Blocks      []Node `yaml:"blocks" json:"blocks,omitempty"`
}

// List is a repeated-item collection: a stack or grid named after the
// preset holding Count copies of Item.
type List struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Container   block.Type `yaml:"container" json:"container"`
	Columns     int        `yaml:"columns,omitempty" json:"columns,omitempty"`
	Count       int        `yaml:"count" json:"count"`
	Item        Node       `yaml:"item" json:"item"`
}

type file struct {
	Layouts    []Layout    `yaml:"layouts"`
	Themes     []Theme     `yaml:"themes"`
	Components []Component `yaml:"components"`
	Lists      []List      `yaml:"lists"`
}

// Library is an immutable, ordered preset collection.
type Library struct {
	Layouts    []Layout    `json:"layouts"`
	Themes     []Theme     `json:"themes"`
	Components []Component `json:"components"`
	Lists      []List      `json:"lists"`
}

// Default returns the built-in library.
func Default() *Library {
	lib, err := Load(builtin)
	if err != nil {
		panic(fmt.Sprintf("preset: built-in library: %v", err))
	}
	return lib
}

// LoadDir returns the built-in library extended by the YAML files in dir.
// Entries in dir replace built-in entries with the same id.
func LoadDir(dir string) (*Library, error) {
	extra, err := Load(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	return Default().Merge(extra), nil
}

// Load reads every .yaml and .yml file under fsys in lexical order.
func Load(fsys fs.FS) (*Library, error) {
	lib := &Library{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !isPresetFile(p) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		f, err := parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		lib = lib.Merge(&Library{Layouts: f.Layouts, Themes: f.Themes, Components: f.Components, Lists: f.Lists})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	return lib, nil
}

func isPresetFile(p string) bool {
	ext := path.Ext(p)
	return ext == ".yaml" || ext == ".yml"
}

func parse(data []byte) (*file, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for _, l := range f.Layouts {
		if err := validate("layout", l.ID, l.Blocks); err != nil {
			return nil, err
		}
	}
	for _, c := range f.Components {
		if err := validate("component", c.ID, c.Blocks); err != nil {
			return nil, err
		}
	}
	for _, l := range f.Lists {
		if l.ID == "" {
			return nil, errors.New("list preset without id")
		}
		if l.Container != block.TypeStack && l.Container != block.TypeGrid {
			return nil, fmt.Errorf("list %s: container must be stack or grid, got %q", l.ID, l.Container)
		}
		if err := validate("list", l.ID, []Node{l.Item}); err != nil {
			return nil, err
		}
	}
	for _, t := range f.Themes {
		if err := validate("theme", t.ID, t.Blocks); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func validate(kind, id string, nodes []Node) error {
	if id == "" {
		return fmt.Errorf("%s without id", kind)
	}
	for _, n := range nodes {
		if !n.Type.Valid() {
			return fmt.Errorf("%s %s: %w: %q", kind, id, block.ErrUnknownType, n.Type)
		}
		if err := validate(kind, id, n.Children); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns a library holding l's entries followed by other's. Entries
// of other replace entries of l with the same id in place.
func (l *Library) Merge(other *Library) *Library {
	return &Library{
		Layouts:    mergeByID(l.Layouts, other.Layouts, func(x Layout) string { return x.ID }),
		Themes:     mergeByID(l.Themes, other.Themes, func(x Theme) string { return x.ID }),
		Components: mergeByID(l.Components, other.Components, func(x Component) string { return x.ID }),
		Lists:      mergeByID(l.Lists, other.Lists, func(x List) string { return x.ID }),
	}
}

func mergeByID[T any](base, over []T, id func(T) string) []T {
	out := append([]T(nil), base...)
	for _, v := range over {
		_, i, ok := lo.FindIndexOf(out, func(x T) bool { return id(x) == id(v) })
		if ok {
			out[i] = v
			continue
		}
		out = append(out, v)
	}
	return out
}

func (l *Library) Layout(id string) (Layout, error) {
	v, ok := lo.Find(l.Layouts, func(x Layout) bool { return x.ID == id })
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnknownLayout, id)
	}
	return v, nil
}

func (l *Library) Theme(id string) (Theme, error) {
	v, ok := lo.Find(l.Themes, func(x Theme) bool { return x.ID == id })
	if !ok {
		return Theme{}, fmt.Errorf("%w: %s", ErrUnknownTheme, id)
	}
	return v, nil
}

func (l *Library) Component(id string) (Component, error) {
	v, ok := lo.Find(l.Components, func(x Component) bool { return x.ID == id })
	if !ok {
		return Component{}, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	return v, nil
}

func (l *Library) List(id string) (List, error) {
	v, ok := lo.Find(l.Lists, func(x List) bool { return x.ID == id })
	if !ok {
		return List{}, fmt.Errorf("%w: %s", ErrUnknownList, id)
	}
	return v, nil
}

// ListNames returns the display names of every list preset. Blocks built
// from a list preset carry its name, which is how list collections are
// recognised in the tree.
func (l *Library) ListNames() []string {
	return lo.Uniq(lo.Map(l.Lists, func(x List, _ int) string { return x.Name }))
}
