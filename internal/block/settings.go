package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownType is returned for a type tag outside the closed set.
var ErrUnknownType = errors.New("unknown block type")

// Settings is the type-specific part of a block. Each block type has exactly
// one settings variant; the variant set is closed to this package.
type Settings interface {
	Type() Type
	clone() Settings
}

// CloneSettings returns a deep copy of s, collections included.
func CloneSettings(s Settings) Settings {
	if s == nil {
		return nil
	}
	return s.clone()
}

// Section settings.

type HeaderSettings struct {
	Title    string    `json:"title,omitempty"`
	Logo     string    `json:"logo,omitempty"`
	Sticky   bool      `json:"sticky,omitempty"`
	NavLinks []NavLink `json:"nav_links,omitempty"`
}

type FooterSettings struct {
	Copyright   string       `json:"copyright,omitempty"`
	Links       []FooterLink `json:"links,omitempty"`
	SocialLinks []SocialLink `json:"social_links,omitempty"`
}

// Layout settings.

type ContainerSettings struct {
	MaxWidth string `json:"max_width,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

type StackSettings struct {
	Direction string `json:"direction,omitempty"`
	Gap       string `json:"gap,omitempty"`
	Align     string `json:"align,omitempty"`
	Justify   string `json:"justify,omitempty"`
	Wrap      bool   `json:"wrap,omitempty"`
}

type GridSettings struct {
	Columns  int           `json:"columns,omitempty"`
	Gap      string        `json:"gap,omitempty"`
	Mode     string        `json:"mode,omitempty"` // blocks, posts, links, products
	Posts    []PostItem    `json:"posts,omitempty"`
	Links    []LinkItem    `json:"links,omitempty"`
	Products []ProductItem `json:"products,omitempty"`
}

type FormSettings struct {
	Action         string      `json:"action,omitempty"`
	Method         string      `json:"method,omitempty"`
	SubmitLabel    string      `json:"submit_label,omitempty"`
	SuccessMessage string      `json:"success_message,omitempty"`
	Fields         []FormField `json:"fields,omitempty"`
}

type CanvasSettings struct {
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

type FreeformSettings struct {
	Height     string `json:"height,omitempty"`
	SnapToGrid bool   `json:"snap_to_grid,omitempty"`
}

type VariantsSettings struct {
	Active int `json:"active,omitempty"`
}

// Content settings.

type HeadingSettings struct {
	Text  string `json:"text,omitempty"`
	Level int    `json:"level,omitempty"`
}

type TextSettings struct {
	Text string `json:"text,omitempty"`
	Link string `json:"link,omitempty"`
}

type ImageSettings struct {
	Src  string `json:"src,omitempty"`
	Alt  string `json:"alt,omitempty"`
	Link string `json:"link,omitempty"`
}

type VideoSettings struct {
	Src      string `json:"src,omitempty"`
	Autoplay bool   `json:"autoplay,omitempty"`
	Loop     bool   `json:"loop,omitempty"`
	Controls bool   `json:"controls,omitempty"`
}

type ButtonSettings struct {
	Text    string `json:"text,omitempty"`
	URL     string `json:"url,omitempty"`
	NewTab  bool   `json:"new_tab,omitempty"`
	Variant string `json:"variant,omitempty"`
}

type IconSettings struct {
	Name string `json:"name,omitempty"`
	Size string `json:"size,omitempty"`
}

type DividerSettings struct {
	Orientation string `json:"orientation,omitempty"`
}

// Form field settings.

type FormInputSettings struct {
	Label       string `json:"label,omitempty"`
	Name        string `json:"name,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	InputType   string `json:"input_type,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type FormTextareaSettings struct {
	Label       string `json:"label,omitempty"`
	Name        string `json:"name,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Rows        int    `json:"rows,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type FormSelectSettings struct {
	Label    string   `json:"label,omitempty"`
	Name     string   `json:"name,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

type FormRadioSettings struct {
	Label    string   `json:"label,omitempty"`
	Name     string   `json:"name,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

type FormCheckboxSettings struct {
	Label    string   `json:"label,omitempty"`
	Name     string   `json:"name,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

type FormButtonSettings struct {
	Text   string `json:"text,omitempty"`
	Action string `json:"action,omitempty"` // submit, reset
}

func (*HeaderSettings) Type() Type       { return TypeHeader }
func (*FooterSettings) Type() Type       { return TypeFooter }
func (*ContainerSettings) Type() Type    { return TypeContainer }
func (*StackSettings) Type() Type        { return TypeStack }
func (*GridSettings) Type() Type         { return TypeGrid }
func (*FormSettings) Type() Type         { return TypeForm }
func (*CanvasSettings) Type() Type       { return TypeCanvas }
func (*FreeformSettings) Type() Type     { return TypeFreeform }
func (*VariantsSettings) Type() Type     { return TypeVariants }
func (*HeadingSettings) Type() Type      { return TypeHeading }
func (*TextSettings) Type() Type         { return TypeText }
func (*ImageSettings) Type() Type        { return TypeImage }
func (*VideoSettings) Type() Type        { return TypeVideo }
func (*ButtonSettings) Type() Type       { return TypeButton }
func (*IconSettings) Type() Type         { return TypeIcon }
func (*DividerSettings) Type() Type      { return TypeDivider }
func (*FormInputSettings) Type() Type    { return TypeFormInput }
func (*FormTextareaSettings) Type() Type { return TypeFormTextarea }
func (*FormSelectSettings) Type() Type   { return TypeFormSelect }
func (*FormRadioSettings) Type() Type    { return TypeFormRadio }
func (*FormCheckboxSettings) Type() Type { return TypeFormCheckbox }
func (*FormButtonSettings) Type() Type   { return TypeFormButton }

func (s *HeaderSettings) clone() Settings {
	c := *s
	c.NavLinks = slices.Clone(s.NavLinks)
	return &c
}

func (s *FooterSettings) clone() Settings {
	c := *s
	c.Links = slices.Clone(s.Links)
	c.SocialLinks = slices.Clone(s.SocialLinks)
	return &c
}

func (s *GridSettings) clone() Settings {
	c := *s
	c.Posts = slices.Clone(s.Posts)
	c.Links = slices.Clone(s.Links)
	c.Products = slices.Clone(s.Products)
	return &c
}

func (s *FormSettings) clone() Settings {
	c := *s
	c.Fields = slices.Clone(s.Fields)
	return &c
}

func (s *FormSelectSettings) clone() Settings {
	c := *s
	c.Options = slices.Clone(s.Options)
	return &c
}

func (s *FormRadioSettings) clone() Settings {
	c := *s
	c.Options = slices.Clone(s.Options)
	return &c
}

func (s *FormCheckboxSettings) clone() Settings {
	c := *s
	c.Options = slices.Clone(s.Options)
	return &c
}

func (s *ContainerSettings) clone() Settings    { c := *s; return &c }
func (s *StackSettings) clone() Settings        { c := *s; return &c }
func (s *CanvasSettings) clone() Settings       { c := *s; return &c }
func (s *FreeformSettings) clone() Settings     { c := *s; return &c }
func (s *VariantsSettings) clone() Settings     { c := *s; return &c }
func (s *HeadingSettings) clone() Settings      { c := *s; return &c }
func (s *TextSettings) clone() Settings         { c := *s; return &c }
func (s *ImageSettings) clone() Settings        { c := *s; return &c }
func (s *VideoSettings) clone() Settings        { c := *s; return &c }
func (s *ButtonSettings) clone() Settings       { c := *s; return &c }
func (s *IconSettings) clone() Settings         { c := *s; return &c }
func (s *DividerSettings) clone() Settings      { c := *s; return &c }
func (s *FormInputSettings) clone() Settings    { c := *s; return &c }
func (s *FormTextareaSettings) clone() Settings { c := *s; return &c }
func (s *FormButtonSettings) clone() Settings   { c := *s; return &c }

// zero returns the empty settings variant for t.
func zero(t Type) (Settings, error) {
	switch t {
	case TypeHeader:
		return &HeaderSettings{}, nil
	case TypeFooter:
		return &FooterSettings{}, nil
	case TypeContainer:
		return &ContainerSettings{}, nil
	case TypeStack:
		return &StackSettings{}, nil
	case TypeGrid:
		return &GridSettings{}, nil
	case TypeForm:
		return &FormSettings{}, nil
	case TypeCanvas:
		return &CanvasSettings{}, nil
	case TypeFreeform:
		return &FreeformSettings{}, nil
	case TypeVariants:
		return &VariantsSettings{}, nil
	case TypeHeading:
		return &HeadingSettings{}, nil
	case TypeText:
		return &TextSettings{}, nil
	case TypeImage:
		return &ImageSettings{}, nil
	case TypeVideo:
		return &VideoSettings{}, nil
	case TypeButton:
		return &ButtonSettings{}, nil
	case TypeIcon:
		return &IconSettings{}, nil
	case TypeDivider:
		return &DividerSettings{}, nil
	case TypeFormInput:
		return &FormInputSettings{}, nil
	case TypeFormTextarea:
		return &FormTextareaSettings{}, nil
	case TypeFormSelect:
		return &FormSelectSettings{}, nil
	case TypeFormRadio:
		return &FormRadioSettings{}, nil
	case TypeFormCheckbox:
		return &FormCheckboxSettings{}, nil
	case TypeFormButton:
		return &FormButtonSettings{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

// NewSettings returns the default settings for a freshly added block of
// type t. Collection items in the defaults carry no ids; callers assign them.
func NewSettings(t Type) (Settings, error) {
	s, err := zero(t)
	if err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case *HeaderSettings:
		s.Title = "My Site"
		s.NavLinks = []NavLink{
			{Label: "Home", URL: "/"},
			{Label: "About", URL: "/about"},
			{Label: "Contact", URL: "/contact"},
		}
	case *FooterSettings:
		s.Copyright = "All rights reserved."
		s.Links = []FooterLink{{Label: "Privacy", URL: "/privacy"}}
	case *ContainerSettings:
		s.MaxWidth = "1200px"
	case *StackSettings:
		s.Direction = "vertical"
		s.Gap = "16px"
	case *GridSettings:
		s.Columns = 3
		s.Gap = "16px"
		s.Mode = "blocks"
	case *FormSettings:
		s.Method = "post"
		s.SubmitLabel = "Submit"
		s.SuccessMessage = "Thanks!"
	case *CanvasSettings:
		s.Width = "100%"
		s.Height = "400px"
	case *FreeformSettings:
		s.Height = "400px"
	case *HeadingSettings:
		s.Text = "Heading"
		s.Level = 2
	case *TextSettings:
		s.Text = "Text"
	case *VideoSettings:
		s.Controls = true
	case *ButtonSettings:
		s.Text = "Button"
		s.URL = "#"
		s.Variant = "primary"
	case *IconSettings:
		s.Name = "star"
		s.Size = "24px"
	case *DividerSettings:
		s.Orientation = "horizontal"
	case *FormInputSettings:
		s.Label = "Input"
		s.InputType = "text"
	case *FormTextareaSettings:
		s.Label = "Message"
		s.Rows = 4
	case *FormSelectSettings:
		s.Label = "Select"
		s.Options = defaultOptions()
	case *FormRadioSettings:
		s.Label = "Choose one"
		s.Options = defaultOptions()
	case *FormCheckboxSettings:
		s.Label = "Choose any"
		s.Options = defaultOptions()
	case *FormButtonSettings:
		s.Text = "Submit"
		s.Action = "submit"
	}
	return s, nil
}

func defaultOptions() []Option {
	return []Option{
		{Label: "Option 1", Value: "option-1"},
		{Label: "Option 2", Value: "option-2"},
	}
}

// decodeSettings decodes raw JSON into the zero variant of t.
func decodeSettings(t Type, raw []byte) (Settings, error) {
	s, err := zero(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode %s settings: %w", t, err)
	}
	return s, nil
}

// ToMap returns the JSON field form of s.
func ToMap(s Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(t Type, m map[string]any) (Settings, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return decodeSettings(t, data)
}

// Merge shallow-merges patch into a copy of s. Keys naming nested
// collections are ignored; collections change only through item operations.
// Unknown keys are dropped.
func Merge(s Settings, patch map[string]any) (Settings, error) {
	m, err := ToMap(s)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		if isCollectionKey(s.Type(), k) {
			continue
		}
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return fromMap(s.Type(), m)
}

// Convert remaps s to the variant of type to. Keys are renamed per renames,
// keys shared by both variants carry over, and anything the target variant
// lacks is dropped. Fields the source does not provide keep the target's
// defaults.
func Convert(s Settings, to Type, renames map[string]string) (Settings, error) {
	m, err := ToMap(s)
	if err != nil {
		return nil, err
	}
	for from, dst := range renames {
		if v, ok := m[from]; ok {
			delete(m, from)
			m[dst] = v
		}
	}
	out, err := NewSettings(to)
	if err != nil {
		return nil, err
	}
	base, err := ToMap(out)
	if err != nil {
		return nil, err
	}
	maps.Copy(base, m)
	return fromMap(to, base)
}

// SettingsFrom builds settings of type t from the defaults overlaid with
// fields, collections included. Items without ids keep them empty.
func SettingsFrom(t Type, fields map[string]any) (Settings, error) {
	s, err := NewSettings(t)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return s, nil
	}
	base, err := ToMap(s)
	if err != nil {
		return nil, err
	}
	maps.Copy(base, fields)
	return fromMap(t, base)
}
