// Package style resolves block styles across responsive viewports and
// interaction states.
//
// A Styles value carries three layers: base (desktop) props, per-viewport
// overrides for tablet and mobile, and flat per-state overrides (hover,
// pressed, focused). Viewport overrides cascade from wide to narrow: an
// unset property at mobile inherits tablet, which inherits base. State
// overrides do not cascade; they are merged on top of the viewport-resolved
// props.
//
// Every function in this package is pure. Inputs are never mutated and the
// returned maps are always fresh copies.
package style

import "maps"

// Viewport is a responsive breakpoint.
type Viewport string

const (
	Desktop Viewport = "desktop"
	Tablet  Viewport = "tablet"
	Mobile  Viewport = "mobile"
)

// Viewports lists breakpoints from widest to narrowest.
var Viewports = []Viewport{Desktop, Tablet, Mobile}

// Valid reports whether v is a known viewport.
func (v Viewport) Valid() bool {
	switch v {
	case Desktop, Tablet, Mobile:
		return true
	}
	return false
}

// State is an interaction state with its own override bucket.
type State string

const (
	StateNone    State = "none"
	StateHover   State = "hover"
	StatePressed State = "pressed"
	StateFocused State = "focused"
)

// Valid reports whether s is a known interaction state.
func (s State) Valid() bool {
	switch s {
	case "", StateNone, StateHover, StatePressed, StateFocused:
		return true
	}
	return false
}

// Props maps CSS-like property names to values.
type Props map[string]string

// Styles is the style record stored on every block.
type Styles struct {
	Base   Props           `json:"base,omitempty" yaml:"base,omitempty"`
	Tablet Props           `json:"tablet,omitempty" yaml:"tablet,omitempty"`
	Mobile Props           `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	States map[State]Props `json:"states,omitempty" yaml:"states,omitempty"`

	// OverwriteStyle exempts an item of a list collection from style
	// propagation to its siblings.
	OverwriteStyle bool `json:"overwrite_style,omitempty" yaml:"overwrite_style,omitempty"`
}

// Patch is a partial Styles used by shallow-merge updates. Nil buckets are
// left untouched; an empty value inside a bucket removes that key.
type Patch struct {
	Base           Props           `json:"base,omitempty"`
	Tablet         Props           `json:"tablet,omitempty"`
	Mobile         Props           `json:"mobile,omitempty"`
	States         map[State]Props `json:"states,omitempty"`
	OverwriteStyle *bool           `json:"overwrite_style,omitempty"`
}

// Clone returns a deep copy of s.
func (s Styles) Clone() Styles {
	out := Styles{
		Base:           cloneProps(s.Base),
		Tablet:         cloneProps(s.Tablet),
		Mobile:         cloneProps(s.Mobile),
		OverwriteStyle: s.OverwriteStyle,
	}
	if len(s.States) > 0 {
		out.States = make(map[State]Props, len(s.States))
		for st, p := range s.States {
			out.States[st] = cloneProps(p)
		}
	}
	return out
}

// bucket returns the override bucket for v; desktop maps to base.
func (s Styles) bucket(v Viewport) Props {
	switch v {
	case Tablet:
		return s.Tablet
	case Mobile:
		return s.Mobile
	default:
		return s.Base
	}
}

// Responsive flattens s for viewport v: mobile overrides tablet overrides
// base. Unknown viewports resolve as desktop.
func Responsive(s Styles, v Viewport) Props {
	out := cloneProps(s.Base)
	if out == nil {
		out = Props{}
	}
	switch v {
	case Mobile:
		maps.Copy(out, s.Tablet)
		maps.Copy(out, s.Mobile)
	case Tablet:
		maps.Copy(out, s.Tablet)
	}
	return out
}

// Effective returns the props that apply for viewport v while state st is
// being edited or rendered. The state bucket is merged over the
// viewport-resolved props.
func Effective(s Styles, v Viewport, st State) Props {
	out := Responsive(s, v)
	if st == StateNone || st == "" {
		return out
	}
	maps.Copy(out, s.States[st])
	return out
}

// Resolve is Effective with defaults underneath base, so every property the
// defaults name always resolves to a value.
func Resolve(s Styles, v Viewport, st State, defaults Props) Props {
	out := cloneProps(defaults)
	if out == nil {
		out = Props{}
	}
	maps.Copy(out, Effective(s, v, st))
	return out
}

// Lookup resolves a single property for v, falling back to defaults. The
// second result is false only when neither the cascade nor defaults define
// the property.
func Lookup(s Styles, v Viewport, property string, defaults Props) (string, bool) {
	chain := []Props{s.Base}
	switch v {
	case Tablet:
		chain = []Props{s.Tablet, s.Base}
	case Mobile:
		chain = []Props{s.Mobile, s.Tablet, s.Base}
	}
	for _, p := range chain {
		if val, ok := p[property]; ok {
			return val, true
		}
	}
	val, ok := defaults[property]
	return val, ok
}

// SetViewportOverrides merges partial into the bucket for v and returns the
// new Styles. Desktop writes the base bucket. Other buckets are untouched.
func SetViewportOverrides(s Styles, v Viewport, partial Props) Styles {
	out := s.Clone()
	merged := mergeProps(out.bucket(v), partial)
	switch v {
	case Tablet:
		out.Tablet = merged
	case Mobile:
		out.Mobile = merged
	default:
		out.Base = merged
	}
	return out
}

// SetStateOverrides merges partial into the bucket for state st.
// StateNone writes nothing and returns a copy of s.
func SetStateOverrides(s Styles, st State, partial Props) Styles {
	out := s.Clone()
	if st == StateNone || st == "" {
		return out
	}
	merged := mergeProps(out.States[st], partial)
	if len(merged) == 0 {
		delete(out.States, st)
		if len(out.States) == 0 {
			out.States = nil
		}
		return out
	}
	if out.States == nil {
		out.States = make(map[State]Props)
	}
	out.States[st] = merged
	return out
}

// HasViewportOverride reports whether property is set directly in the
// bucket for v.
func HasViewportOverride(s Styles, v Viewport, property string) bool {
	_, ok := s.bucket(v)[property]
	return ok
}

// ResetViewportOverride removes property from the bucket for v so it inherits
// from the next wider viewport again.
func ResetViewportOverride(s Styles, v Viewport, property string) Styles {
	return SetViewportOverrides(s, v, Props{property: ""})
}

// Apply shallow-merges p into s bucket by bucket.
func Apply(s Styles, p Patch) Styles {
	out := s.Clone()
	if p.Base != nil {
		out.Base = mergeProps(out.Base, p.Base)
	}
	if p.Tablet != nil {
		out.Tablet = mergeProps(out.Tablet, p.Tablet)
	}
	if p.Mobile != nil {
		out.Mobile = mergeProps(out.Mobile, p.Mobile)
	}
	for st, props := range p.States {
		out = SetStateOverrides(out, st, props)
	}
	if p.OverwriteStyle != nil {
		out.OverwriteStyle = *p.OverwriteStyle
	}
	return out
}

// mergeProps returns a copy of base with partial applied. Empty values
// delete keys. A result with no keys is nil.
func mergeProps(base, partial Props) Props {
	out := cloneProps(base)
	if out == nil {
		out = Props{}
	}
	for k, v := range partial {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneProps(p Props) Props {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}
