package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/registry"
	"github.com/livetemplate/pagecraft/internal/style"
	"github.com/livetemplate/pagecraft/internal/tree"
)

func TestSelect(t *testing.T) {
	s := New()
	s.Select("a", "item")
	assert.Equal(t, "a", s.Selected())
	assert.Equal(t, "item", s.SelectedItem())
	assert.Equal(t, []string{"a"}, s.SelectedIDs())

	s.Select("b", "")
	assert.Equal(t, "b", s.Selected())
	assert.Empty(t, s.SelectedItem())

	s.Clear()
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.SelectedIDs())
}

func TestToggle(t *testing.T) {
	s := New()
	s.Select("a", "x")
	s.Toggle("b")
	s.Toggle("c")

	assert.Equal(t, []string{"a", "b", "c"}, s.SelectedIDs())
	assert.Equal(t, "c", s.Selected())
	assert.Empty(t, s.SelectedItem())
	assert.True(t, s.IsSelected("b"))

	s.Toggle("c")
	assert.Equal(t, "b", s.Selected())
	s.Toggle("a")
	assert.Equal(t, []string{"b"}, s.SelectedIDs())
	assert.Equal(t, "b", s.Selected())

	s.Toggle("b")
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.SelectedIDs())
}

func TestExpansion(t *testing.T) {
	s := New()
	s.Expand("b")
	s.Expand("a")
	assert.True(t, s.IsExpanded("a"))
	assert.Equal(t, []string{"a", "b"}, s.ExpandedIDs())

	assert.False(t, s.ToggleExpanded("a"))
	assert.True(t, s.ToggleExpanded("c"))
	s.Collapse("b")
	assert.Equal(t, []string{"c"}, s.ExpandedIDs())
}

func TestEditingContext(t *testing.T) {
	s := New()
	assert.Equal(t, style.Desktop, s.Viewport())
	assert.Equal(t, style.StateNone, s.StyleState())

	assert.True(t, s.SetViewport(style.Mobile))
	assert.False(t, s.SetViewport("watch"))
	assert.Equal(t, style.Mobile, s.Viewport())

	assert.True(t, s.SetStyleState(style.StateHover))
	assert.False(t, s.SetStyleState("dragging"))
	assert.Equal(t, style.StateHover, s.StyleState())
	assert.True(t, s.SetStyleState(""))
	assert.Equal(t, style.StateNone, s.StyleState())
}

func TestForget(t *testing.T) {
	tests := []struct {
		name     string
		removed  []string
		retarget string
		selected string
		item     string
		multi    []string
		expanded []string
	}{
		{"unrelated", []string{"z"}, "p", "a", "i", []string{"a", "b"}, []string{"a", "b"}},
		{"selected retargets", []string{"a"}, "p", "p", "", []string{"b", "p"}, []string{"b"}},
		{"retarget removed too", []string{"a", "p"}, "p", "", "", []string{"b"}, []string{"b"}},
		{"item only", []string{"i"}, "", "a", "", []string{"a", "b"}, []string{"a", "b"}},
		{"secondary only", []string{"b"}, "p", "a", "i", []string{"a"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Select("a", "i")
			s.multi = append(s.multi, "b")
			s.Expand("a")
			s.Expand("b")

			s.Forget(tt.removed, tt.retarget)

			assert.Equal(t, tt.selected, s.Selected())
			assert.Equal(t, tt.item, s.SelectedItem())
			assert.Equal(t, tt.multi, s.SelectedIDs())
			assert.Equal(t, tt.expanded, s.ExpandedIDs())
		})
	}
}

func TestBreadcrumb(t *testing.T) {
	n := 0
	st := tree.New(registry.New(), tree.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}))
	outer := st.AddBlock(block.TypeStack, -1, "")
	require.NotNil(t, outer)
	inner := st.AddBlock(block.TypeContainer, -1, outer.ID)
	require.NotNil(t, inner)
	leaf := st.AddBlock(block.TypeText, -1, inner.ID)
	require.NotNil(t, leaf)

	got := Breadcrumb(st, leaf.ID)
	assert.Equal(t, []Crumb{
		{ID: outer.ID, Name: "Stack", Type: block.TypeStack},
		{ID: inner.ID, Name: "Container", Type: block.TypeContainer},
		{ID: leaf.ID, Name: "Text", Type: block.TypeText},
	}, got)

	assert.Len(t, Breadcrumb(st, outer.ID), 1)
	assert.Nil(t, Breadcrumb(st, "missing"))
}
