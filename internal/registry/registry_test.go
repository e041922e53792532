package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/pagecraft/internal/block"
)

func TestEveryTypeIsRegistered(t *testing.T) {
	r := New()
	for _, typ := range block.Types {
		d, ok := r.Get(typ)
		require.True(t, ok, typ)
		assert.NotEmpty(t, d.Name, typ)
	}
	assert.Len(t, r.Definitions(), len(block.Types))
}

func TestCanContain(t *testing.T) {
	r := New()

	tests := []struct {
		name   string
		parent block.Type
		child  block.Type
		want   bool
	}{
		{"form accepts form input", block.TypeForm, block.TypeFormInput, true},
		{"form rejects text", block.TypeForm, block.TypeText, false},
		{"text is a leaf", block.TypeText, block.TypeFormInput, false},
		{"stack rejects form input", block.TypeStack, block.TypeFormInput, false},
		{"stack accepts grid", block.TypeStack, block.TypeGrid, true},
		{"stack accepts form", block.TypeStack, block.TypeForm, true},
		{"stack rejects header", block.TypeStack, block.TypeHeader, false},
		{"variants accepts stack", block.TypeVariants, block.TypeStack, true},
		{"variants rejects text", block.TypeVariants, block.TypeText, false},
		{"root accepts header", "", block.TypeHeader, true},
		{"root accepts text", "", block.TypeText, true},
		{"root rejects form button", "", block.TypeFormButton, false},
		{"unknown child", block.TypeStack, "marquee", false},
		{"unknown parent", "marquee", block.TypeText, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.CanContain(tt.parent, tt.child))
		})
	}
}

func TestProtectedSections(t *testing.T) {
	r := New()
	assert.True(t, r.IsProtected(block.TypeHeader))
	assert.True(t, r.IsSingleton(block.TypeFooter))
	assert.Equal(t, PinFirst, r.PinOf(block.TypeHeader))
	assert.Equal(t, PinLast, r.PinOf(block.TypeFooter))
	assert.Equal(t, PinNone, r.PinOf(block.TypeStack))
	assert.False(t, r.IsProtected(block.TypeStack))
	assert.False(t, r.CanHaveChildren(block.TypeHeader))
}

func TestConversions(t *testing.T) {
	r := New()

	assert.ElementsMatch(t,
		[]block.Type{block.TypeGrid, block.TypeContainer},
		r.ConversionsFrom(block.TypeStack))
	assert.ElementsMatch(t,
		[]block.Type{block.TypeFormRadio, block.TypeFormCheckbox},
		r.ConversionsFrom(block.TypeFormSelect))

	c, ok := r.Conversion(block.TypeButton, block.TypeText)
	require.True(t, ok)
	assert.Equal(t, "link", c.Renames["url"])

	_, ok = r.Conversion(block.TypeImage, block.TypeText)
	assert.False(t, ok)
}

func TestDefaultStylesAreCopies(t *testing.T) {
	r := New()
	d := r.DefaultStyles(block.TypeStack)
	d["gap"] = "0"
	assert.Equal(t, "16px", r.DefaultStyles(block.TypeStack)["gap"])
}

func TestNewBlock(t *testing.T) {
	r := New()
	n := 0
	b, err := r.NewBlock(block.TypeHeader, "h1", func() string { n++; return "item" + string(rune('0'+n)) })
	require.NoError(t, err)

	assert.Equal(t, "Header", b.Name)
	assert.Equal(t, []string{"h1", "item1", "item2", "item3"}, b.IDs())

	_, err = r.NewBlock("marquee", "x", nil)
	assert.ErrorIs(t, err, block.ErrUnknownType)
}

func TestByCategory(t *testing.T) {
	r := New()
	forms := r.ByCategory(CategoryForm)
	assert.Len(t, forms, 6)
	assert.Equal(t, block.TypeFormInput, forms[0].Type)
}
