package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/registry"
)

func builder() Builder {
	n := 0
	return Builder{
		Registry: registry.New(),
		NewID: func() string {
			n++
			return fmt.Sprintf("id%d", n)
		},
	}
}

func TestDefaultLibrary(t *testing.T) {
	lib := Default()

	assert.NotEmpty(t, lib.Layouts)
	assert.NotEmpty(t, lib.Themes)
	assert.NotEmpty(t, lib.Components)
	assert.ElementsMatch(t, []string{"Testimonials", "Team Members", "FAQ"}, lib.ListNames())

	b := builder()
	for _, l := range lib.Layouts {
		t.Run("layout/"+l.ID, func(t *testing.T) {
			_, err := b.Nodes(l.Blocks, "")
			require.NoError(t, err)
		})
	}
	for _, c := range lib.Components {
		t.Run("component/"+c.ID, func(t *testing.T) {
			_, err := b.Nodes(c.Blocks, "")
			require.NoError(t, err)
		})
	}
	for _, l := range lib.Lists {
		t.Run("list/"+l.ID, func(t *testing.T) {
			got, err := b.List(l, "")
			require.NoError(t, err)
			assert.Len(t, got.Children, l.Count)
		})
	}
}

func TestLookupErrors(t *testing.T) {
	lib := Default()

	_, err := lib.Layout("nope")
	assert.ErrorIs(t, err, ErrUnknownLayout)
	_, err = lib.Theme("nope")
	assert.ErrorIs(t, err, ErrUnknownTheme)
	_, err = lib.Component("nope")
	assert.ErrorIs(t, err, ErrUnknownComponent)
	_, err = lib.List("nope")
	assert.ErrorIs(t, err, ErrUnknownList)

	l, err := lib.Layout("landing")
	require.NoError(t, err)
	assert.Equal(t, "Landing Page", l.Name)
}

func TestBuildAssignsFreshIDs(t *testing.T) {
	lib := Default()
	layout, err := lib.Layout("landing")
	require.NoError(t, err)

	blocks, err := builder().Nodes(layout.Blocks, "")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, b := range blocks {
		for _, id := range b.IDs() {
			assert.NotEmpty(t, id)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}

	header := blocks[0]
	assert.Equal(t, block.TypeHeader, header.Type)
	for _, link := range header.Settings.(*block.HeaderSettings).NavLinks {
		assert.NotEmpty(t, link.ID)
	}

	hero := blocks[1]
	assert.Equal(t, "Hero", hero.Name)
	assert.Equal(t, "48px 16px", hero.Styles.Mobile["padding"])
	assert.Equal(t, 1, hero.Children[0].Settings.(*block.HeadingSettings).Level)
}

func TestBuildRejectsDisallowedNesting(t *testing.T) {
	_, err := builder().Node(Node{Type: block.TypeForm, Children: []Node{{Type: block.TypeText}}}, "")
	assert.Error(t, err)

	_, err = builder().Node(Node{Type: block.TypeFormInput}, "")
	assert.Error(t, err)
}

func TestBuildListUsesPresetName(t *testing.T) {
	lib := Default()
	l, err := lib.List("team")
	require.NoError(t, err)

	got, err := builder().List(l, block.TypeContainer)
	require.NoError(t, err)
	assert.Equal(t, "Team Members", got.Name)
	assert.Equal(t, block.TypeGrid, got.Type)
	assert.Equal(t, 4, got.Settings.(*block.GridSettings).Columns)
}

func TestLoadParsesAndOverrides(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte(`
themes:
  - id: mono
    name: Mono
    font: Courier
    styles:
      text: {color: black}
`)},
		"nested/b.yml": {Data: []byte(`
themes:
  - id: mono
    name: Mono Two
`)},
		"notes.txt": {Data: []byte("ignored")},
	}

	lib, err := Load(fsys)
	require.NoError(t, err)
	require.Len(t, lib.Themes, 1)
	assert.Equal(t, "Mono Two", lib.Themes[0].Name)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "layouts: [\n"},
		{"unknown type", "layouts:\n  - id: x\n    blocks:\n      - type: marquee\n"},
		{"missing id", "components:\n  - name: x\n    blocks: []\n"},
		{"bad container", "lists:\n  - id: x\n    container: text\n    item: {type: text}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(fstest.MapFS{"bad.yaml": {Data: []byte(tt.data)}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestLoadErrorNamesFileAndLine(t *testing.T) {
	_, err := Load(fstest.MapFS{"pages/bad.yaml": {Data: []byte("layouts:\n  - id: x\n    blocks: 5\n")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pages/bad.yaml")
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadDirMergesWithBuiltin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(`
components:
  - id: cta
    name: Custom CTA
    blocks:
      - type: button
`), 0644))

	lib, err := LoadDir(dir)
	require.NoError(t, err)

	c, err := lib.Component("cta")
	require.NoError(t, err)
	assert.Equal(t, "Custom CTA", c.Name)
	assert.Len(t, lib.Components, len(Default().Components))
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	reloaded := make(chan *Library, 1)

	w, err := NewWatcher(dir, func(lib *Library) {
		select {
		case reloaded <- lib:
		default:
		}
	}, zerolog.Nop())
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.yaml"), []byte(`
layouts:
  - id: fresh
    name: Fresh
    blocks:
      - type: text
`), 0644))

	select {
	case lib := <-reloaded:
		_, err := lib.Layout("fresh")
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

func TestThemeBlocksBuild(t *testing.T) {
	lib := Default()
	th, err := lib.Theme("portfolio")
	require.NoError(t, err)
	require.NotEmpty(t, th.Blocks)

	blocks, err := builder().Nodes(th.Blocks, "")
	require.NoError(t, err)
	assert.Equal(t, "Portfolio", blocks[0].Settings.(*block.HeaderSettings).Title)
	assert.Equal(t, "#fafafa", th.Styles[block.TypeHeading]["color"])
}
