package pagecraft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorFormat(t *testing.T) {
	src := []byte("---\ntitle: [\n---\n\n# Hello\n")
	err := NewParseError("page.md", 2, "bad frontmatter").
		WithColumn(8).
		WithHint("check the YAML syntax").
		WithSource(src)

	msg := err.Error()
	assert.Contains(t, msg, "Error in page.md")
	assert.Contains(t, msg, "Line 2: bad frontmatter")
	assert.Contains(t, msg, "   2 | title: [")
	assert.Contains(t, msg, "Tip: check the YAML syntax")
	assert.Contains(t, msg, "^")
}

func TestParseErrorReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644))

	msg := NewParseError(path, 2, "oops").Error()
	assert.Contains(t, msg, "   1 | one")
	assert.Contains(t, msg, "   3 | three")
}

func TestParseErrorWithoutSource(t *testing.T) {
	msg := NewParseError("", 9, "oops").Error()
	assert.Contains(t, msg, "Error in <input>")
	assert.NotContains(t, msg, "|")

	msg = NewParseError("", 9, "oops").WithSource([]byte("short\n")).Error()
	assert.NotContains(t, msg, "|", "line out of range")
}
