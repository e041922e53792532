package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/tree"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseServeArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    serveOptions
		wantErr string
	}{
		{
			name: "all flags",
			args: []string{"-c", "x.yaml", "--port", "9000", "--host", "0.0.0.0", "--presets", "p", "--open", "a.md"},
			want: serveOptions{configPath: "x.yaml", port: "9000", host: "0.0.0.0", presetsDir: "p", open: "a.md"},
		},
		{name: "missing value", args: []string{"--port"}, wantErr: "requires a value"},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: "unknown flag"},
		{name: "positional", args: []string{"dir"}, wantErr: "unexpected argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseServeArgs(tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := parseServeArgs([]string{"-w"})
	require.NoError(t, err)
	require.NotNil(t, got.watch)
	assert.True(t, *got.watch)
}

func TestLoadServeConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pagecraft.yaml", "server:\n  port: 7000\neditor:\n  history_limit: 5\n")

	cfg, err := loadServeConfig(serveOptions{configPath: path, host: "0.0.0.0"})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5, cfg.Editor.GetHistoryLimit())

	cfg, err = loadServeConfig(serveOptions{configPath: path, port: "8123"})
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)

	_, err = loadServeConfig(serveOptions{configPath: path, port: "abc"})
	assert.ErrorContains(t, err, "invalid port")

	watch := true
	_, err = loadServeConfig(serveOptions{configPath: path, watch: &watch})
	assert.ErrorContains(t, err, "presets.watch requires presets.dir")
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.md", "---\ntitle: Hello\nlayout: blank\n---\n# Welcome\n\nIntro text.\n")

	var out bytes.Buffer
	require.NoError(t, ImportCommand([]string{path}, &out))

	var doc tree.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "Hello", doc.Page.Title)
	require.Len(t, doc.Blocks, 4)
	assert.Equal(t, block.TypeHeader, doc.Blocks[0].Type)
	assert.Equal(t, block.TypeHeading, doc.Blocks[1].Type)
	assert.Equal(t, block.TypeFooter, doc.Blocks[3].Type)
}

func TestImportCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.md", "---\ntitle: x\n\n# no close\n")

	var out bytes.Buffer
	err := ImportCommand([]string{bad}, &out)
	var perr *pagecraft.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, bad, perr.File)
	assert.Contains(t, err.Error(), "Error in "+bad)

	assert.ErrorContains(t, ImportCommand(nil, &out), "usage")
	assert.Error(t, ImportCommand([]string{filepath.Join(dir, "missing.md")}, &out))
	assert.ErrorContains(t, ImportCommand([]string{bad, "extra"}, &out), "unexpected argument")
}

func TestTypesCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, TypesCommand(nil, &out))
	assert.Contains(t, out.String(), "TYPE")
	assert.Contains(t, out.String(), "heading")

	out.Reset()
	require.NoError(t, TypesCommand([]string{"--category=form"}, &out))
	assert.Contains(t, out.String(), "form-input")
	assert.NotContains(t, out.String(), "heading")

	assert.ErrorContains(t, TypesCommand([]string{"--category=nope"}, &out), "unknown category")
}

func TestPresetsCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PresetsCommand(nil, &out))
	assert.Contains(t, out.String(), "Layouts:")
	assert.Contains(t, out.String(), "landing")

	dir := t.TempDir()
	writeFile(t, dir, "extra.yaml", "themes:\n  - id: neon\n    name: Neon\n")
	out.Reset()
	require.NoError(t, PresetsCommand([]string{dir}, &out))
	assert.Contains(t, out.String(), "neon")
	assert.Contains(t, out.String(), "dark")

	assert.Error(t, PresetsCommand([]string{"a", "b"}, &out))
}
