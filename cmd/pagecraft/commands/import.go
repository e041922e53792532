package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/preset"
)

// ImportCommand converts a markdown file into a document and writes it as
// JSON to out.
// Usage: pagecraft import <file.md> [--presets dir]
func ImportCommand(args []string, out io.Writer) error {
	var path, presetsDir string
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--presets":
			if i+1 >= len(args) {
				return fmt.Errorf("--presets requires a value")
			}
			presetsDir = args[i+1]
			i++
		default:
			if path != "" {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			path = arg
		}
	}
	if path == "" {
		return fmt.Errorf("usage: pagecraft import <file.md> [--presets dir]")
	}

	var opts []pagecraft.Option
	if presetsDir != "" {
		lib, err := preset.LoadDir(presetsDir)
		if err != nil {
			return fmt.Errorf("failed to load presets: %w", err)
		}
		opts = append(opts, pagecraft.WithPresets(lib))
	}
	ed := pagecraft.NewEditor(opts...)
	if err := importFile(ed, path); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(ed.Document())
}

// importFile loads path into ed. Parse errors name the file.
func importFile(ed *pagecraft.Editor, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := ed.ImportMarkdown(src); err != nil {
		var perr *pagecraft.ParseError
		if errors.As(err, &perr) {
			perr.File = path
			return perr
		}
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	return nil
}
