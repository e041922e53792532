package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/preset"
	"github.com/livetemplate/pagecraft/internal/registry"
)

// TypesCommand prints the block type palette.
// Usage: pagecraft types [--category=<section|layout|content|form>]
func TypesCommand(args []string, out io.Writer) error {
	var category registry.Category
	for _, arg := range args {
		if v, ok := strings.CutPrefix(arg, "--category="); ok {
			category = registry.Category(v)
			continue
		}
		return fmt.Errorf("unexpected argument: %s", arg)
	}

	reg := registry.New()
	defs := reg.Definitions()
	if category != "" {
		defs = reg.ByCategory(category)
		if len(defs) == 0 {
			return fmt.Errorf("unknown category: %s", category)
		}
	}

	fmt.Fprintf(out, "%-16s %-10s %s\n", "TYPE", "CATEGORY", "CHILDREN")
	for _, d := range defs {
		children := "-"
		if d.CanHaveChildren {
			children = "any"
			if len(d.Allowed) > 0 {
				children = strings.Join(lo.Map(d.Allowed, func(t block.Type, _ int) string { return string(t) }), ",")
			}
		}
		fmt.Fprintf(out, "%-16s %-10s %s\n", d.Type, d.Category, children)
	}
	return nil
}

// PresetsCommand prints the preset library, extended by an optional
// directory.
// Usage: pagecraft presets [directory]
func PresetsCommand(args []string, out io.Writer) error {
	lib := preset.Default()
	switch len(args) {
	case 0:
	case 1:
		var err error
		if lib, err = preset.LoadDir(args[0]); err != nil {
			return fmt.Errorf("failed to load presets: %w", err)
		}
	default:
		return fmt.Errorf("usage: pagecraft presets [directory]")
	}

	section := func(title string, rows [][2]string) {
		fmt.Fprintf(out, "%s:\n", title)
		for _, r := range rows {
			fmt.Fprintf(out, "  %-16s %s\n", r[0], r[1])
		}
		fmt.Fprintln(out)
	}
	section("Layouts", lo.Map(lib.Layouts, func(l preset.Layout, _ int) [2]string { return [2]string{l.ID, l.Name} }))
	section("Themes", lo.Map(lib.Themes, func(t preset.Theme, _ int) [2]string { return [2]string{t.ID, t.Name} }))
	section("Components", lo.Map(lib.Components, func(c preset.Component, _ int) [2]string { return [2]string{c.ID, c.Name} }))
	section("Lists", lo.Map(lib.Lists, func(l preset.List, _ int) [2]string { return [2]string{l.ID, l.Name} }))
	return nil
}
