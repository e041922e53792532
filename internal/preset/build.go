package preset

import (
	"fmt"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/registry"
)

// Builder turns templates into blocks with fresh ids.
type Builder struct {
	Registry *registry.Registry
	NewID    func() string
}

// Node builds n and its descendants under a parent of type parent (empty
// for the root sequence). Containment is checked against the registry.
func (b Builder) Node(n Node, parent block.Type) (*block.Block, error) {
	if !b.Registry.CanContain(parent, n.Type) {
		if parent == "" {
			return nil, fmt.Errorf("%s is not allowed at root", n.Type)
		}
		return nil, fmt.Errorf("%s is not allowed inside %s", n.Type, parent)
	}
	out, err := b.Registry.NewBlock(n.Type, b.NewID(), b.NewID)
	if err != nil {
		return nil, err
	}
	if n.Name != "" {
		out.Name = n.Name
	}
	if len(n.Settings) > 0 {
		if out.Settings, err = block.SettingsFrom(n.Type, n.Settings); err != nil {
			return nil, fmt.Errorf("%s settings: %w", n.Type, err)
		}
		block.FillItemIDs(out.Settings, b.NewID)
	}
	out.Styles = n.Styles.Clone()
	for _, c := range n.Children {
		child, err := b.Node(c, n.Type)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// Nodes builds a sibling sequence.
func (b Builder) Nodes(nodes []Node, parent block.Type) ([]*block.Block, error) {
	out := make([]*block.Block, 0, len(nodes))
	for _, n := range nodes {
		blk, err := b.Node(n, parent)
		if err != nil {
			return nil, err
		}
		out = append(out, blk)
	}
	return out, nil
}

// List builds the container of a list preset with its repeated items.
func (b Builder) List(l List, parent block.Type) (*block.Block, error) {
	settings := map[string]any{}
	if l.Container == block.TypeGrid && l.Columns > 0 {
		settings["columns"] = l.Columns
	}
	container := Node{Type: l.Container, Name: l.Name, Settings: settings}
	for i := 0; i < l.Count; i++ {
		container.Children = append(container.Children, l.Item)
	}
	return b.Node(container, parent)
}
