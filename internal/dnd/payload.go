package dnd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/livetemplate/pagecraft/internal/block"
)

// Kind says what a drag carries.
type Kind string

const (
	KindMove       Kind = "move"
	KindNewBlock   Kind = "new-block"
	KindListPreset Kind = "list-preset"
)

// TagPrefix starts every payload tag. The full tag, e.g.
// "pagecraft/new-block", is what a browser puts in DataTransfer types.
const TagPrefix = "pagecraft/"

var ErrBadPayload = errors.New("bad drag payload")

// Payload is the data attached to a drag gesture. Which fields are set
// depends on Kind: moves carry the block and where it came from, palette
// drags carry a block type or a list preset id.
type Payload struct {
	Kind           Kind       `json:"kind"`
	BlockID        string     `json:"block_id,omitempty"`
	SourceParentID string     `json:"source_parent_id,omitempty"`
	SourceIndex    int        `json:"source_index,omitempty"`
	BlockType      block.Type `json:"block_type,omitempty"`
	PresetID       string     `json:"preset_id,omitempty"`
}

// Move returns the payload for dragging an existing block.
func Move(blockID, sourceParentID string, sourceIndex int) Payload {
	return Payload{Kind: KindMove, BlockID: blockID, SourceParentID: sourceParentID, SourceIndex: sourceIndex}
}

// NewBlock returns the payload for dragging a block type off the palette.
func NewBlock(t block.Type) Payload {
	return Payload{Kind: KindNewBlock, BlockType: t}
}

// ListPreset returns the payload for dragging a list preset off the palette.
func ListPreset(id string) Payload {
	return Payload{Kind: KindListPreset, PresetID: id}
}

// Tag returns the payload's type tag.
func (p Payload) Tag() string {
	return TagPrefix + string(p.Kind)
}

func (p Payload) validate() error {
	switch p.Kind {
	case KindMove:
		if p.BlockID == "" {
			return fmt.Errorf("%w: move without block id", ErrBadPayload)
		}
	case KindNewBlock:
		if p.BlockType == "" {
			return fmt.Errorf("%w: new-block without type", ErrBadPayload)
		}
	case KindListPreset:
		if p.PresetID == "" {
			return fmt.Errorf("%w: list-preset without preset id", ErrBadPayload)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrBadPayload, p.Kind)
	}
	return nil
}

// EncodePayload returns the tag and JSON data for p.
func EncodePayload(p Payload) (tag, data string, err error) {
	if err := p.validate(); err != nil {
		return "", "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", "", err
	}
	return p.Tag(), string(b), nil
}

// DecodePayload parses data carried under tag. The tag must name the same
// kind as the data.
func DecodePayload(tag, data string) (Payload, error) {
	kind, ok := strings.CutPrefix(tag, TagPrefix)
	if !ok {
		return Payload{}, fmt.Errorf("%w: foreign tag %q", ErrBadPayload, tag)
	}
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if string(p.Kind) != kind {
		return Payload{}, fmt.Errorf("%w: tag %q carries %q data", ErrBadPayload, tag, p.Kind)
	}
	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
