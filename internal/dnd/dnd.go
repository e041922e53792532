// Package dnd turns drag gestures into validated block tree mutations.
//
// A Coordinator is Idle until Start, then Dragging until Drop or End. While
// dragging, Over records the latest drop target without touching the tree
// and Enter/Leave drive a debounced auto-expand of collapsed layout blocks.
// Drop issues exactly one store call.
package dnd

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/logging"
	"github.com/livetemplate/pagecraft/internal/preset"
	"github.com/livetemplate/pagecraft/internal/registry"
)

// DefaultAutoExpandDelay is how long a drag must hover over a collapsed
// layout block before it opens.
const DefaultAutoExpandDelay = 500 * time.Millisecond

// Tree is the block store surface the coordinator reads and mutates.
type Tree interface {
	Registry() *registry.Registry
	Presets() *preset.Library
	TypeOf(id string) (block.Type, bool)
	IndexOf(id string) int
	ParentID(id string) (string, bool)
	ChildIDs(parentID string) []string
	IsDescendant(ancestor, id string) bool

	AddBlock(t block.Type, index int, parentID string) *block.Block
	ReorderBlocks(from, to int, parentID string) bool
	MoveBlockToParent(id, parentID string, index int) bool
	InsertListPreset(id, parentID string, index int) *block.Block
}

// Expander tracks which blocks are open in the layer tree.
type Expander interface {
	IsExpanded(id string) bool
	Expand(id string)
}

// Phase is the coordinator state.
type Phase int

const (
	Idle Phase = iota
	Dragging
)

func (p Phase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// Target is a drop position: a slot in the current child list of ParentID
// ("" for the root sequence). Slot i means "before the child now at i";
// slot len means "at the end".
type Target struct {
	ParentID string `json:"parent_id"`
	Index    int    `json:"index"`
}

// Result reports what a drop did.
type Result struct {
	Kind     Kind   `json:"kind"`
	BlockID  string `json:"block_id"`
	ParentID string `json:"parent_id"`
	Index    int    `json:"index"`
}

// Coordinator runs one drag gesture at a time.
type Coordinator struct {
	mu       sync.Mutex
	tree     Tree
	expander Expander
	log      zerolog.Logger
	delay    time.Duration
	debounce func(func())

	phase   Phase
	payload Payload
	target  *Target
	hovered string
}

type Option func(*Coordinator)

// WithAutoExpandDelay overrides DefaultAutoExpandDelay.
func WithAutoExpandDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// New returns an idle coordinator. expander may be nil to disable
// auto-expand.
func New(tree Tree, expander Expander, opts ...Option) *Coordinator {
	c := &Coordinator{
		tree:     tree,
		expander: expander,
		log:      logging.Nop(),
		delay:    DefaultAutoExpandDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.Component(c.log, "dnd")
	c.debounce = debounce.New(c.delay)
	return c
}

// Phase returns the current state.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Payload returns the payload of the active drag.
func (c *Coordinator) Payload() (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload, c.phase == Dragging
}

// Target returns the current drop target, if any.
func (c *Coordinator) Target() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return Target{}, false
	}
	return *c.target, true
}

// Hovered returns the block waiting to auto-expand.
func (c *Coordinator) Hovered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hovered
}

// Start begins a drag. It fails when a drag is already active, the payload
// is malformed, or a move names a missing or protected block.
func (c *Coordinator) Start(p Payload) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Dragging {
		return false
	}
	if err := p.validate(); err != nil {
		c.log.Debug().Err(err).Msg("start rejected")
		return false
	}
	if p.Kind == KindMove {
		t, ok := c.tree.TypeOf(p.BlockID)
		if !ok || c.tree.Registry().IsProtected(t) {
			c.log.Debug().Str("id", p.BlockID).Msg("block cannot be dragged")
			return false
		}
	}
	c.phase = Dragging
	c.payload = p
	c.target = nil
	c.hovered = ""
	return true
}

// Over records target as the place the drag would land, replacing any
// earlier target. An invalid target clears the current one and reports
// false so it is not highlighted.
func (c *Coordinator) Over(target Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging {
		return false
	}
	resolved, ok := c.resolve(c.payload, target)
	if !ok {
		c.target = nil
		return false
	}
	c.target = &resolved
	return true
}

// resolve validates target for payload p and normalizes its index into the
// current child list.
func (c *Coordinator) resolve(p Payload, target Target) (Target, bool) {
	parentType := block.Type("")
	if target.ParentID != "" {
		t, ok := c.tree.TypeOf(target.ParentID)
		if !ok {
			return Target{}, false
		}
		parentType = t
	}
	n := len(c.tree.ChildIDs(target.ParentID))
	if target.Index < 0 || target.Index > n {
		target.Index = n
	}

	reg := c.tree.Registry()
	switch p.Kind {
	case KindMove:
		id := p.BlockID
		t, ok := c.tree.TypeOf(id)
		if !ok {
			return Target{}, false
		}
		if target.ParentID == id || c.tree.IsDescendant(id, target.ParentID) {
			return Target{}, false
		}
		return target, reg.CanContain(parentType, t)
	case KindNewBlock:
		return target, reg.CanContain(parentType, p.BlockType)
	case KindListPreset:
		l, err := c.tree.Presets().List(p.PresetID)
		if err != nil {
			return Target{}, false
		}
		return target, reg.CanContain(parentType, l.Container)
	}
	return Target{}, false
}

// Enter starts the auto-expand timer for blockID when it is a collapsed
// layout block. Entering another block restarts the timer for that one.
func (c *Coordinator) Enter(blockID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging || c.expander == nil {
		return
	}
	t, ok := c.tree.TypeOf(blockID)
	if !ok || !c.tree.Registry().IsLayout(t) || c.expander.IsExpanded(blockID) {
		c.cancelExpand()
		return
	}
	c.hovered = blockID
	c.debounce(func() { c.expand(blockID) })
}

// Leave cancels a pending auto-expand of blockID.
func (c *Coordinator) Leave(blockID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hovered == blockID {
		c.cancelExpand()
	}
}

func (c *Coordinator) cancelExpand() {
	if c.hovered == "" {
		return
	}
	c.hovered = ""
	c.debounce(func() {})
}

func (c *Coordinator) expand(blockID string) {
	c.mu.Lock()
	fire := c.phase == Dragging && c.hovered == blockID
	if fire {
		c.hovered = ""
	}
	c.mu.Unlock()
	if fire {
		c.log.Debug().Str("id", blockID).Msg("auto-expand")
		c.expander.Expand(blockID)
	}
}

// Drop applies the active drag at the current target and returns to Idle.
// It reports false, with no mutation, when there is no valid target or the
// store rejects the call.
func (c *Coordinator) Drop() (Result, bool) {
	c.mu.Lock()
	if c.phase != Dragging {
		c.mu.Unlock()
		return Result{}, false
	}
	p, target := c.payload, c.target
	c.reset()
	c.mu.Unlock()
	if target == nil {
		return Result{}, false
	}

	// The tree may have changed since Over. Store calls run outside the
	// lock so change listeners can query the coordinator.
	resolved, ok := c.resolve(p, *target)
	if !ok {
		return Result{}, false
	}

	res := Result{Kind: p.Kind, ParentID: resolved.ParentID, Index: resolved.Index}
	switch p.Kind {
	case KindMove:
		res.BlockID = p.BlockID
		index, ok := c.move(p.BlockID, resolved)
		res.Index = index
		return res, ok
	case KindNewBlock:
		b := c.tree.AddBlock(p.BlockType, resolved.Index, resolved.ParentID)
		if b == nil {
			return Result{}, false
		}
		res.BlockID = b.ID
	case KindListPreset:
		b := c.tree.InsertListPreset(p.PresetID, resolved.ParentID, resolved.Index)
		if b == nil {
			return Result{}, false
		}
		res.BlockID = b.ID
	}
	res.Index = c.tree.IndexOf(res.BlockID)
	return res, true
}

// move converts the target slot into a final index and issues a reorder
// for same-parent drops or a move otherwise.
func (c *Coordinator) move(id string, target Target) (int, bool) {
	parentID, ok := c.tree.ParentID(id)
	if !ok {
		return 0, false
	}
	if parentID != target.ParentID {
		if !c.tree.MoveBlockToParent(id, target.ParentID, target.Index) {
			return 0, false
		}
		return c.tree.IndexOf(id), true
	}
	from := c.tree.IndexOf(id)
	to := target.Index
	if to > from {
		to--
	}
	if !c.tree.ReorderBlocks(from, to, parentID) {
		return from, false
	}
	return c.tree.IndexOf(id), true
}

// End abandons the drag without mutating anything.
func (c *Coordinator) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Coordinator) reset() {
	c.cancelExpand()
	c.phase = Idle
	c.payload = Payload{}
	c.target = nil
}
