// Package history keeps bounded undo and redo stacks of document states.
package history

import "sync"

// DefaultLimit is the number of undo steps kept when New gets a
// non-positive limit.
const DefaultLimit = 100

// History stores whole states. The caller records the state before each
// change and hands in the current state when stepping.
type History[T any] struct {
	mu    sync.Mutex
	limit int
	undo  []T
	redo  []T
}

func New[T any](limit int) *History[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History[T]{limit: limit}
}

// Record pushes state as the newest undo step and clears the redo stack.
// The oldest step is dropped once the limit is reached.
func (h *History[T]) Record(state T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = push(h.undo, state, h.limit)
	h.redo = nil
}

// Undo returns the state to restore and moves current onto the redo stack.
func (h *History[T]) Undo(current T) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var prev T
	if len(h.undo) == 0 {
		return prev, false
	}
	prev, h.undo = pop(h.undo)
	h.redo = push(h.redo, current, h.limit)
	return prev, true
}

// Redo is the inverse of Undo.
func (h *History[T]) Redo(current T) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var next T
	if len(h.redo) == 0 {
		return next, false
	}
	next, h.redo = pop(h.redo)
	h.undo = push(h.undo, current, h.limit)
	return next, true
}

func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Depth returns the sizes of the undo and redo stacks.
func (h *History[T]) Depth() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

func push[T any](stack []T, v T, limit int) []T {
	stack = append(stack, v)
	if over := len(stack) - limit; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

func pop[T any](stack []T) (T, []T) {
	n := len(stack) - 1
	v := stack[n]
	var zero T
	stack[n] = zero
	return v, stack[:n]
}
