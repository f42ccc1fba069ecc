package scene

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// Stack mirrors the server's stacking order as a rooted ordered forest.
// Children are kept bottom-to-top, so a pre-order walk yields paint
// order for "over" composition. Exactly one node exists per live
// window; the root node is the screen's root window and is never
// removed.
type Stack struct {
	root  *node
	byWin map[xproto.Window]*node
	gen   uint64
}

type node struct {
	win      xproto.Window
	parent   *node
	children []*node
}

// NewStack creates a stack containing only the root window.
func NewStack(root xproto.Window) *Stack {
	n := &node{win: root}
	return &Stack{
		root:  n,
		byWin: map[xproto.Window]*node{root: n},
	}
}

// Root returns the root window the stack was created with.
func (s *Stack) Root() xproto.Window {
	return s.root.win
}

// Contains reports whether win is in the stack (including the root).
func (s *Stack) Contains(win xproto.Window) bool {
	_, ok := s.byWin[win]
	return ok
}

// Len returns the number of nodes, root included.
func (s *Stack) Len() int {
	return len(s.byWin)
}

// WindowIDs returns every non-root window in the stack, in no
// particular order.
func (s *Stack) WindowIDs() []xproto.Window {
	ids := make([]xproto.Window, 0, len(s.byWin)-1)
	for w := range s.byWin {
		if w != s.root.win {
			ids = append(ids, w)
		}
	}
	return ids
}

// AppendChild inserts win as the topmost child of parent. New windows
// always appear on top of their siblings.
func (s *Stack) AppendChild(parent, win xproto.Window) error {
	p, ok := s.byWin[parent]
	if !ok {
		return fmt.Errorf("stack: unknown parent window 0x%x", parent)
	}
	if _, ok := s.byWin[win]; ok {
		return fmt.Errorf("stack: window 0x%x already present", win)
	}
	n := &node{win: win, parent: p}
	p.children = append(p.children, n)
	s.byWin[win] = n
	s.gen++
	return nil
}

// PrependChild inserts win as the bottommost child of parent.
func (s *Stack) PrependChild(parent, win xproto.Window) error {
	p, ok := s.byWin[parent]
	if !ok {
		return fmt.Errorf("stack: unknown parent window 0x%x", parent)
	}
	if _, ok := s.byWin[win]; ok {
		return fmt.Errorf("stack: window 0x%x already present", win)
	}
	n := &node{win: win, parent: p}
	p.children = append([]*node{n}, p.children...)
	s.byWin[win] = n
	s.gen++
	return nil
}

// Remove detaches win and its entire subtree from the stack. Removing
// the root is an error.
func (s *Stack) Remove(win xproto.Window) error {
	n, ok := s.byWin[win]
	if !ok {
		return fmt.Errorf("stack: unknown window 0x%x", win)
	}
	if n == s.root {
		return fmt.Errorf("stack: cannot remove root window 0x%x", win)
	}
	s.detach(n)
	s.forget(n)
	s.gen++
	return nil
}

// Reparent detaches win and reattaches it as the topmost child of
// newParent, carrying its subtree along.
func (s *Stack) Reparent(win, newParent xproto.Window) error {
	n, ok := s.byWin[win]
	if !ok {
		return fmt.Errorf("stack: unknown window 0x%x", win)
	}
	if n == s.root {
		return fmt.Errorf("stack: cannot reparent root window 0x%x", win)
	}
	p, ok := s.byWin[newParent]
	if !ok {
		return fmt.Errorf("stack: unknown parent window 0x%x", newParent)
	}
	// Reparenting a node under its own subtree would orphan the tree.
	for a := p; a != nil; a = a.parent {
		if a == n {
			return fmt.Errorf("stack: window 0x%x is an ancestor of 0x%x", win, newParent)
		}
	}
	s.detach(n)
	n.parent = p
	p.children = append(p.children, n)
	s.gen++
	return nil
}

// MoveAbove restacks win immediately above sibling among their common
// siblings, matching a configure-notify with a non-None above_sibling.
func (s *Stack) MoveAbove(win, sibling xproto.Window) error {
	n, ok := s.byWin[win]
	if !ok {
		return fmt.Errorf("stack: unknown window 0x%x", win)
	}
	sib, ok := s.byWin[sibling]
	if !ok {
		return fmt.Errorf("stack: unknown sibling window 0x%x", sibling)
	}
	if n == s.root {
		return fmt.Errorf("stack: cannot restack root window 0x%x", win)
	}
	if sib.parent != n.parent {
		return fmt.Errorf("stack: 0x%x and 0x%x are not siblings", win, sibling)
	}
	if n == sib {
		return fmt.Errorf("stack: cannot restack 0x%x above itself", win)
	}
	p := n.parent
	s.detach(n)
	idx := indexOf(p.children, sib)
	p.children = append(p.children, nil)
	copy(p.children[idx+2:], p.children[idx+1:])
	p.children[idx+1] = n
	n.parent = p
	s.gen++
	return nil
}

// MoveToBottom restacks win below all of its siblings, matching a
// configure-notify with above_sibling = None.
func (s *Stack) MoveToBottom(win xproto.Window) error {
	n, ok := s.byWin[win]
	if !ok {
		return fmt.Errorf("stack: unknown window 0x%x", win)
	}
	if n == s.root {
		return fmt.Errorf("stack: cannot restack root window 0x%x", win)
	}
	p := n.parent
	s.detach(n)
	p.children = append([]*node{n}, p.children...)
	n.parent = p
	s.gen++
	return nil
}

// MoveToTop restacks win above all of its siblings (circulate Top).
func (s *Stack) MoveToTop(win xproto.Window) error {
	n, ok := s.byWin[win]
	if !ok {
		return fmt.Errorf("stack: unknown window 0x%x", win)
	}
	if n == s.root {
		return fmt.Errorf("stack: cannot restack root window 0x%x", win)
	}
	p := n.parent
	s.detach(n)
	p.children = append(p.children, n)
	n.parent = p
	s.gen++
	return nil
}

// Parent returns the parent of win, or false for the root and for
// unknown windows.
func (s *Stack) Parent(win xproto.Window) (xproto.Window, bool) {
	n, ok := s.byWin[win]
	if !ok || n.parent == nil {
		return 0, false
	}
	return n.parent.win, true
}

// Children returns the children of win, bottom-to-top.
func (s *Stack) Children(win xproto.Window) []xproto.Window {
	n, ok := s.byWin[win]
	if !ok {
		return nil
	}
	out := make([]xproto.Window, len(n.children))
	for i, c := range n.children {
		out[i] = c.win
	}
	return out
}

func (s *Stack) detach(n *node) {
	p := n.parent
	idx := indexOf(p.children, n)
	p.children = append(p.children[:idx], p.children[idx+1:]...)
	n.parent = nil
}

func (s *Stack) forget(n *node) {
	delete(s.byWin, n.win)
	for _, c := range n.children {
		s.forget(c)
	}
}

func indexOf(ns []*node, n *node) int {
	for i, c := range ns {
		if c == n {
			return i
		}
	}
	return -1
}

// Iter walks the stack depth-first in bottom-to-top order: each node
// is visited before its children, children in bottom-to-top order.
// The walk holds no auxiliary state beyond the current node; climbing
// back up uses the parent back-references. If the stack is mutated
// mid-walk the iterator terminates rather than traverse stale links.
type Iter struct {
	s    *Stack
	gen  uint64
	cur  *node
	done bool
}

// Iterate returns an iterator positioned before the root.
func (s *Stack) Iterate() Iter {
	return Iter{s: s, gen: s.gen}
}

// Next returns the next window in paint order. The second result is
// false once the walk is exhausted or the stack has been mutated
// since Iterate was called.
func (it *Iter) Next() (xproto.Window, bool) {
	if it.done || it.s.gen != it.gen {
		it.done = true
		return 0, false
	}
	if it.cur == nil {
		it.cur = it.s.root
		return it.cur.win, true
	}
	if len(it.cur.children) > 0 {
		it.cur = it.cur.children[0]
		return it.cur.win, true
	}
	for n := it.cur; n.parent != nil; n = n.parent {
		idx := indexOf(n.parent.children, n)
		if idx+1 < len(n.parent.children) {
			it.cur = n.parent.children[idx+1]
			return it.cur.win, true
		}
	}
	it.done = true
	return 0, false
}
