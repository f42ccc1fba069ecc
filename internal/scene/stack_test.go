package scene

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

const testRoot = xproto.Window(0x100)

func collect(t *testing.T, s *Stack) []xproto.Window {
	t.Helper()
	var out []xproto.Window
	it := s.Iterate()
	for {
		win, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, win)
	}
	return out
}

func wantOrder(t *testing.T, s *Stack, want ...xproto.Window) {
	t.Helper()
	got := collect(t, s)
	if len(got) != len(want) {
		t.Fatalf("iteration yielded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iteration yielded %v, want %v", got, want)
		}
	}
}

func TestIterateEmptyRoot(t *testing.T) {
	s := NewStack(testRoot)
	wantOrder(t, s, testRoot)
}

func TestAppendChildStacksOnTop(t *testing.T) {
	s := NewStack(testRoot)
	const a, b, c = 1, 2, 3
	for _, w := range []xproto.Window{a, b, c} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatalf("AppendChild(%d): %v", w, err)
		}
	}
	wantOrder(t, s, testRoot, a, b, c)
}

func TestPrependChildStacksAtBottom(t *testing.T) {
	s := NewStack(testRoot)
	if err := s.AppendChild(testRoot, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.PrependChild(testRoot, 2); err != nil {
		t.Fatal(err)
	}
	wantOrder(t, s, testRoot, 2, 1)
}

func TestMoveAboveSibling(t *testing.T) {
	// S2: A, B, C created in order; restack A above C.
	s := NewStack(testRoot)
	const a, b, c = 1, 2, 3
	for _, w := range []xproto.Window{a, b, c} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MoveAbove(a, c); err != nil {
		t.Fatalf("MoveAbove: %v", err)
	}
	wantOrder(t, s, testRoot, b, c, a)
}

func TestMoveToBottom(t *testing.T) {
	// S3: continuing from S2's final state, C drops to the bottom.
	s := NewStack(testRoot)
	const a, b, c = 1, 2, 3
	for _, w := range []xproto.Window{b, c, a} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MoveToBottom(c); err != nil {
		t.Fatalf("MoveToBottom: %v", err)
	}
	wantOrder(t, s, testRoot, c, b, a)
}

func TestMoveAboveThenBottomEqualsBottom(t *testing.T) {
	// L2: restack above X then to the bottom lands at the bottom.
	s := NewStack(testRoot)
	const a, b, c = 1, 2, 3
	for _, w := range []xproto.Window{a, b, c} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MoveAbove(a, c); err != nil {
		t.Fatal(err)
	}
	if err := s.MoveToBottom(a); err != nil {
		t.Fatal(err)
	}
	wantOrder(t, s, testRoot, a, b, c)
}

func TestReparent(t *testing.T) {
	// S4: siblings A, B under root; B becomes A's only child.
	s := NewStack(testRoot)
	const a, b = 1, 2
	for _, w := range []xproto.Window{a, b} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Reparent(b, a); err != nil {
		t.Fatalf("Reparent: %v", err)
	}
	wantOrder(t, s, testRoot, a, b)
	if kids := s.Children(a); len(kids) != 1 || kids[0] != b {
		t.Fatalf("Children(a) = %v, want [b]", kids)
	}
	if p, ok := s.Parent(b); !ok || p != a {
		t.Fatalf("Parent(b) = %v, %v; want a", p, ok)
	}
}

func TestReparentTwiceEqualsOnce(t *testing.T) {
	// L3: reparent(w, p) then reparent(w, p') matches a single
	// reparent(w, p') for the resulting shape.
	build := func() *Stack {
		s := NewStack(testRoot)
		for _, w := range []xproto.Window{1, 2, 3, 4} {
			if err := s.AppendChild(testRoot, w); err != nil {
				t.Fatal(err)
			}
		}
		return s
	}

	twice := build()
	if err := twice.Reparent(4, 1); err != nil {
		t.Fatal(err)
	}
	if err := twice.Reparent(4, 2); err != nil {
		t.Fatal(err)
	}

	once := build()
	if err := once.Reparent(4, 2); err != nil {
		t.Fatal(err)
	}

	got, want := collect(t, twice), collect(t, once)
	if len(got) != len(want) {
		t.Fatalf("forest shapes differ: %v vs %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("forest shapes differ: %v vs %v", got, want)
		}
	}
}

func TestReparentIntoOwnSubtreeRejected(t *testing.T) {
	s := NewStack(testRoot)
	if err := s.AppendChild(testRoot, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChild(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Reparent(1, 2); err == nil {
		t.Fatal("expected error reparenting a window under its own subtree")
	}
}

func TestRemoveDetachesSubtree(t *testing.T) {
	s := NewStack(testRoot)
	if err := s.AppendChild(testRoot, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChild(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Contains(1) || s.Contains(2) {
		t.Fatal("removed subtree still present")
	}
	wantOrder(t, s, testRoot)
}

func TestRemoveRootRejected(t *testing.T) {
	s := NewStack(testRoot)
	if err := s.Remove(testRoot); err == nil {
		t.Fatal("expected error removing the root")
	}
}

func TestMoveAboveNonSiblingRejected(t *testing.T) {
	s := NewStack(testRoot)
	if err := s.AppendChild(testRoot, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChild(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.MoveAbove(2, 1); err == nil {
		t.Fatal("expected error restacking above a non-sibling")
	}
}

func TestIteratorVisitsNestedOrder(t *testing.T) {
	// Parent is visited before its children; siblings bottom-to-top.
	s := NewStack(testRoot)
	if err := s.AppendChild(testRoot, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChild(testRoot, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChild(1, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChild(1, 11); err != nil {
		t.Fatal(err)
	}
	wantOrder(t, s, testRoot, 1, 10, 11, 2)
}

func TestIteratorVisitsEachNodeOnce(t *testing.T) {
	s := NewStack(testRoot)
	for _, w := range []xproto.Window{1, 2, 3} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AppendChild(2, 20); err != nil {
		t.Fatal(err)
	}
	seen := make(map[xproto.Window]int)
	it := s.Iterate()
	for {
		win, ok := it.Next()
		if !ok {
			break
		}
		seen[win]++
	}
	if len(seen) != s.Len() {
		t.Fatalf("visited %d distinct nodes, want %d", len(seen), s.Len())
	}
	for win, n := range seen {
		if n != 1 {
			t.Fatalf("window 0x%x visited %d times", win, n)
		}
	}
}

func TestIteratorTerminatesOnMutation(t *testing.T) {
	s := NewStack(testRoot)
	for _, w := range []xproto.Window{1, 2, 3} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	it := s.Iterate()
	if _, ok := it.Next(); !ok {
		t.Fatal("iterator exhausted immediately")
	}
	if err := s.Remove(2); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, ok := it.Next(); !ok {
			return
		}
	}
	t.Fatal("iterator kept walking a mutated stack")
}

func TestIteratorDoesNotAllocate(t *testing.T) {
	s := NewStack(testRoot)
	for _, w := range []xproto.Window{1, 2, 3, 4} {
		if err := s.AppendChild(testRoot, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AppendChild(3, 30); err != nil {
		t.Fatal(err)
	}
	allocs := testing.AllocsPerRun(100, func() {
		it := s.Iterate()
		for {
			if _, ok := it.Next(); !ok {
				break
			}
		}
	})
	if allocs != 0 {
		t.Fatalf("iteration allocated %v times per run", allocs)
	}
}
