package scene

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func newTestState() *State {
	return NewState(testRoot, 1920, 1080)
}

func TestAddRemoveWindowRoundTrip(t *testing.T) {
	// L1: create then destroy leaves the scene as it was.
	st := newTestState()
	if err := st.AddWindow(1, testRoot, 10, 20, 300, 400); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	st.Pictures[1] = 0x500
	st.Regions[1] = 0x600
	st.Damages[1] = 0x700

	pict, region, dmg, err := st.RemoveWindow(1)
	if err != nil {
		t.Fatalf("RemoveWindow: %v", err)
	}
	if pict != 0x500 || region != 0x600 || dmg != 0x700 {
		t.Fatalf("RemoveWindow returned %#x/%#x/%#x, want the recorded resources", pict, region, dmg)
	}
	if len(st.Windows) != 0 || len(st.Pictures) != 0 || len(st.Regions) != 0 || len(st.Damages) != 0 {
		t.Fatal("maps not empty after remove")
	}
	if st.Stack.Len() != 1 {
		t.Fatalf("stack has %d nodes after remove, want 1", st.Stack.Len())
	}
	if err := st.Consistent(); err != nil {
		t.Fatalf("Consistent: %v", err)
	}
}

func TestAddWindowStartsHidden(t *testing.T) {
	st := newTestState()
	if err := st.AddWindow(1, testRoot, 0, 0, 100, 100); err != nil {
		t.Fatal(err)
	}
	w, ok := st.Lookup(1)
	if !ok {
		t.Fatal("window not tracked")
	}
	if w.Visible {
		t.Fatal("new window must not be visible before map-notify")
	}
}

func TestConfigureUpdatesGeometryAndRestacks(t *testing.T) {
	st := newTestState()
	for _, w := range []xproto.Window{1, 2, 3} {
		if err := st.AddWindow(w, testRoot, 0, 0, 100, 100); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Configure(1, 5, -7, 640, 480, 3); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	w, _ := st.Lookup(1)
	if w.X != 5 || w.Y != -7 || w.Width != 640 || w.Height != 480 {
		t.Fatalf("geometry = %+v, want 5,-7,640x480", w)
	}
	if got := st.Stack.Children(testRoot); got[2] != 1 {
		t.Fatalf("children = %v, want window 1 on top", got)
	}

	if err := st.Configure(1, 5, -7, 640, 480, xproto.WindowNone); err != nil {
		t.Fatal(err)
	}
	if got := st.Stack.Children(testRoot); got[0] != 1 {
		t.Fatalf("children = %v, want window 1 at bottom", got)
	}
}

func TestConfigureUnknownWindowFails(t *testing.T) {
	st := newTestState()
	if err := st.Configure(9, 0, 0, 1, 1, xproto.WindowNone); err == nil {
		t.Fatal("expected error configuring unknown window")
	}
}

func TestSetVisible(t *testing.T) {
	st := newTestState()
	if err := st.AddWindow(1, testRoot, 0, 0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := st.SetVisible(1, true); err != nil {
		t.Fatal(err)
	}
	if w, _ := st.Lookup(1); !w.Visible {
		t.Fatal("window should be visible after map")
	}
	if err := st.SetVisible(1, false); err != nil {
		t.Fatal(err)
	}
	if w, _ := st.Lookup(1); w.Visible {
		t.Fatal("window should be hidden after unmap")
	}
}

func TestWindowByDamage(t *testing.T) {
	st := newTestState()
	if err := st.AddWindow(1, testRoot, 0, 0, 1, 1); err != nil {
		t.Fatal(err)
	}
	st.Damages[1] = 0x42
	if win, ok := st.WindowByDamage(0x42); !ok || win != 1 {
		t.Fatalf("WindowByDamage = %v, %v; want window 1", win, ok)
	}
	if _, ok := st.WindowByDamage(0x43); ok {
		t.Fatal("unknown damage resolved to a window")
	}
}

func TestConsistentDetectsDrift(t *testing.T) {
	st := newTestState()
	if err := st.AddWindow(1, testRoot, 0, 0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := st.Consistent(); err != nil {
		t.Fatalf("Consistent on healthy scene: %v", err)
	}

	// Simulate a missed destroy-notify: table entry without a node.
	delete(st.Windows, 1)
	st.Windows[2] = &Window{ID: 2}
	if err := st.Consistent(); err == nil {
		t.Fatal("Consistent missed table/stack drift")
	}
}
