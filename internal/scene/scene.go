package scene

import (
	"fmt"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// Window is the client-side record of one top-level window observed
// under the root. Geometry is relative to the parent, as reported by
// the server.
type Window struct {
	ID      xproto.Window
	Visible bool
	X, Y    int16
	Width   uint16
	Height  uint16
}

// State aggregates everything the compositor knows about the screen:
// the window table, the stacking forest, and the per-window server
// resources. The resource IDs are owned by the server; the maps only
// record which Free/Destroy requests are owed.
type State struct {
	Root       xproto.Window
	RootWidth  uint16
	RootHeight uint16

	Windows  map[xproto.Window]*Window
	Pictures map[xproto.Window]render.Picture
	Regions  map[xproto.Window]xfixes.Region
	Damages  map[xproto.Window]damage.Damage

	Stack *Stack
}

// NewState creates an empty scene for the given root window.
func NewState(root xproto.Window, rootWidth, rootHeight uint16) *State {
	return &State{
		Root:       root,
		RootWidth:  rootWidth,
		RootHeight: rootHeight,
		Windows:    make(map[xproto.Window]*Window),
		Pictures:   make(map[xproto.Window]render.Picture),
		Regions:    make(map[xproto.Window]xfixes.Region),
		Damages:    make(map[xproto.Window]damage.Damage),
		Stack:      NewStack(root),
	}
}

// AddWindow records a freshly created window: not yet visible, placed
// on top of its siblings.
func (st *State) AddWindow(win, parent xproto.Window, x, y int16, width, height uint16) error {
	if _, ok := st.Windows[win]; ok {
		return fmt.Errorf("scene: window 0x%x already tracked", win)
	}
	if err := st.Stack.AppendChild(parent, win); err != nil {
		return err
	}
	st.Windows[win] = &Window{ID: win, X: x, Y: y, Width: width, Height: height}
	return nil
}

// RemoveWindow drops a destroyed window from the table, the forest,
// and every resource map. The freed resource IDs are returned so the
// caller can issue the matching Free requests; zero values mean the
// resource was never allocated.
func (st *State) RemoveWindow(win xproto.Window) (render.Picture, xfixes.Region, damage.Damage, error) {
	if _, ok := st.Windows[win]; !ok {
		return 0, 0, 0, fmt.Errorf("scene: unknown window 0x%x", win)
	}
	if err := st.Stack.Remove(win); err != nil {
		return 0, 0, 0, err
	}
	pict := st.Pictures[win]
	region := st.Regions[win]
	dmg := st.Damages[win]
	delete(st.Windows, win)
	delete(st.Pictures, win)
	delete(st.Regions, win)
	delete(st.Damages, win)
	return pict, region, dmg, nil
}

// SetVisible flips the mapped state of a window.
func (st *State) SetVisible(win xproto.Window, visible bool) error {
	w, ok := st.Windows[win]
	if !ok {
		return fmt.Errorf("scene: unknown window 0x%x", win)
	}
	w.Visible = visible
	return nil
}

// Configure updates a window's geometry and restacks it according to
// aboveSibling: None moves it to the bottom of its siblings, anything
// else places it immediately above that sibling.
func (st *State) Configure(win xproto.Window, x, y int16, width, height uint16, aboveSibling xproto.Window) error {
	w, ok := st.Windows[win]
	if !ok {
		return fmt.Errorf("scene: unknown window 0x%x", win)
	}
	w.X, w.Y = x, y
	w.Width, w.Height = width, height
	if aboveSibling == xproto.WindowNone {
		return st.Stack.MoveToBottom(win)
	}
	return st.Stack.MoveAbove(win, aboveSibling)
}

// Lookup returns the record for win, if tracked.
func (st *State) Lookup(win xproto.Window) (*Window, bool) {
	w, ok := st.Windows[win]
	return w, ok
}

// WindowByDamage finds the window owning a damage object. Damage
// notify events carry the drawable too, but resolving through the map
// keeps a destroyed window's stale notifications from resurrecting it.
func (st *State) WindowByDamage(d damage.Damage) (xproto.Window, bool) {
	for win, dd := range st.Damages {
		if dd == d {
			return win, true
		}
	}
	return 0, false
}

// Consistent verifies that the window table and the stacking forest
// agree: same window set, and every non-root node reachable from the
// root with an intact parent back-reference. The compositor runs this
// after every dispatched event; a violation means a notification was
// missed and the model can no longer be trusted.
func (st *State) Consistent() error {
	if len(st.Windows) != st.Stack.Len()-1 {
		return fmt.Errorf("scene: window table has %d entries, stack has %d",
			len(st.Windows), st.Stack.Len()-1)
	}
	seen := 0
	it := st.Stack.Iterate()
	for {
		win, ok := it.Next()
		if !ok {
			break
		}
		seen++
		if win == st.Root {
			continue
		}
		if _, ok := st.Windows[win]; !ok {
			return fmt.Errorf("scene: window 0x%x stacked but not tracked", win)
		}
		parent, ok := st.Stack.Parent(win)
		if !ok {
			return fmt.Errorf("scene: window 0x%x has no parent", win)
		}
		found := false
		for _, c := range st.Stack.Children(parent) {
			if c == win {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("scene: window 0x%x missing from parent 0x%x child list", win, parent)
		}
	}
	if seen != st.Stack.Len() {
		return fmt.Errorf("scene: iterator visited %d of %d nodes", seen, st.Stack.Len())
	}
	return nil
}
