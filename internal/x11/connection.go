package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Pair manages the two X11 connections the compositor runs on. The
// event connection is drained by the main loop and owns the Damage
// objects; the request connection carries synchronous request/reply
// traffic and owns every other resource. Each side has its own
// sequence numbers, XID range, and read buffering (all handled by
// xgb), so reply traffic never races the event stream.
type Pair struct {
	Event   *xgbutil.XUtil
	Request *xgbutil.XUtil
}

// Connect opens both connections to the given display (empty means
// $DISPLAY) and negotiates the required extensions on each. The
// server treats the two as unrelated clients; that is the point.
func Connect(display string) (*Pair, error) {
	ev, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("x11: event connection: %w", err)
	}
	req, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		ev.Conn().Close()
		return nil, fmt.Errorf("x11: request connection: %w", err)
	}
	p := &Pair{Event: ev, Request: req}

	if err := negotiateEvent(ev); err != nil {
		p.Close()
		return nil, err
	}
	if err := negotiateRequest(req); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Root returns the root window of the first screen.
func (p *Pair) Root() xproto.Window {
	return p.Screen().Root
}

// Screen returns the first screen reported in the connection setup.
func (p *Pair) Screen() *xproto.ScreenInfo {
	return &p.Request.Setup().Roots[0]
}

// Close disconnects both sides.
func (p *Pair) Close() {
	p.Event.Conn().Close()
	p.Request.Conn().Close()
}
