package compositor

import (
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/softveil/softveil/internal/scene"
)

// paintOp is one Render Composite request of a repaint pass.
type paintOp struct {
	win  xproto.Window
	pict render.Picture
	x, y int16
	w, h uint16
}

// paintPlan walks the stacking forest bottom-to-top and emits one op
// per visible window that has a picture. The order of the returned
// slice is the paint order; painting "over" in that order is what
// makes overlapping alpha come out right.
func paintPlan(st *scene.State) []paintOp {
	ops := make([]paintOp, 0, len(st.Windows))
	it := st.Stack.Iterate()
	for {
		win, ok := it.Next()
		if !ok {
			break
		}
		if win == st.Root {
			continue
		}
		w, ok := st.Lookup(win)
		if !ok || !w.Visible {
			continue
		}
		pict, ok := st.Pictures[win]
		if !ok {
			continue
		}
		ops = append(ops, paintOp{
			win:  win,
			pict: pict,
			x:    w.X,
			y:    w.Y,
			w:    w.Width,
			h:    w.Height,
		})
	}
	return ops
}

// paint recomposites the scene onto the child overlay. Source origin
// is always (0,0): whole-window repaints, with the damage extent only
// used as a trigger.
func (c *Compositor) paint() {
	req := c.pair.Request.Conn()
	for _, op := range paintPlan(c.scene) {
		render.Composite(req, render.PictOpOver, op.pict, render.PictureNone,
			c.childPict, 0, 0, 0, 0, op.x, op.y, op.w, op.h)
	}
	c.stats.mu.Lock()
	c.stats.paints++
	c.stats.mu.Unlock()
}
