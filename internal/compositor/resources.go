package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// createDamage allocates the per-window damage object. It lives on
// the event connection: Damage couples creation with event
// subscription, so the connection that reads notifications must own
// the object. NonEmpty report level means one notification per burst
// of damage until we subtract.
func (c *Compositor) createDamage(win xproto.Window) error {
	evc := c.pair.Event.Conn()
	d, err := damage.NewDamageId(evc)
	if err != nil {
		return fmt.Errorf("compositor: allocate damage id: %w", err)
	}
	if err := damage.CreateChecked(evc, d, xproto.Drawable(win), damage.ReportLevelNonEmpty).Check(); err != nil {
		return fmt.Errorf("compositor: create damage for 0x%x: %w", win, err)
	}
	c.scene.Damages[win] = d
	return nil
}

// createWindowPicture wraps a window in a Render picture using the
// format of the window's own visual. Render composite handles the
// depth mismatch between a 24-bit client window and the 32-bit
// overlay, which is why painting goes through Render and not
// CopyArea.
func (c *Compositor) createWindowPicture(win xproto.Window) error {
	req := c.pair.Request.Conn()
	attrs, err := xproto.GetWindowAttributes(req, win).Reply()
	if err != nil {
		return fmt.Errorf("compositor: window attributes of 0x%x: %w", win, err)
	}
	format, ok := c.pictFormatForVisual(attrs.Visual)
	if !ok {
		return fmt.Errorf("compositor: no picture format for visual 0x%x of window 0x%x", attrs.Visual, win)
	}
	pict, err := render.NewPictureId(req)
	if err != nil {
		return fmt.Errorf("compositor: allocate picture id: %w", err)
	}
	if err := render.CreatePictureChecked(req, pict, xproto.Drawable(win), format, 0, []uint32{}).Check(); err != nil {
		return fmt.Errorf("compositor: create picture for 0x%x: %w", win, err)
	}
	c.scene.Pictures[win] = pict
	return nil
}

// replaceRegion swaps in a fresh bounding region for a reconfigured
// window, releasing the stale one so the window never holds more
// than a single region.
func (c *Compositor) replaceRegion(win xproto.Window) error {
	req := c.pair.Request.Conn()
	if old, ok := c.scene.Regions[win]; ok {
		xfixes.DestroyRegion(req, old)
		delete(c.scene.Regions, win)
	}
	region, err := xfixes.NewRegionId(req)
	if err != nil {
		return fmt.Errorf("compositor: allocate region id: %w", err)
	}
	if err := xfixes.CreateRegionFromWindowChecked(req, region, win, shape.SkBounding).Check(); err != nil {
		return fmt.Errorf("compositor: create region for 0x%x: %w", win, err)
	}
	c.scene.Regions[win] = region
	return nil
}

// freeWindowResources issues the Free requests owed for a destroyed
// window. The damage object goes on the event connection it was
// created on; everything else on the request connection. Requests
// are unchecked: the window is gone and the server may already have
// reaped some of these.
func (c *Compositor) freeWindowResources(win xproto.Window, pict render.Picture, region xfixes.Region, dmg damage.Damage) {
	req := c.pair.Request.Conn()
	if pict != 0 {
		render.FreePicture(req, pict)
	}
	if region != 0 {
		xfixes.DestroyRegion(req, region)
	}
	if dmg != 0 {
		damage.Destroy(c.pair.Event.Conn(), dmg)
	}
}

// Shutdown releases the overlay resources in reverse creation order
// and drops both connections. Best-effort and idempotent: cleanup
// errors are logged and never mask whatever ended the run.
func (c *Compositor) Shutdown() {
	c.shutdownOnce.Do(func() {
		req := c.pair.Request.Conn()
		if c.childPict != 0 {
			if err := render.FreePictureChecked(req, c.childPict).Check(); err != nil {
				c.log.Warn("free overlay picture", "error", err)
			}
		}
		if c.child != 0 {
			if err := xproto.DestroyWindowChecked(req, c.child).Check(); err != nil {
				c.log.Warn("destroy child overlay", "error", err)
			}
		}
		if c.colormap != 0 {
			if err := xproto.FreeColormapChecked(req, c.colormap).Check(); err != nil {
				c.log.Warn("free colormap", "error", err)
			}
		}
		if c.overlay != 0 {
			if err := composite.ReleaseOverlayWindowChecked(req, c.scene.Root).Check(); err != nil {
				c.log.Warn("release overlay window", "error", err)
			}
		}
		c.pair.Close()
		c.log.Info("compositor shut down")
	})
}
