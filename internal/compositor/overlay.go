package compositor

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Bootstrap takes over composition of the screen: redirects every
// root subwindow to offscreen storage, acquires the overlay, builds
// the 32-bit child surface all painting targets, makes both overlays
// input-transparent, subscribes to the root's substructure events,
// and seeds the scene with windows that already exist.
func (c *Compositor) Bootstrap() error {
	req := c.pair.Request.Conn()
	root := c.scene.Root
	screen := c.pair.Screen()

	// Manual redirection: automatic would have the server recompose
	// the screen itself and ignore alpha entirely.
	if err := composite.RedirectSubwindowsChecked(req, root, composite.RedirectManual).Check(); err != nil {
		return fmt.Errorf("compositor: redirect subwindows: %w", err)
	}

	orep, err := composite.GetOverlayWindow(req, root).Reply()
	if err != nil {
		return fmt.Errorf("compositor: get overlay window: %w", err)
	}
	c.overlay = orep.OverlayWin
	c.log.Info("acquired overlay window", "overlay", fmt.Sprintf("0x%x", c.overlay))

	visual, ok := findARGBVisual(screen)
	if !ok {
		return fmt.Errorf("compositor: no 32-bit TrueColor visual on screen")
	}

	// A depth-32 window needs an explicit matching colormap plus
	// background and border pixels; the server rejects the create
	// otherwise. Fully transparent pixels keep the child invisible
	// until something is composited onto it.
	colormap, err := xproto.NewColormapId(req)
	if err != nil {
		return fmt.Errorf("compositor: allocate colormap id: %w", err)
	}
	if err := xproto.CreateColormapChecked(req, xproto.ColormapAllocNone, colormap, root, visual).Check(); err != nil {
		return fmt.Errorf("compositor: create colormap: %w", err)
	}
	c.colormap = colormap

	child, err := xproto.NewWindowId(req)
	if err != nil {
		return fmt.Errorf("compositor: allocate window id: %w", err)
	}
	err = xproto.CreateWindowChecked(req, 32, child, c.overlay,
		0, 0, screen.WidthInPixels, screen.HeightInPixels, 0,
		xproto.WindowClassInputOutput, visual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwColormap,
		[]uint32{0x00000000, 0x00000000, uint32(colormap)}).Check()
	if err != nil {
		return fmt.Errorf("compositor: create child overlay: %w", err)
	}
	c.child = child

	if err := c.loadPictFormats(); err != nil {
		return err
	}
	format, ok := c.pictFormatForVisual(visual)
	if !ok {
		return fmt.Errorf("compositor: no picture format for visual 0x%x", visual)
	}
	pict, err := render.NewPictureId(req)
	if err != nil {
		return fmt.Errorf("compositor: allocate picture id: %w", err)
	}
	if err := render.CreatePictureChecked(req, pict, xproto.Drawable(child), format, 0, []uint32{}).Check(); err != nil {
		return fmt.Errorf("compositor: create overlay picture: %w", err)
	}
	c.childPict = pict

	// Empty input shapes make both overlays click-through; pointer
	// events land on whatever is stacked beneath.
	for _, win := range []xproto.Window{c.overlay, child} {
		err := shape.RectanglesChecked(req, shape.SoSet, shape.SkInput,
			xproto.ClipOrderingUnsorted, win, 0, 0, nil).Check()
		if err != nil {
			return fmt.Errorf("compositor: clear input shape of 0x%x: %w", win, err)
		}
	}

	if err := c.setWindowProperties(child); err != nil {
		return err
	}

	// Substructure notifications are selected on the event
	// connection; substructure redirect is deliberately not, since
	// this is a compositor, not a window manager. Expose on the
	// child overlay triggers full repaints when its contents are
	// lost.
	err = xproto.ChangeWindowAttributesChecked(c.pair.Event.Conn(), root,
		xproto.CwEventMask, []uint32{xproto.EventMaskSubstructureNotify}).Check()
	if err != nil {
		return fmt.Errorf("compositor: select substructure notify: %w", err)
	}
	err = xproto.ChangeWindowAttributesChecked(c.pair.Event.Conn(), child,
		xproto.CwEventMask, []uint32{xproto.EventMaskExposure}).Check()
	if err != nil {
		return fmt.Errorf("compositor: select exposure on child overlay: %w", err)
	}

	if err := xproto.MapWindowChecked(req, child).Check(); err != nil {
		return fmt.Errorf("compositor: map child overlay: %w", err)
	}

	if err := c.seedExistingWindows(); err != nil {
		return err
	}
	c.publishStats()
	return nil
}

// setWindowProperties pairs _NET_WM_PID with WM_CLIENT_MACHINE on
// our own window, as EWMH requires of anyone setting the PID.
func (c *Compositor) setWindowProperties(win xproto.Window) error {
	if err := xprop.ChangeProp32(c.pair.Request, win, "_NET_WM_PID", "CARDINAL", uint(os.Getpid())); err != nil {
		return fmt.Errorf("compositor: set _NET_WM_PID: %w", err)
	}
	host, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("compositor: hostname: %w", err)
	}
	if err := xprop.ChangeProp(c.pair.Request, win, 8, "WM_CLIENT_MACHINE", "STRING", []byte(host)); err != nil {
		return fmt.Errorf("compositor: set WM_CLIENT_MACHINE: %w", err)
	}
	return nil
}

// seedExistingWindows walks QueryTree so windows mapped before we
// started are tracked and painted just as if their notifications had
// been observed live. The reply lists children bottom-to-top, which
// matches the stack's insertion order.
func (c *Compositor) seedExistingWindows() error {
	req := c.pair.Request.Conn()
	tree, err := xproto.QueryTree(req, c.scene.Root).Reply()
	if err != nil {
		return fmt.Errorf("compositor: query tree: %w", err)
	}
	for _, win := range tree.Children {
		if win == c.overlay || win == c.child {
			continue
		}
		geom, err := xproto.GetGeometry(req, xproto.Drawable(win)).Reply()
		if err != nil {
			// Raced with a destroy; the window is already gone.
			c.log.Debug("skipping vanished window", "window", fmt.Sprintf("0x%x", win))
			continue
		}
		attrs, err := xproto.GetWindowAttributes(req, win).Reply()
		if err != nil {
			c.log.Debug("skipping vanished window", "window", fmt.Sprintf("0x%x", win))
			continue
		}
		if err := c.scene.AddWindow(win, c.scene.Root, geom.X, geom.Y, geom.Width, geom.Height); err != nil {
			return err
		}
		if err := c.createDamage(win); err != nil {
			return err
		}
		if attrs.MapState == xproto.MapStateViewable {
			if err := c.scene.SetVisible(win, true); err != nil {
				return err
			}
			if err := c.createWindowPicture(win); err != nil {
				return err
			}
		}
	}
	c.log.Info("seeded existing windows", "count", len(c.scene.Windows))
	c.paint()
	return nil
}

func (c *Compositor) loadPictFormats() error {
	rep, err := render.QueryPictFormats(c.pair.Request.Conn()).Reply()
	if err != nil {
		return fmt.Errorf("compositor: query picture formats: %w", err)
	}
	c.pictFormats = rep
	return nil
}

// pictFormatForVisual resolves the Render picture format bound to a
// visual, the same lookup every Render client does after
// QueryPictFormats.
func (c *Compositor) pictFormatForVisual(visual xproto.Visualid) (render.Pictformat, bool) {
	for _, s := range c.pictFormats.Screens {
		for _, d := range s.Depths {
			for _, v := range d.Visuals {
				if v.Visual == visual {
					return v.Format, true
				}
			}
		}
	}
	return 0, false
}

// findARGBVisual locates a TrueColor visual at depth 32, the only
// kind the child overlay can be created over if compositing is to
// preserve alpha.
func findARGBVisual(screen *xproto.ScreenInfo) (xproto.Visualid, bool) {
	for _, depth := range screen.AllowedDepths {
		if depth.Depth != 32 {
			continue
		}
		for _, vis := range depth.Visuals {
			if vis.Class == xproto.VisualClassTrueColor {
				return vis.VisualId, true
			}
		}
	}
	return 0, false
}
