package compositor

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// dispatch routes one event from the event connection. Model
// mutation always completes before any painting, so a repaint pass
// observes a consistent scene.
func (c *Compositor) dispatch(ev xgb.Event) error {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return c.handleCreate(e)
	case xproto.DestroyNotifyEvent:
		return c.handleDestroy(e)
	case xproto.MapNotifyEvent:
		return c.handleMap(e)
	case xproto.UnmapNotifyEvent:
		return c.handleUnmap(e)
	case xproto.ConfigureNotifyEvent:
		return c.handleConfigure(e)
	case xproto.ReparentNotifyEvent:
		return c.handleReparent(e)
	case xproto.CirculateNotifyEvent:
		return c.handleCirculate(e)
	case xproto.GravityNotifyEvent:
		c.paint()
		return nil
	case xproto.ExposeEvent:
		c.paint()
		return nil
	case damage.NotifyEvent:
		return c.handleDamage(e)
	case xproto.MappingNotifyEvent:
		// Keyboard mapping chatter; sent to every client unasked.
		return nil
	default:
		// A core event outside the subscribed set means the stream
		// no longer matches the model. Extension events we never
		// asked for are merely noise.
		if strings.HasPrefix(fmt.Sprintf("%T", ev), "xproto.") {
			return fmt.Errorf("compositor: unexpected event %T: %s", ev, ev.String())
		}
		c.log.Warn("ignoring unhandled extension event", "type", fmt.Sprintf("%T", ev))
		return nil
	}
}

func (c *Compositor) handleCreate(e xproto.CreateNotifyEvent) error {
	if _, ok := c.scene.Lookup(e.Window); ok {
		// Created between redirection and the QueryTree seed; the
		// seed already tracked it.
		return nil
	}
	if err := c.scene.AddWindow(e.Window, e.Parent, e.X, e.Y, e.Width, e.Height); err != nil {
		return err
	}
	c.log.Debug("window created",
		"window", fmt.Sprintf("0x%x", e.Window),
		"geometry", fmt.Sprintf("%dx%d+%d+%d", e.Width, e.Height, e.X, e.Y))
	return c.createDamage(e.Window)
}

func (c *Compositor) handleDestroy(e xproto.DestroyNotifyEvent) error {
	if _, ok := c.scene.Lookup(e.Window); !ok {
		// Destroyed before the QueryTree seed could observe it.
		c.log.Debug("destroy for untracked window", "window", fmt.Sprintf("0x%x", e.Window))
		return nil
	}
	pict, region, dmg, err := c.scene.RemoveWindow(e.Window)
	if err != nil {
		return err
	}
	c.freeWindowResources(e.Window, pict, region, dmg)
	c.log.Debug("window destroyed", "window", fmt.Sprintf("0x%x", e.Window))
	return nil
}

func (c *Compositor) handleMap(e xproto.MapNotifyEvent) error {
	if err := c.scene.SetVisible(e.Window, true); err != nil {
		return err
	}
	if _, ok := c.scene.Pictures[e.Window]; !ok {
		if err := c.createWindowPicture(e.Window); err != nil {
			return err
		}
	}
	c.paint()
	return nil
}

func (c *Compositor) handleUnmap(e xproto.UnmapNotifyEvent) error {
	if err := c.scene.SetVisible(e.Window, false); err != nil {
		return err
	}
	// The picture is kept; it is cheap and the window may map again.
	c.paint()
	return nil
}

func (c *Compositor) handleConfigure(e xproto.ConfigureNotifyEvent) error {
	if err := c.scene.Configure(e.Window, e.X, e.Y, e.Width, e.Height, e.AboveSibling); err != nil {
		return err
	}
	if err := c.replaceRegion(e.Window); err != nil {
		return err
	}
	c.paint()
	return nil
}

func (c *Compositor) handleReparent(e xproto.ReparentNotifyEvent) error {
	return c.scene.Stack.Reparent(e.Window, e.Parent)
}

func (c *Compositor) handleCirculate(e xproto.CirculateNotifyEvent) error {
	switch e.Place {
	case xproto.PlaceOnTop:
		return c.scene.Stack.MoveToTop(e.Window)
	case xproto.PlaceOnBottom:
		return c.scene.Stack.MoveToBottom(e.Window)
	default:
		return fmt.Errorf("compositor: circulate with unknown place %d", e.Place)
	}
}

// handleDamage repaints, then re-arms the damage object by
// subtracting everything it has accumulated. The window is resolved
// through the damage map rather than the event's drawable so a
// stale notification for a destroyed window cannot touch freed
// state; the repaint still runs for everyone else.
func (c *Compositor) handleDamage(e damage.NotifyEvent) error {
	c.stats.mu.Lock()
	c.stats.damageEvents++
	c.stats.mu.Unlock()

	c.paint()
	if _, ok := c.scene.WindowByDamage(e.Damage); ok {
		damage.Subtract(c.pair.Event.Conn(), e.Damage, xfixes.RegionNone, xfixes.RegionNone)
	}
	return nil
}
