package compositor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/softveil/softveil/internal/scene"
	"github.com/softveil/softveil/internal/x11"
)

// Compositor owns the full client-side compositing state: the
// connection pair, the scene mirrored from server notifications, and
// the overlay surfaces everything is painted onto. All mutation and
// painting happen on the goroutine running Run; only the stats cell
// is shared.
type Compositor struct {
	pair  *x11.Pair
	scene *scene.State
	log   *slog.Logger

	// Overlay resources, in creation order. colormap and child are
	// ours; overlay is borrowed from the server for the process
	// lifetime.
	overlay   xproto.Window
	colormap  xproto.Colormap
	child     xproto.Window
	childPict render.Picture

	pictFormats *render.QueryPictFormatsReply

	stats stats

	shutdownOnce sync.Once
	stopOnce     sync.Once
}

type stats struct {
	mu           sync.Mutex
	start        time.Time
	damageEvents uint64
	paints       uint64
	stacking     []uint32
	windows      int
	visible      int
}

// New connects to the display, negotiates extensions on both
// connections, and prepares an empty scene for the first screen.
// Redirection does not start until Bootstrap.
func New(display string, logger *slog.Logger) (*Compositor, error) {
	pair, err := x11.Connect(display)
	if err != nil {
		return nil, err
	}
	screen := pair.Screen()
	c := &Compositor{
		pair:  pair,
		scene: scene.NewState(pair.Root(), screen.WidthInPixels, screen.HeightInPixels),
		log:   logger,
	}
	c.stats.start = time.Now()
	return c, nil
}

// Run drains the event connection until the server closes the socket
// (clean shutdown, nil), an X error arrives, or the model becomes
// inconsistent. Callers should follow up with Shutdown either way.
func (c *Compositor) Run() error {
	c.log.Info("entering event loop", "root", fmt.Sprintf("0x%x", c.scene.Root))
	for {
		ev, xerr := c.pair.Event.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			c.log.Info("event connection closed")
			return nil
		}
		if xerr != nil {
			return fmt.Errorf("compositor: server error event: %s", xerr.Error())
		}
		if err := c.dispatch(ev); err != nil {
			return err
		}
		if err := c.scene.Consistent(); err != nil {
			return fmt.Errorf("compositor: model inconsistency after %T: %w", ev, err)
		}
		c.publishStats()
	}
}

// Stop unblocks Run by closing the event connection. The request
// connection stays up so Shutdown can still free resources.
func (c *Compositor) Stop() {
	c.stopOnce.Do(func() {
		c.pair.Event.Conn().Close()
	})
}

// Status is a point-in-time snapshot of the compositor for the
// status IPC.
type Status struct {
	UptimeSeconds int64
	WindowCount   int
	VisibleCount  int
	DamageEvents  uint64
	PaintCount    uint64
	Stacking      []uint32
}

// Snapshot returns the current status. Safe to call from any
// goroutine.
func (c *Compositor) Snapshot() Status {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	stacking := make([]uint32, len(c.stats.stacking))
	copy(stacking, c.stats.stacking)
	return Status{
		UptimeSeconds: int64(time.Since(c.stats.start).Seconds()),
		WindowCount:   c.stats.windows,
		VisibleCount:  c.stats.visible,
		DamageEvents:  c.stats.damageEvents,
		PaintCount:    c.stats.paints,
		Stacking:      stacking,
	}
}

// publishStats copies the scene's shape into the shared stats cell.
// Runs on the event-loop goroutine after each dispatched event.
func (c *Compositor) publishStats() {
	stacking := make([]uint32, 0, len(c.scene.Windows))
	it := c.scene.Stack.Iterate()
	for {
		win, ok := it.Next()
		if !ok {
			break
		}
		if win == c.scene.Root {
			continue
		}
		stacking = append(stacking, uint32(win))
	}
	visible := 0
	for _, w := range c.scene.Windows {
		if w.Visible {
			visible++
		}
	}
	c.stats.mu.Lock()
	c.stats.windows = len(c.scene.Windows)
	c.stats.visible = visible
	c.stats.stacking = stacking
	c.stats.mu.Unlock()
}
