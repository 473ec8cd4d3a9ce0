package session

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/mr1hm/orbitview/internal/catalog"
	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/tiles"
)

// DefaultPlaybackInterval is the time-lapse period: one day per tick.
const DefaultPlaybackInterval = 1500 * time.Millisecond

// State is a consistent copy of the controller's fields.
type State struct {
	Date       time.Time
	Playing    bool
	BaseLayer  models.Layer
	OverlayIDs []string
	Opacity    map[string]float64
	// PendingViewport is set by a jump and cleared by ConsumePendingViewport.
	PendingViewport *models.ViewState
	// Jump is the viewport of the most recent jump; JumpSeq counts jumps.
	Jump    models.ViewState
	JumpSeq uint64
}

// OpacityOf returns the stored opacity for id, 1.0 when none was set.
func (s State) OpacityOf(id string) float64 {
	if v, ok := s.Opacity[id]; ok {
		return v
	}
	return 1
}

func (s State) OverlayActive(id string) bool {
	return slices.Contains(s.OverlayIDs, id)
}

type Option func(*Controller)

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithPlaybackInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs with the controller locked and must not call back into it.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observer = fn }
}

// Controller owns one viewer's date, layer selection and pending camera jump.
// All operations are serialized and none of them fail.
type Controller struct {
	mu       sync.Mutex
	cat      *catalog.Catalog
	now      func() time.Time
	interval time.Duration
	observer func(State)

	date     time.Time
	playing  bool
	base     models.Layer
	overlays []string
	opacity  map[string]float64
	pending  *models.ViewState
	jump     models.ViewState
	jumpSeq  uint64

	play    *playback
	playGen uint64
	tasks   sync.WaitGroup
	closed  bool
}

func NewController(cat *catalog.Catalog, opts ...Option) *Controller {
	c := &Controller{
		cat:      cat,
		now:      time.Now,
		interval: DefaultPlaybackInterval,
		opacity:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.date = c.today().AddDate(0, 0, -1)
	c.base = cat.DefaultBase()
	for _, id := range catalog.DefaultOverlayIDs {
		if _, ok := cat.Overlay(id); ok {
			c.overlays = append(c.overlays, id)
		}
	}

	return c
}

func (c *Controller) today() time.Time {
	return models.Day(c.now())
}

// Today returns the upper bound for selectable dates.
func (c *Controller) Today() time.Time {
	return c.today()
}

// SetDate stops playback and moves to d. Dates after today are clamped to today.
func (c *Controller) SetDate(d time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setDateLocked(d)
	c.notifyLocked()
	return c.date
}

// StepDate moves one day in the direction of days. Stepping forward from today
// is a no-op and reports false.
func (c *Controller) StepDate(days int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case days > 0:
		if !c.date.Before(c.today()) {
			return false
		}
		c.setDateLocked(c.date.AddDate(0, 0, 1))
	case days < 0:
		c.setDateLocked(c.date.AddDate(0, 0, -1))
	default:
		return false
	}

	c.notifyLocked()
	return true
}

func (c *Controller) setDateLocked(d time.Time) {
	c.stopPlaybackLocked()

	d = models.Day(d)
	if today := c.today(); d.After(today) {
		d = today
	}
	c.date = d
}

// TogglePlayback starts or stops the time-lapse and returns the new playing flag.
func (c *Controller) TogglePlayback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing {
		c.stopPlaybackLocked()
	} else {
		c.startPlaybackLocked()
	}
	c.notifyLocked()
	return c.playing
}

func (c *Controller) startPlaybackLocked() {
	c.stopPlaybackLocked()
	if c.closed {
		return
	}

	c.playGen++
	c.playing = true
	c.play = startPlayback(&c.tasks, c.interval, c.playGen, c.advance)
}

// stopPlaybackLocked is idempotent. Bumping playGen invalidates any tick that
// has already fired but not yet acquired the lock.
func (c *Controller) stopPlaybackLocked() {
	c.playing = false
	c.playGen++
	if c.play != nil {
		c.play.cancel()
		c.play = nil
	}
}

// advance is the playback tick. Playback stops once the date reaches today.
func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing || gen != c.playGen {
		return
	}

	today := c.today()
	if c.date.Before(today) {
		c.date = c.date.AddDate(0, 0, 1)
	}
	if !c.date.Before(today) {
		c.stopPlaybackLocked()
	}
	c.notifyLocked()
}

// SelectBaseLayer activates the base layer id. Unknown ids leave state untouched.
func (c *Controller) SelectBaseLayer(id string) bool {
	layer, ok := c.cat.BaseLayer(id)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.base = layer
	c.notifyLocked()
	return true
}

// ToggleOverlay flips membership of overlay id and returns whether it is now
// active. Stored opacity is kept either way.
func (c *Controller) ToggleOverlay(id string) bool {
	if _, ok := c.cat.Overlay(id); !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	active := true
	if i := slices.Index(c.overlays, id); i >= 0 {
		c.overlays = slices.Delete(c.overlays, i, i+1)
		active = false
	} else {
		c.overlays = append(c.overlays, id)
	}
	c.notifyLocked()
	return active
}

// SetOpacity stores v, clamped to [0,1], for overlay id whether or not it is
// active. NaN is ignored.
func (c *Controller) SetOpacity(id string, v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if math.IsNaN(v) {
		return c.opacityLocked(id)
	}
	c.opacity[id] = math.Min(1, math.Max(0, v))
	c.notifyLocked()
	return c.opacity[id]
}

func (c *Controller) opacityLocked(id string) float64 {
	if v, ok := c.opacity[id]; ok {
		return v
	}
	return 1
}

// JumpToEvent applies an event's date, layers and viewport as one transition.
// An unknown base layer keeps the current one; unknown overlays are dropped.
func (c *Controller) JumpToEvent(e models.DisasterEvent) {
	date, err := models.ParseDate(e.Date)

	overlays := make([]string, 0, len(e.OverlayIDs))
	for _, id := range e.OverlayIDs {
		if _, ok := c.cat.Overlay(id); ok && !slices.Contains(overlays, id) {
			overlays = append(overlays, id)
		}
	}
	base, baseOK := c.cat.BaseLayer(e.BaseLayerID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.setDateLocked(date)
	} else {
		c.stopPlaybackLocked()
	}
	if baseOK {
		c.base = base
	}
	c.overlays = overlays

	vp := e.Location
	c.pending = &vp
	c.jump = vp
	c.jumpSeq++

	c.notifyLocked()
}

// JumpToEventID looks the event up in the catalog first.
func (c *Controller) JumpToEventID(id string) bool {
	e, ok := c.cat.Event(id)
	if !ok {
		return false
	}
	c.JumpToEvent(e)
	return true
}

// ConsumePendingViewport hands out the pending jump once.
func (c *Controller) ConsumePendingViewport() (models.ViewState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return models.ViewState{}, false
	}
	vp := *c.pending
	c.pending = nil
	return vp, true
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Date:       c.date,
		Playing:    c.playing,
		BaseLayer:  c.base,
		OverlayIDs: slices.Clone(c.overlays),
		Opacity:    make(map[string]float64, len(c.opacity)),
		Jump:       c.jump,
		JumpSeq:    c.jumpSeq,
	}
	if s.OverlayIDs == nil {
		s.OverlayIDs = []string{}
	}
	for k, v := range c.opacity {
		s.Opacity[k] = v
	}
	if c.pending != nil {
		vp := *c.pending
		s.PendingViewport = &vp
	}
	return s
}

func (c *Controller) notifyLocked() {
	if c.observer != nil {
		c.observer(c.snapshotLocked())
	}
}

// ActiveOverlays resolves the active overlay ids in activation order.
func (c *Controller) ActiveOverlays() []models.Layer {
	return ResolveOverlays(c.cat, c.Snapshot())
}

func ResolveOverlays(cat *catalog.Catalog, s State) []models.Layer {
	out := make([]models.Layer, 0, len(s.OverlayIDs))
	for _, id := range s.OverlayIDs {
		if l, ok := cat.Overlay(id); ok {
			out = append(out, l)
		}
	}
	return out
}

// RenderFrame turns a snapshot into what the map renderer draws.
func RenderFrame(cat *catalog.Catalog, b *tiles.Builder, s State) models.Frame {
	date := models.FormatDate(s.Date)

	f := models.Frame{
		Date:     date,
		Playing:  s.Playing,
		Base:     b.TileLayer(s.BaseLayer, date, 1),
		Overlays: make([]models.TileLayer, 0, len(s.OverlayIDs)),
		JumpSeq:  s.JumpSeq,
	}
	for _, l := range ResolveOverlays(cat, s) {
		f.Overlays = append(f.Overlays, b.TileLayer(l, date, s.OpacityOf(l.ID)))
	}
	if s.JumpSeq > 0 {
		jump := s.Jump
		f.Jump = &jump
	}
	return f
}

// Close stops playback and waits for every playback goroutine it started,
// including ones cancelled earlier, to exit. Playback cannot be restarted
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopPlaybackLocked()
	c.mu.Unlock()

	c.tasks.Wait()
}
