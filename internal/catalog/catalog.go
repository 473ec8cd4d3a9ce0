package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mr1hm/orbitview/internal/models"
)

var ErrInvalid = errors.New("invalid catalog")

// Catalog holds the layer partitions and the disaster events. It is built once
// and never mutated; accessors hand out copies.
type Catalog struct {
	base     []models.Layer
	overlays []models.Layer
	events   []models.DisasterEvent

	baseByID    map[string]int
	overlayByID map[string]int
	eventByID   map[string]int
}

func New(base, overlays []models.Layer, events []models.DisasterEvent) (*Catalog, error) {
	if len(base) == 0 {
		return nil, fmt.Errorf("%w: no base layers", ErrInvalid)
	}

	c := &Catalog{
		base:        cloneLayers(base, false),
		overlays:    cloneLayers(overlays, true),
		events:      make([]models.DisasterEvent, 0, len(events)),
		baseByID:    make(map[string]int, len(base)),
		overlayByID: make(map[string]int, len(overlays)),
		eventByID:   make(map[string]int, len(events)),
	}

	if err := index(c.base, c.baseByID); err != nil {
		return nil, fmt.Errorf("base layers: %w", err)
	}
	if err := index(c.overlays, c.overlayByID); err != nil {
		return nil, fmt.Errorf("overlay layers: %w", err)
	}

	for i, e := range events {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: event %d has no id", ErrInvalid, i)
		}
		if _, dup := c.eventByID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate event id %q", ErrInvalid, e.ID)
		}
		if _, err := models.ParseDate(e.Date); err != nil {
			return nil, fmt.Errorf("%w: event %q: %v", ErrInvalid, e.ID, err)
		}
		if !e.Location.Valid() {
			return nil, fmt.Errorf("%w: event %q: location out of range", ErrInvalid, e.ID)
		}

		// Dangling references are tolerated; selection skips them.
		if _, ok := c.baseByID[e.BaseLayerID]; !ok {
			slog.Warn("event references unknown base layer", "event", e.ID, "layer", e.BaseLayerID)
		}
		for _, id := range e.OverlayIDs {
			if _, ok := c.overlayByID[id]; !ok {
				slog.Warn("event references unknown overlay", "event", e.ID, "layer", id)
			}
		}

		e.OverlayIDs = slices.Clone(e.OverlayIDs)
		c.eventByID[e.ID] = len(c.events)
		c.events = append(c.events, e)
	}

	return c, nil
}

// Default returns the built-in GIBS catalog.
func Default() *Catalog {
	c, err := New(defaultBaseLayers, defaultOverlayLayers, defaultEvents)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

func (c *Catalog) BaseLayer(id string) (models.Layer, bool) {
	i, ok := c.baseByID[id]
	if !ok {
		return models.Layer{}, false
	}
	return c.base[i], true
}

func (c *Catalog) Overlay(id string) (models.Layer, bool) {
	i, ok := c.overlayByID[id]
	if !ok {
		return models.Layer{}, false
	}
	return c.overlays[i], true
}

// Layer looks up id in either partition, base layers first.
func (c *Catalog) Layer(id string) (models.Layer, bool) {
	if l, ok := c.BaseLayer(id); ok {
		return l, true
	}
	return c.Overlay(id)
}

func (c *Catalog) Event(id string) (models.DisasterEvent, bool) {
	i, ok := c.eventByID[id]
	if !ok {
		return models.DisasterEvent{}, false
	}
	e := c.events[i]
	e.OverlayIDs = slices.Clone(e.OverlayIDs)
	return e, true
}

func (c *Catalog) BaseLayers() []models.Layer {
	return slices.Clone(c.base)
}

func (c *Catalog) OverlayLayers() []models.Layer {
	return slices.Clone(c.overlays)
}

// AllLayers returns base layers followed by overlays.
func (c *Catalog) AllLayers() []models.Layer {
	return slices.Concat(c.base, c.overlays)
}

func (c *Catalog) Events() []models.DisasterEvent {
	out := make([]models.DisasterEvent, len(c.events))
	for i, e := range c.events {
		e.OverlayIDs = slices.Clone(e.OverlayIDs)
		out[i] = e
	}
	return out
}

// DefaultBase is the base layer a new session starts on.
func (c *Catalog) DefaultBase() models.Layer {
	return c.base[0]
}

func cloneLayers(in []models.Layer, overlay bool) []models.Layer {
	out := slices.Clone(in)
	for i := range out {
		out[i].Overlay = overlay
	}
	return out
}

func index(layers []models.Layer, byID map[string]int) error {
	for i, l := range layers {
		if l.ID == "" {
			return fmt.Errorf("%w: layer %d has no id", ErrInvalid, i)
		}
		if _, dup := byID[l.ID]; dup {
			return fmt.Errorf("%w: duplicate layer id %q", ErrInvalid, l.ID)
		}
		if !l.Format.Valid() {
			return fmt.Errorf("%w: layer %q has unsupported format %q", ErrInvalid, l.ID, l.Format)
		}
		if l.MatrixSet == "" {
			return fmt.Errorf("%w: layer %q has no matrix set", ErrInvalid, l.ID)
		}
		byID[l.ID] = i
	}
	return nil
}
