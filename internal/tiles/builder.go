// Package tiles builds GIBS WMTS REST tile URLs.
package tiles

import (
	"strconv"
	"strings"

	"github.com/mr1hm/orbitview/internal/models"
)

// DefaultEndpoint is the GIBS Web Mercator "best available" WMTS root.
const DefaultEndpoint = "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best"

// Placeholders left in URL templates for the renderer to substitute per tile.
const (
	placeholderZ = "{z}"
	placeholderY = "{y}"
	placeholderX = "{x}"
)

type Builder struct {
	endpoint string
}

func NewBuilder(endpoint string) *Builder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Builder{endpoint: strings.TrimRight(endpoint, "/")}
}

func (b *Builder) Endpoint() string {
	return b.endpoint
}

// URL returns the tile URL template for layer on isoDate (YYYY-MM-DD). Layers
// with a fixed time token ignore the date.
func (b *Builder) URL(layer models.Layer, isoDate string) string {
	return b.tile(layer, isoDate, placeholderZ, placeholderY, placeholderX)
}

// TileURL returns the URL of a single tile.
func (b *Builder) TileURL(layer models.Layer, isoDate string, z, y, x int) string {
	return b.tile(layer, isoDate, strconv.Itoa(z), strconv.Itoa(y), strconv.Itoa(x))
}

func (b *Builder) tile(layer models.Layer, isoDate, z, y, x string) string {
	t := isoDate
	if layer.Static() {
		t = layer.TimeParameter
	}

	var sb strings.Builder
	sb.Grow(len(b.endpoint) + len(layer.ID) + len(layer.MatrixSet) + 48)
	sb.WriteString(b.endpoint)
	sb.WriteByte('/')
	sb.WriteString(layer.ID)
	sb.WriteString("/default/")
	sb.WriteString(t)
	sb.WriteByte('/')
	sb.WriteString(layer.MatrixSet)
	sb.WriteByte('/')
	sb.WriteString(z)
	sb.WriteByte('/')
	sb.WriteString(y)
	sb.WriteByte('/')
	sb.WriteString(x)
	sb.WriteByte('.')
	sb.WriteString(string(layer.Format))
	return sb.String()
}

// TileLayer renders layer for a frame.
func (b *Builder) TileLayer(layer models.Layer, isoDate string, opacity float64) models.TileLayer {
	return models.TileLayer{
		LayerID:       layer.ID,
		Name:          layer.Name,
		URL:           b.URL(layer, isoDate),
		Opacity:       opacity,
		MaxNativeZoom: layer.NativeZoom(),
	}
}
