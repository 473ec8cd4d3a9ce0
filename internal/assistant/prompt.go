package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mr1hm/orbitview/internal/models"
)

const (
	// GlobalView describes the camera when no viewport has been requested.
	GlobalView = "Global View"
	// NoOverlays is listed when no overlay is active.
	NoOverlays = "None"
)

// Context is what the user is looking at when they ask a question.
type Context struct {
	Date      string
	BaseLayer models.Layer
	Overlays  []models.Layer
	Viewport  *models.ViewState
}

const instructionTemplate = `You are an expert NASA Earth Scientist and Geospatial Analyst.
You are assisting a user exploring satellite imagery using the NASA GIBS (Global Imagery Browse Services) API.

Current User Context:
- Viewing Date: %s
- Camera Location: %s
- Base Layer: %s (%s)
- Active Overlays: %s

Your goal is to explain scientific phenomena, describe what the selected satellite layers show,
and help the user interpret the satellite imagery.

If the user provides a location context (lat/lng), try to identify the region (country, ocean, or specific landmark) and tailor your explanation to that geography.
If the user asks about specific features (like "what is that white swirl"), use the date and location to infer the event (e.g., Hurricane Ian, Maui Fires, etc.) if it matches historical records.

Keep answers concise, engaging, and scientifically accurate. Use Markdown.
`

// SystemInstruction renders the persona and view context sent with every question.
func SystemInstruction(c Context) string {
	return fmt.Sprintf(instructionTemplate,
		c.Date,
		DescribeViewport(c.Viewport),
		c.BaseLayer.Name, c.BaseLayer.Description,
		overlayNames(c.Overlays),
	)
}

func DescribeViewport(v *models.ViewState) string {
	if v == nil {
		return GlobalView
	}
	return fmt.Sprintf("Lat: %.2f, Lng: %.2f, Zoom Level: %s",
		v.Lat, v.Lng, strconv.FormatFloat(v.Zoom, 'f', -1, 64))
}

func overlayNames(layers []models.Layer) string {
	if len(layers) == 0 {
		return NoOverlays
	}
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	return strings.Join(names, ", ")
}
