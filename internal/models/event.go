package models

import "math"

type ViewState struct {
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

func (v ViewState) Valid() bool {
	for _, f := range []float64{v.Lat, v.Lng, v.Zoom} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return v.Lat >= -90 && v.Lat <= 90 && v.Lng >= -180 && v.Lng <= 180
}

type DisasterEvent struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Date        string    `json:"date" yaml:"date"` // YYYY-MM-DD
	Location    ViewState `json:"location" yaml:"location"`
	Description string    `json:"description" yaml:"description"`
	BaseLayerID string    `json:"base_layer_id" yaml:"base_layer_id"`
	OverlayIDs  []string  `json:"overlay_ids" yaml:"overlay_ids"`
}
