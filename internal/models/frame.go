package models

// TileLayer is one renderable layer: a URL template plus how to draw it.
type TileLayer struct {
	LayerID       string  `json:"layer_id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	Opacity       float64 `json:"opacity"`
	MaxNativeZoom int     `json:"max_native_zoom"`
}

// Frame is what the map renderer consumes. Jump fires only when JumpSeq changes.
type Frame struct {
	Date     string      `json:"date"`
	Playing  bool        `json:"playing"`
	Base     TileLayer   `json:"base"`
	Overlays []TileLayer `json:"overlays"`
	JumpSeq  uint64      `json:"jump_seq"`
	Jump     *ViewState  `json:"jump,omitempty"`
}
