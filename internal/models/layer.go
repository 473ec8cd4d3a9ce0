package models

// Format is the image encoding of a tile layer.
type Format string

const (
	FormatJPG Format = "jpg"
	FormatPNG Format = "png"
)

func (f Format) Valid() bool {
	return f == FormatJPG || f == FormatPNG
}

// DefaultMaxZoom is the native zoom assumed for layers that don't set MaxZoom.
const DefaultMaxZoom = 9

type Layer struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Format      Format `json:"format" yaml:"format"`
	MatrixSet   string `json:"matrix_set" yaml:"matrix_set"`
	// TimeParameter replaces the date in tile URLs for layers without daily variation.
	TimeParameter string `json:"time_parameter,omitempty" yaml:"time_parameter,omitempty"`
	MaxZoom       int    `json:"max_zoom,omitempty" yaml:"max_zoom,omitempty"`
	Overlay       bool   `json:"overlay" yaml:"-"`
}

func (l Layer) Static() bool {
	return l.TimeParameter != ""
}

func (l Layer) NativeZoom() int {
	if l.MaxZoom > 0 {
		return l.MaxZoom
	}
	return DefaultMaxZoom
}
