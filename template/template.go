// Package template defines the JSON label template format, its loader and
// structural validation.  Geometry is in template-space units; scaling to
// device pixels happens in the renderer.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrNotFound = errors.New("template not found")
	ErrInvalid  = errors.New("invalid template")
)

// Element type tags.
const (
	TypeText      = "text"
	TypeLine      = "line"
	TypeRectangle = "rectangle"
	TypeCircle    = "circle"
	TypeStripes   = "stripes"
	TypeGrid      = "grid"
	TypeImage     = "image"
)

// Text alignments.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Stripe directions.
const (
	DirHorizontal = "horizontal"
	DirVertical   = "vertical"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is an optional bounding box for stripes and grid elements.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size overrides the base label dimensions; a zero field keeps the base
// value.
type Size struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

type Font struct {
	Family string  `json:"family,omitempty"`
	Size   float64 `json:"size,omitempty"`
}

// Template is a declarative list of drawing primitives plus optional
// default styling.  Elements render in slice order, later elements draw
// over earlier ones.
type Template struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Dimensions  *Size     `json:"dimensions,omitempty"`
	DefaultFont *Font     `json:"defaultFont,omitempty"`
	Elements    []Element `json:"elements"`
}

// Element is one drawing primitive, discriminated by Type.  The struct is
// the flat union of all variant fields; only the fields of the tagged
// variant are meaningful.
type Element struct {
	Type string `json:"type"`

	// text
	Content    string  `json:"content,omitempty"`
	Position   Point   `json:"position,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	Alignment  string  `json:"alignment,omitempty"` // left, center, right

	// line
	Start       Point `json:"start,omitempty"`
	End         Point `json:"end,omitempty"`
	StrokeWidth int   `json:"strokeWidth,omitempty"`

	// rectangle; Width doubles as the stripe thickness for stripes and
	// the target width for image elements
	Width  int  `json:"width,omitempty"`
	Height int  `json:"height,omitempty"`
	Filled bool `json:"filled,omitempty"`

	// circle
	Center Point `json:"center,omitempty"`
	Radius int   `json:"radius,omitempty"`

	// stripes
	Direction string `json:"direction,omitempty"` // horizontal, vertical
	Spacing   int    `json:"spacing,omitempty"`
	Bounds    *Box   `json:"bounds,omitempty"` // also grid; default full canvas

	// grid
	CellWidth  int `json:"cellWidth,omitempty"`
	CellHeight int `json:"cellHeight,omitempty"`
	LineWidth  int `json:"lineWidth,omitempty"`

	// image
	Path      string `json:"path,omitempty"`
	Dither    string `json:"dither,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
}

// Load reads and validates the template at path.
func Load(path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("error opening template %s: %w", path, err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ByName resolves a template by name in dir, i.e. <dir>/<name>.json.
func ByName(dir, name string) (*Template, error) {
	return Load(filepath.Join(dir, name+".json"))
}

// Parse decodes and validates a template.
func Parse(r io.Reader) (*Template, error) {
	var t Template
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalid, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate performs the structural checks: a template must have a name and
// an elements array (which may be empty).
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if t.Elements == nil {
		return fmt.Errorf("%w: missing elements", ErrInvalid)
	}
	return nil
}
