// Package render rasterises label templates onto a two-tone pixel surface
// sized for the printer.  Drawing is deterministic: the same template,
// variables and dimensions always produce a pixel-identical surface.
package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/fogleman/gg"

	"github.com/rusq/labelprint"
	"github.com/rusq/labelprint/template"
)

// referenceDPI is the resolution template-space units are authored at.
// Element geometry is multiplied by DPI/referenceDPI before drawing.
const referenceDPI = 96

const (
	defaultFontSize    = 12.0
	defaultStrokeWidth = 1
)

type Renderer struct {
	fonts    *fontSet
	debugDir string
}

type Option func(*Renderer)

// WithDebugDir makes the renderer emit debug artifacts (bitmap PNG,
// annotated PNG, element JSON sidecar) into dir after every render.
// Artifact failures are logged and never fail the render.
func WithDebugDir(dir string) Option {
	return func(r *Renderer) {
		r.debugDir = dir
	}
}

func New(opt ...Option) *Renderer {
	r := &Renderer{
		fonts: newFontSet(),
	}
	for _, o := range opt {
		o(r)
	}
	return r
}

// canvasConfig is derived per render call and never shared across calls.
type canvasConfig struct {
	width, height int     // surface size, pixels
	scale         float64 // DPI / referenceDPI
	fontFamily    string
	fontSize      float64 // template-space points, pre-scale
}

func newCanvasConfig(t *template.Template, d labelprint.Dimensions) canvasConfig {
	w, h := d.Width, d.Height
	if t.Dimensions != nil {
		if t.Dimensions.Width > 0 {
			w = t.Dimensions.Width
		}
		if t.Dimensions.Height > 0 {
			h = t.Dimensions.Height
		}
	}
	cc := canvasConfig{
		width:    w,
		height:   h * labelprint.RowDepth,
		scale:    float64(d.DPI) / referenceDPI,
		fontSize: defaultFontSize,
	}
	if t.DefaultFont != nil {
		cc.fontFamily = t.DefaultFont.Family
		if t.DefaultFont.Size > 0 {
			cc.fontSize = t.DefaultFont.Size
		}
	}
	return cc
}

// px scales a template-space value to device pixels, rounded to the
// nearest integer pixel.
func (cc canvasConfig) px(v int) float64 {
	return math.Round(float64(v) * cc.scale)
}

// strokePx scales a stroke width, keeping it at least one pixel.
func (cc canvasConfig) strokePx(v int) float64 {
	if v <= 0 {
		v = defaultStrokeWidth
	}
	return max(cc.px(v), 1)
}

// box resolves an optional bounding box, defaulting to the full canvas.  The
// returned values are in device pixels.
func (cc canvasConfig) box(b *template.Box) (x, y, w, h float64) {
	if b == nil {
		return 0, 0, float64(cc.width), float64(cc.height)
	}
	return cc.px(b.X), cc.px(b.Y), cc.px(b.Width), cc.px(b.Height)
}

// Render produces the pixel surface for the template.  Element errors and
// unknown element types are logged and skipped; the remaining elements
// still render (a bad element never aborts the whole template).
func (r *Renderer) Render(t *template.Template, vars map[string]any, d labelprint.Dimensions) (image.Image, error) {
	cc := newCanvasConfig(t, d)
	if cc.width <= 0 || cc.height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", cc.width, cc.height)
	}
	dc := gg.NewContext(cc.width, cc.height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	rendered := make([]RenderedElement, len(t.Elements))
	for i, el := range t.Elements {
		rendered[i] = RenderedElement{Index: i, Type: el.Type, Element: el}
		if err := r.drawElement(dc, cc, &el, vars); err != nil {
			slog.Error("element skipped", "template", t.Name, "index", i, "type", el.Type, "error", err)
			rendered[i].Skipped = true
			rendered[i].Error = err.Error()
			continue
		}
	}

	img := dc.Image()
	if r.debugDir != "" {
		r.saveArtifacts(t, cc, img, rendered)
	}
	return img, nil
}

func (r *Renderer) drawElement(dc *gg.Context, cc canvasConfig, el *template.Element, vars map[string]any) error {
	switch el.Type {
	case template.TypeText:
		return r.drawText(dc, cc, el, vars)
	case template.TypeLine:
		return drawLine(dc, cc, el)
	case template.TypeRectangle:
		return drawRectangle(dc, cc, el)
	case template.TypeCircle:
		return drawCircle(dc, cc, el)
	case template.TypeStripes:
		return drawStripes(dc, cc, el)
	case template.TypeGrid:
		return drawGrid(dc, cc, el)
	case template.TypeImage:
		return drawImage(dc, cc, el)
	default:
		return fmt.Errorf("unknown element type %q", el.Type)
	}
}

func (r *Renderer) drawText(dc *gg.Context, cc canvasConfig, el *template.Element, vars map[string]any) error {
	content := Substitute(el.Content, vars)
	if content == "" {
		return nil
	}
	family := cc.fontFamily
	if el.FontFamily != "" {
		family = el.FontFamily
	}
	size := cc.fontSize
	if el.FontSize > 0 {
		size = el.FontSize
	}
	face, err := r.fonts.face(family, size*cc.scale)
	if err != nil {
		return fmt.Errorf("font %q: %w", family, err)
	}
	dc.SetFontFace(face)

	var ax float64
	switch el.Alignment {
	case template.AlignCenter:
		ax = 0.5
	case template.AlignRight:
		ax = 1
	case template.AlignLeft, "":
		ax = 0
	default:
		return fmt.Errorf("unknown alignment %q", el.Alignment)
	}
	// ay=0 puts the baseline on the position; ax moves the anchor along
	// the string for center and right alignment.
	dc.DrawStringAnchored(content, cc.px(el.Position.X), cc.px(el.Position.Y), ax, 0)
	return nil
}

func drawLine(dc *gg.Context, cc canvasConfig, el *template.Element) error {
	dc.SetLineWidth(cc.strokePx(el.StrokeWidth))
	dc.DrawLine(cc.px(el.Start.X), cc.px(el.Start.Y), cc.px(el.End.X), cc.px(el.End.Y))
	dc.Stroke()
	return nil
}

func drawRectangle(dc *gg.Context, cc canvasConfig, el *template.Element) error {
	if el.Width < 0 || el.Height < 0 {
		return fmt.Errorf("negative dimensions %dx%d", el.Width, el.Height)
	}
	dc.DrawRectangle(cc.px(el.Position.X), cc.px(el.Position.Y), cc.px(el.Width), cc.px(el.Height))
	if el.Filled {
		dc.Fill()
	} else {
		dc.SetLineWidth(cc.strokePx(el.StrokeWidth))
		dc.Stroke()
	}
	return nil
}

func drawCircle(dc *gg.Context, cc canvasConfig, el *template.Element) error {
	if el.Radius < 0 {
		return fmt.Errorf("negative radius %d", el.Radius)
	}
	dc.DrawCircle(cc.px(el.Center.X), cc.px(el.Center.Y), cc.px(el.Radius))
	if el.Filled {
		dc.Fill()
	} else {
		dc.SetLineWidth(cc.strokePx(el.StrokeWidth))
		dc.Stroke()
	}
	return nil
}

// drawStripes fills the bounding box with solid bars of the element width,
// repeating every spacing units along the chosen axis.  The last bar is
// truncated at the bounds edge.
func drawStripes(dc *gg.Context, cc canvasConfig, el *template.Element) error {
	if el.Spacing <= 0 || el.Width <= 0 {
		return fmt.Errorf("stripes need positive spacing and width, got %d/%d", el.Spacing, el.Width)
	}
	bx, by, bw, bh := cc.box(el.Bounds)
	thick, spacing := cc.px(el.Width), cc.px(el.Spacing)
	if spacing <= 0 {
		spacing = 1
	}
	switch el.Direction {
	case template.DirHorizontal:
		for y := by; y < by+bh; y += spacing {
			dc.DrawRectangle(bx, y, bw, min(thick, by+bh-y))
			dc.Fill()
		}
	case template.DirVertical:
		for x := bx; x < bx+bw; x += spacing {
			dc.DrawRectangle(x, by, min(thick, bx+bw-x), bh)
			dc.Fill()
		}
	default:
		return fmt.Errorf("unknown stripe direction %q", el.Direction)
	}
	return nil
}

// drawGrid draws evenly spaced rule lines inside the bounding box,
// including the final boundary line when it lands exactly on the edge.
func drawGrid(dc *gg.Context, cc canvasConfig, el *template.Element) error {
	if el.CellWidth <= 0 || el.CellHeight <= 0 {
		return fmt.Errorf("grid needs positive cell size, got %dx%d", el.CellWidth, el.CellHeight)
	}
	bx, by, bw, bh := cc.box(el.Bounds)
	cw, ch := cc.px(el.CellWidth), cc.px(el.CellHeight)
	if cw <= 0 || ch <= 0 {
		return fmt.Errorf("grid cell collapses at this scale")
	}
	dc.SetLineWidth(cc.strokePx(el.LineWidth))
	for x := bx; x <= bx+bw; x += cw {
		dc.DrawLine(x, by, x, by+bh)
		dc.Stroke()
	}
	for y := by; y <= by+bh; y += ch {
		dc.DrawLine(bx, y, bx+bw, y)
		dc.Stroke()
	}
	return nil
}
