package render

import (
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rusq/fontpic"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/rusq/labelprint/template"
)

// RenderedElement is one entry of the JSON debug sidecar: the element as it
// went through the drawing loop.
type RenderedElement struct {
	Index   int              `json:"index"`
	Type    string           `json:"type"`
	Skipped bool             `json:"skipped,omitempty"`
	Error   string           `json:"error,omitempty"`
	Element template.Element `json:"element"`
}

// saveArtifacts writes the debug side outputs: the exact printer-bound
// bitmap, an annotated copy with human-readable metadata, and the element
// sidecar.  All of it is best effort; failures are logged and swallowed.
func (r *Renderer) saveArtifacts(t *template.Template, cc canvasConfig, img image.Image, elements []RenderedElement) {
	base := filepath.Join(r.debugDir, t.Name)

	if err := imaging.Save(img, base+".png"); err != nil {
		slog.Error("failed to save debug bitmap", "filename", base+".png", "error", err)
	}

	meta := []string{
		t.Name,
		fmt.Sprintf("%dx%d px, scale %.2f", cc.width, cc.height, cc.scale),
		fmt.Sprintf("font %s %.1fpt, %d elements", fontName(cc.fontFamily), cc.fontSize, len(elements)),
		time.Now().Format(time.RFC3339),
	}
	if err := imaging.Save(annotate(img, meta), base+".debug.png"); err != nil {
		slog.Error("failed to save annotated bitmap", "filename", base+".debug.png", "error", err)
	}

	data, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		slog.Error("failed to marshal element sidecar", "template", t.Name, "error", err)
		return
	}
	if err := os.WriteFile(base+".elements.json", data, 0644); err != nil {
		slog.Error("failed to save element sidecar", "filename", base+".elements.json", "error", err)
	}
	slog.Debug("debug artifacts saved", "base", base)
}

func fontName(family string) string {
	if family == "" {
		return "regular"
	}
	return family
}

// annotate returns a copy of img with a white footer carrying the metadata
// lines in a small bitmap face.
func annotate(img image.Image, lines []string) image.Image {
	face := fontpic.Face8x16
	lineH := face.Metrics().Height.Ceil()
	const pad = 4

	b := img.Bounds()
	footerH := lineH*len(lines) + 2*pad
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+footerH))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(pad, b.Dy()+pad+(i+1)*lineH-face.Metrics().Descent.Ceil())
		d.DrawString(line)
	}
	return dst
}
