package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"

	"github.com/rusq/labelprint/template"
)

// DefaultThreshold is the default cutoff for dark pixels.
const DefaultThreshold = 128

type ditherFunc func(img image.Image) image.Image

var ditherFunctions = map[string]ditherFunc{
	"floyd-steinberg": dFloydSteinberg,
	"atkinson":        dAtkinson,
	"bayer":           dBayer,
	"threshold":       thresholdFn(DefaultThreshold),
}

// AllDitherFunctions returns the names of the available dither algorithms.
func AllDitherFunctions() []string {
	keys := make([]string, 0, len(ditherFunctions))
	for k := range ditherFunctions {
		keys = append(keys, k)
	}
	sort.Strings(keys) // sort for consistent order
	return keys
}

// drawImage renders an image element: load, scale to the requested box,
// reduce to black and white, draw at the scaled position.
func drawImage(dc *gg.Context, cc canvasConfig, el *template.Element) error {
	if el.Path == "" {
		return errors.New("image element missing path")
	}
	f, err := os.Open(el.Path)
	if err != nil {
		return fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("error decoding image %s: %w", el.Path, err)
	}

	// a zero width or height preserves the aspect ratio.
	w, h := int(cc.px(el.Width)), int(cc.px(el.Height))
	if w > 0 || h > 0 {
		src = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	dfn := el.Dither
	if dfn == "" {
		dfn = "threshold"
	}
	ditherfn, ok := ditherFunctions[dfn]
	if !ok {
		return fmt.Errorf("unknown dither function %q, one of: %v", el.Dither, AllDitherFunctions())
	}
	if dfn == "threshold" && el.Threshold > 0 {
		ditherfn = thresholdFn(uint8(el.Threshold))
	}

	dc.DrawImage(ditherfn(src), int(cc.px(el.Position.X)), int(cc.px(el.Position.Y)))
	return nil
}

func dFloydSteinberg(img image.Image) image.Image {
	dithered := image.NewPaletted(img.Bounds(), []color.Color{color.Black, color.White})
	draw.FloydSteinberg.Draw(dithered, dithered.Bounds(), img, image.Point{})
	return dithered
}

func dAtkinson(img image.Image) image.Image {
	dithered := image.NewRGBA(img.Bounds())
	d := dither.NewDitherer([]color.Color{color.Black, color.White})
	d.Matrix = dither.Atkinson
	d.Draw(dithered, dithered.Bounds(), img, image.Point{})
	return dithered
}

func dBayer(img image.Image) image.Image {
	dithered := image.NewRGBA(img.Bounds())
	d := dither.NewDitherer([]color.Color{color.Black, color.White})
	d.Mapper = dither.Bayer(8, 8, 1.0) // 8x8 Bayer matrix
	d.Draw(dithered, dithered.Bounds(), img, image.Point{})
	return dithered
}

func thresholdFn(threshold uint8) ditherFunc {
	return func(img image.Image) image.Image {
		if threshold == 0 {
			threshold = DefaultThreshold
		}
		trg := image.NewPaletted(img.Bounds(), []color.Color{color.Black, color.White})
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
				if colorToGray(img.At(x, y)) < threshold {
					trg.SetColorIndex(x, y, 0) // black
				} else {
					trg.SetColorIndex(x, y, 1) // white
				}
			}
		}
		return trg
	}
}

func colorToGray(c color.Color) uint8 {
	if gray, ok := c.(color.Gray); ok {
		return gray.Y
	}
	r, g, b, _ := c.RGBA()
	gray := (299*r + 587*g + 114*b) / 1000
	return uint8(gray >> 8)
}
