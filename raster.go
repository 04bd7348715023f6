package labelprint

import (
	"image"
)

// Packed is the printer-native form of a rendered surface: a column-major
// byte stream, one column after another, each column packed bottom to top
// into Rows bytes of RowDepth pixels, least significant bit first.
type Packed struct {
	Data  []byte
	Width int // columns
	Rows  int // packed bytes per column
}

// PackImage converts a rendered surface into the packed format.  The outer
// loop walks columns left to right, the inner loop walks each column from
// the bottom row up; bit 0 of every byte is the first pixel visited and a
// bit is set when the pixel is not pure white.  A trailing partial byte of
// a column is dropped, so surfaces should be a multiple of RowDepth pixels
// tall (the renderer always emits such surfaces).
func PackImage(img image.Image) Packed {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	rows := height / RowDepth

	data := make([]byte, 0, width*rows)
	for x := range width {
		for r := range rows {
			var cell byte
			for bit := range RowDepth {
				y := height - 1 - (r*RowDepth + bit)
				if pixelDark(img, bounds.Min.X+x, bounds.Min.Y+y) {
					cell |= 1 << bit
				}
			}
			data = append(data, cell)
		}
	}
	return Packed{Data: data, Width: width, Rows: rows}
}

// pixelDark reports whether the pixel prints.  The device is two-tone:
// anything that is not pure white burns.
func pixelDark(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r != 0xffff || g != 0xffff || b != 0xffff
}

// ImageSplit is one column-range segment of a packed image, sized to the
// device limit of [MaxSplitWidth] columns per raster command.
type ImageSplit struct {
	Data  []byte
	Width int // columns covered by this split
	Index int
	Total int
}

// SplitPacked cuts the packed stream into device-width splits.  Split i
// covers columns [i*MaxSplitWidth, min(W, (i+1)*MaxSplitWidth)); because
// the stream is column-major each split is a contiguous slice of p.Data,
// never re-linearised.
func SplitPacked(p Packed) []ImageSplit {
	total := (p.Width + MaxSplitWidth - 1) / MaxSplitWidth
	splits := make([]ImageSplit, 0, total)
	for i := range total {
		start := i * MaxSplitWidth
		width := min(p.Width-start, MaxSplitWidth)
		splits = append(splits, ImageSplit{
			Data:  p.Data[start*p.Rows : (start+width)*p.Rows],
			Width: width,
			Index: i,
			Total: total,
		})
	}
	return splits
}
