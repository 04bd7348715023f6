package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// embeddedFonts maps family names to built-in font data.  Unknown families
// that look like a font file path are loaded from disk instead.
var embeddedFonts = map[string][]byte{
	"":        goregular.TTF,
	"regular": goregular.TTF,
	"sans":    goregular.TTF,
	"bold":    gobold.TTF,
	"mono":    gomono.TTF,
}

var errFontNotFound = errors.New("font not found")

const maxTTFsize = 10 * 1048576 // 10 MB

type faceKey struct {
	family string
	size   float64
}

// fontSet caches parsed faces per family and pixel size.  Faces returned by
// opentype are stateful iterators but drawing through gg serialises access,
// and one render call never runs concurrently with another on the same
// Renderer.
type fontSet struct {
	mu    sync.Mutex
	faces map[faceKey]font.Face
}

func newFontSet() *fontSet {
	return &fontSet{faces: make(map[faceKey]font.Face)}
}

// face returns a font face for the family at the given pixel size.
func (s *fontSet) face(family string, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	key := faceKey{family: family, size: size}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.faces[key]; ok {
		return f, nil
	}
	data, err := fontData(key.family)
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing font %q: %w", family, err)
	}
	// DPI 72 makes the point size equal the pixel size; the caller already
	// applied the device scale factor.
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating face %q: %w", family, err)
	}
	s.faces[key] = f
	return f, nil
}

func fontData(family string) ([]byte, error) {
	// family names are case insensitive; file paths are not.
	if data, ok := embeddedFonts[strings.ToLower(family)]; ok {
		return data, nil
	}
	switch filepath.Ext(family) {
	case ".ttf", ".otf":
		return fontFromFile(family)
	}
	return nil, errFontNotFound
}

func fontFromFile(filename string) ([]byte, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if maxTTFsize < fi.Size() {
		return nil, errors.New("font file is too large")
	}
	return os.ReadFile(filename)
}
