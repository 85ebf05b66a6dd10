// Package fonts resolves typography font choices to concrete truetype
// faces. It searches installed system fonts first and falls back to the Go
// font family bundled with the toolchain, so rendering works on machines
// with no fonts installed at all.
package fonts

import (
	"os"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/typography"
)

// Library loads and caches truetype fonts. Parsed fonts are cached per
// file, faces per (font, size) pair. Safe for concurrent use.
type Library struct {
	mu    sync.Mutex
	fonts map[string]*truetype.Font   // stack entry -> parsed font
	faces map[faceKey]font.Face
}

type faceKey struct {
	name string
	size float64
}

// NewLibrary creates an empty font library.
func NewLibrary() *Library {
	return &Library{
		fonts: make(map[string]*truetype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

// Face resolves a font choice at the given point size. It walks the choice's
// stack through the system font search path and falls back to a bundled Go
// face matching the choice's weight when nothing resolves.
func (l *Library) Face(choice typography.FontChoice, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidPlan, "font size must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range choice.Stack {
		ft, err := l.loadLocked(name)
		if err != nil {
			continue
		}
		return l.faceLocked(name, ft, size), nil
	}

	// Bundled fallback, keyed by weight so bold choices stay bold.
	name, data := bundledFor(choice.Weight)
	ft, err := l.parseLocked(name, data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parsing bundled font")
	}
	return l.faceLocked(name, ft, size), nil
}

// loadLocked finds and parses a system font file. Caller holds l.mu.
func (l *Library) loadLocked(name string) (*truetype.Font, error) {
	if ft, ok := l.fonts[name]; ok {
		return ft, nil
	}
	path, err := findfont.Find(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.parseLocked(name, data)
}

func (l *Library) parseLocked(name string, data []byte) (*truetype.Font, error) {
	if ft, ok := l.fonts[name]; ok {
		return ft, nil
	}
	ft, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	l.fonts[name] = ft
	return ft, nil
}

func (l *Library) faceLocked(name string, ft *truetype.Font, size float64) font.Face {
	key := faceKey{name: name, size: size}
	if face, ok := l.faces[key]; ok {
		return face
	}
	face := truetype.NewFace(ft, &truetype.Options{Size: size})
	l.faces[key] = face
	return face
}

// bundledFor picks the bundled Go face closest to a CSS-style weight.
func bundledFor(weight int) (string, []byte) {
	switch {
	case weight >= 700:
		return "go-bold", gobold.TTF
	case weight >= 500:
		return "go-medium", gomedium.TTF
	default:
		return "go-regular", goregular.TTF
	}
}
