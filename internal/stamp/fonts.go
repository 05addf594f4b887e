package stamp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var builtinFonts = map[string][]byte{
	"go-regular.ttf": goregular.TTF,
	"go-bold.ttf":    gobold.TTF,
	"go-mono.ttf":    gomono.TTF,
}

// BuiltinFonts lists the font names that resolve without a font directory.
func BuiltinFonts() []string {
	return []string{"Go-Bold.ttf", "Go-Mono.ttf", "Go-Regular.ttf"}
}

// Fonts resolves font names against a list of directories, falling back to
// the embedded Go fonts.
type Fonts struct {
	Dirs []string
}

// Locate returns the raw font data for name. The error wraps ErrFontMissing
// when nothing matches.
func (f Fonts) Locate(name string) ([]byte, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty font name", ErrFontMissing)
	}

	for _, dir := range f.Dirs {
		path, ok := findFile(dir, name)
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		return data, nil
	}

	if data, ok := builtinFonts[strings.ToLower(name)]; ok {
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s (searched %s)", ErrFontMissing, name, strings.Join(f.Dirs, ", "))
}

// Face opens a font face of the given pixel size. The caller closes it.
func (f Fonts) Face(name string, size int) (font.Face, error) {
	data, err := f.Locate(name)
	if err != nil {
		return nil, err
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	// 72 DPI makes the point size equal to the pixel size.
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// List returns the font files available in the configured directories.
func (f Fonts) List() []string {
	var names []string
	for _, dir := range f.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".ttf", ".otf":
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)
	return names
}

func findFile(dir, name string) (string, bool) {
	exact := filepath.Join(dir, name)
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
