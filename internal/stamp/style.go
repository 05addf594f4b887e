package stamp

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Anchor names the image corner the text box is pinned to.
type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
)

func (a Anchor) String() string {
	switch a {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	default:
		return fmt.Sprintf("anchor(%d)", int(a))
	}
}

var anchorNames = map[string]Anchor{
	"topleft":         TopLeft,
	"topright":        TopRight,
	"bottomleft":      BottomLeft,
	"bottomright":     BottomRight,
	"arribaizquierda": TopLeft,
	"arribaderecha":   TopRight,
	"abajoizquierda":  BottomLeft,
	"abajoderecha":    BottomRight,
}

// ParseAnchor accepts "bottom-right", "BottomRight", "bottom_right" and the
// Spanish labels used by older presets ("Abajo Derecha").
func ParseAnchor(s string) (Anchor, error) {
	key := strings.ToLower(s)
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if a, ok := anchorNames[key]; ok {
		return a, nil
	}
	return TopLeft, fmt.Errorf("%w %q", ErrAnchor, s)
}

// RGB is an opaque text color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

var namedColors = map[string]RGB{
	"white":  {255, 255, 255},
	"black":  {0, 0, 0},
	"red":    {255, 0, 0},
	"green":  {0, 255, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"orange": {255, 165, 0},
}

// ParseColor accepts "r,g,b", "#rrggbb" or a basic color name.
func ParseColor(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}

	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 {
			return RGB{}, fmt.Errorf("color %q: want #rrggbb", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return RGB{}, fmt.Errorf("color %q: %w", s, err)
		}
		return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("color %q: want three channels r,g,b", s)
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RGB{}, fmt.Errorf("color %q: %w", s, err)
		}
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("color %q: channel %d out of range 0-255", s, v)
		}
		ch[i] = uint8(v)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

var (
	ErrEmptyText   = errors.New("text must not be empty")
	ErrFontSize    = errors.New("font size must be positive")
	ErrMargin      = errors.New("margin must not be negative")
	ErrAnchor      = errors.New("invalid anchor")
	ErrFontMissing = errors.New("font not found")
)

// Style is the immutable text configuration applied to every item of a batch.
type Style struct {
	Text      string
	Font      string
	Size      int
	Color     RGB
	Anchor    Anchor
	Margin    int
	UseMargin bool

	// DateFromExif replaces Text with the item's EXIF capture date when one
	// is present, formatted with DateLayout.
	DateFromExif bool
	DateLayout   string
}

// EffectiveMargin is the margin actually applied: zero when UseMargin is off.
func (s Style) EffectiveMargin() int {
	if !s.UseMargin {
		return 0
	}
	return s.Margin
}

func (s Style) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return ErrEmptyText
	}
	if s.Size <= 0 {
		return ErrFontSize
	}
	if s.Margin < 0 {
		return ErrMargin
	}
	if s.Anchor < TopLeft || s.Anchor > BottomRight {
		return ErrAnchor
	}
	return nil
}
