// Package stamp renders a text string onto a copy of an image and writes the
// result to an output directory. It is the per-item boundary of a batch:
// every failure, including a panic, comes back as a Result carrying an
// *ItemError.
package stamp

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	// Decoders imaging does not register on its own.
	_ "golang.org/x/image/webp"

	"fechador/pkg/imgutil"
)

// DefaultQuality is the JPEG quality used for annotated copies.
const DefaultQuality = 95

// Result describes one stamped image. Err is nil on success and an
// *ItemError otherwise.
type Result struct {
	Source string
	Dest   string
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// ItemError is a recoverable failure scoped to a single image.
type ItemError struct {
	Stage string
	Path  string
	Err   error
	Stack string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Detail is the text recorded in the failure log.
func (e *ItemError) Detail() string {
	if e.Stack == "" {
		return e.Error()
	}
	return e.Error() + "\n" + strings.TrimRight(e.Stack, "\n")
}

// Stamper applies a Style to individual images.
type Stamper struct {
	Fonts   Fonts
	Quality int
}

// Apply stamps style onto src and writes the copy to outDir under the
// source's base name. It never panics.
func (s Stamper) Apply(src, outDir string, style Style) (res Result) {
	res.Source = src
	defer func() {
		if r := recover(); r != nil {
			res.Dest = ""
			res.Err = &ItemError{
				Stage: "panic",
				Path:  src,
				Err:   fmt.Errorf("%v", r),
				Stack: string(debug.Stack()),
			}
		}
	}()

	dest, err := s.apply(src, outDir, style)
	if err != nil {
		res.Err = err
		return res
	}
	res.Dest = dest
	return res
}

func (s Stamper) apply(src, outDir string, style Style) (string, error) {
	fail := func(stage string, err error) error {
		return &ItemError{Stage: stage, Path: src, Err: err}
	}

	kind, err := imgutil.SniffFile(src)
	if err != nil {
		return "", fail("open", err)
	}
	if kind == imgutil.KindUnknown {
		return "", fail("open", fmt.Errorf("unrecognized image format"))
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fail("decode", err)
	}

	face, err := s.Fonts.Face(style.Font, style.Size)
	if err != nil {
		return "", fail("font", err)
	}
	defer face.Close()

	text := norm.NFC.String(textFor(src, style))
	canvas := imaging.Clone(img)
	drawText(canvas, face, text, style)

	dest := filepath.Join(outDir, filepath.Base(src))
	if err := s.write(canvas, src, dest); err != nil {
		return "", fail("write", err)
	}
	return dest, nil
}

func textFor(src string, style Style) string {
	if !style.DateFromExif {
		return style.Text
	}
	t, ok := ExifDate(src)
	if !ok {
		return style.Text
	}
	layout := style.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}
	return t.Format(layout)
}

// drawText places the ink box of text exactly at the anchor position.
func drawText(canvas *image.NRGBA, face font.Face, text string, style Style) {
	bounds, _ := font.BoundString(face, text)
	textW := (bounds.Max.X - bounds.Min.X).Ceil()
	textH := (bounds.Max.Y - bounds.Min.Y).Ceil()

	size := canvas.Bounds().Size()
	pos := Position(style.Anchor, size.X, size.Y, textW, textH, style.EffectiveMargin())

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(style.Color.NRGBA()),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(pos.X) - bounds.Min.X,
			Y: fixed.I(pos.Y) - bounds.Min.Y,
		},
	}
	d.DrawString(text)
}

func (s Stamper) write(img image.Image, src, dest string) error {
	format, err := imaging.FormatFromFilename(dest)
	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "fechador-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(srcInfo.Mode().Perm()); err != nil {
		_ = tmpFile.Close()
		return err
	}

	quality := s.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	if err := imaging.Encode(tmpFile, img, format, imaging.JPEGQuality(quality)); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), dest)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
