package stamp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func testStyle() Style {
	return Style{
		Text:      "15/12/2025",
		Font:      "Go-Regular.ttf",
		Size:      24,
		Color:     RGB{0, 0, 0},
		Anchor:    BottomRight,
		Margin:    20,
		UseMargin: true,
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestApplyBottomRight(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))
	writePNG(t, src, 320, 200)

	style := testStyle()
	res := Stamper{}.Apply(src, out, style)
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(out, "photo.png"), res.Dest)

	stamped, err := imaging.Open(res.Dest)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(320, 200), stamped.Bounds().Size())

	face, err := Fonts{}.Face(style.Font, style.Size)
	require.NoError(t, err)
	defer face.Close()
	bounds, _ := font.BoundString(face, style.Text)
	textW := (bounds.Max.X - bounds.Min.X).Ceil()
	textH := (bounds.Max.Y - bounds.Min.Y).Ceil()
	want := Position(BottomRight, 320, 200, textW, textH, 20)

	ink := inkBounds(stamped)
	require.False(t, ink.Empty(), "no text was drawn")

	const slack = 2
	assert.InDelta(t, want.X, ink.Min.X, slack)
	assert.InDelta(t, want.Y, ink.Min.Y, slack)
	assert.LessOrEqual(t, ink.Max.X, 320-20+slack)
	assert.LessOrEqual(t, ink.Max.Y, 200-20+slack)
}

func TestApplyOverwritesDeterministically(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))
	writePNG(t, src, 120, 80)

	first := Stamper{}.Apply(src, out, testStyle())
	second := Stamper{}.Apply(src, out, testStyle())
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Dest, second.Dest)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.png", entries[0].Name())
}

func TestApplyFontNotFound(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src, 50, 50)

	style := testStyle()
	style.Font = "NoSuchFont.ttf"
	res := Stamper{Fonts: Fonts{Dirs: []string{dir}}}.Apply(src, dir, style)

	var itemErr *ItemError
	require.True(t, errors.As(res.Err, &itemErr))
	assert.Equal(t, "font", itemErr.Stage)
	assert.ErrorIs(t, res.Err, ErrFontMissing)
	assert.Contains(t, itemErr.Detail(), "NoSuchFont.ttf")
	assert.Empty(t, res.Dest)
}

func TestApplyNotAnImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.jpg")
	require.NoError(t, os.WriteFile(src, []byte("definitely not a jpeg file"), 0o644))

	res := Stamper{}.Apply(src, dir, testStyle())

	var itemErr *ItemError
	require.True(t, errors.As(res.Err, &itemErr))
	assert.Equal(t, "open", itemErr.Stage)
	assert.Equal(t, src, res.Source)
}

func TestApplyCorruptImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	data := append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, []byte("garbage-garbage")...)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	res := Stamper{}.Apply(src, dir, testStyle())

	var itemErr *ItemError
	require.True(t, errors.As(res.Err, &itemErr))
	assert.Equal(t, "decode", itemErr.Stage)
}

func TestApplyMissingOutputDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src, 40, 40)

	res := Stamper{}.Apply(src, filepath.Join(dir, "missing"), testStyle())

	var itemErr *ItemError
	require.True(t, errors.As(res.Err, &itemErr))
	assert.Equal(t, "write", itemErr.Stage)
}

func TestExifDate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sample.jpg")
	require.NoError(t, buildJPEGWithExif(src))

	got, ok := ExifDate(src)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02 03:04:05", got.Format("2006-01-02 15:04:05"))

	style := testStyle()
	style.DateFromExif = true
	assert.Equal(t, "02/01/2024", textFor(src, style))

	style.DateLayout = "2006.01.02"
	assert.Equal(t, "2024.01.02", textFor(src, style))
}

func TestExifDateFallsBackToText(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.png")
	writePNG(t, src, 10, 10)

	_, ok := ExifDate(src)
	assert.False(t, ok)

	style := testStyle()
	style.DateFromExif = true
	assert.Equal(t, style.Text, textFor(src, style))
}

func inkBounds(img image.Image) image.Rectangle {
	var ink image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r == 0xffff && g == 0xffff && bl == 0xffff {
				continue
			}
			ink = ink.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return ink
}

func buildJPEGWithExif(path string) error {
	exifData := buildExifTIFF()
	exif := append([]byte("Exif\x00\x00"), exifData...)

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write([]byte{0xff, 0xd9})

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// buildExifTIFF emits a little-endian IFD0 with Model and DateTime.
func buildExifTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0110))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(38))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0132))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(20))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(46))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}
