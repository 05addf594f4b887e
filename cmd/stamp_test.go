package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fechador/internal/processor"
	"fechador/internal/report"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 40, B: 60, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStampThreeGoodOneBad(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "src")
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(src, 0o755))

	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(src, name)
		writePNG(t, p, 320, 200)
		paths = append(paths, p)
	}
	bad := filepath.Join(src, "notes.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	paths = append(paths, bad)

	args := append([]string{"stamp", "--no-tui", "--turbo=false",
		"--text", "15/12/2025", "--anchor", "bottom-right", "--margin", "20", "--use-margin",
		"-o", outDir}, paths...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Procesadas correctamente: 3 de 4")
	assert.Contains(t, stdout, "✗ notes.jpg")
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	assert.NoFileExists(t, filepath.Join(outDir, "notes.jpg"))

	data, err := os.ReadFile(filepath.Join(outDir, report.FileName))
	require.NoError(t, err)
	body := string(data)
	assert.Equal(t, 1, strings.Count(body, "ERROR "))
	assert.Contains(t, body, "Archivo: "+bad)
}

func TestStampDefaultsToAnnotatedFolder(t *testing.T) {
	dir := isolate(t)
	writePNG(t, filepath.Join(dir, "one.png"), 120, 80)
	writePNG(t, filepath.Join(dir, "two.png"), 120, 80)
	metricsPath := filepath.Join(dir, "batch.prom")

	stdout, _, err := execute(t, "stamp", "--no-tui", "--parallelism", "3", "--metrics-file", metricsPath, dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Procesadas correctamente: 2 de 2")
	assert.FileExists(t, filepath.Join(dir, processor.DefaultOutputName, "one.png"))
	assert.FileExists(t, filepath.Join(dir, processor.DefaultOutputName, "two.png"))
	assert.NoFileExists(t, filepath.Join(dir, processor.DefaultOutputName, report.FileName))

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `fechador_outcomes_total{result="success"} 2`)
}

func TestStampFatalWritesNoLog(t *testing.T) {
	dir := isolate(t)
	outDir := filepath.Join(dir, "out")
	img := filepath.Join(dir, "a.png")
	writePNG(t, img, 60, 40)

	held := flock.New(processor.LockPath(outDir))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	_, _, err = execute(t, "stamp", "--no-tui", "-o", outDir, img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use by another batch")
	assert.Contains(t, err.Error(), "Procesadas: 0 de 1")
	assert.NoFileExists(t, filepath.Join(outDir, report.FileName))
}

func TestStampIntoSourceFolderKeepsOriginals(t *testing.T) {
	dir := isolate(t)
	photo := filepath.Join(dir, "a.png")
	writePNG(t, photo, 120, 80)
	before, err := os.ReadFile(photo)
	require.NoError(t, err)

	stdout, _, err := execute(t, "stamp", "--no-tui", "-o", dir, photo)
	require.NoError(t, err)

	after, err := os.ReadFile(photo)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, stdout, "Procesadas correctamente: 0 de 1")

	data, err := os.ReadFile(filepath.Join(dir, report.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Archivo: "+photo)
	assert.Contains(t, string(data), "destination is the source file")
}

func TestStampRejectsEmptyText(t *testing.T) {
	dir := isolate(t)
	img := filepath.Join(dir, "a.png")
	writePNG(t, img, 10, 10)

	_, _, err := execute(t, "stamp", "--no-tui", "--text", " ", img)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(dir, processor.DefaultOutputName))
}

func TestStampNeedsOutputForMixedFolders(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "x"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "y"), 0o755))
	a := filepath.Join(dir, "x", "a.png")
	b := filepath.Join(dir, "y", "b.png")
	writePNG(t, a, 10, 10)
	writePNG(t, b, 10, 10)

	_, _, err := execute(t, "stamp", "--no-tui", a, b)
	assert.ErrorIs(t, err, processor.ErrOutputRequired)
}

func TestPresetSaveAndShow(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "noche.toml")

	stdout, _, err := execute(t, "preset", "save", "--text", "Navidad", "--color", "yellow", "--anchor", "Arriba Derecha", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	stdout, _, err = execute(t, "preset", "show", "--preset", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "text: Navidad")
	assert.Contains(t, stdout, "color: 255,255,0")
	assert.Contains(t, stdout, "anchor: top-right")
}

func TestFontsListsBuiltinsAndDirectory(t *testing.T) {
	dir := isolate(t)
	fontDir := filepath.Join(dir, "fonts")
	require.NoError(t, os.MkdirAll(fontDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fontDir, "Arial.TTF"), []byte("x"), 0o644))

	stdout, _, err := execute(t, "fonts")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Go-Regular.ttf")
	assert.Contains(t, stdout, "Arial.TTF")
}
