package imgutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHeader(t *testing.T) {
	cases := map[string]struct {
		header []byte
		want   Kind
	}{
		"jpeg": {[]byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}, KindJPEG},
		"png":  {[]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, KindPNG},
		"tiff": {[]byte{0x49, 0x49, 0x2a, 0x00, 8, 0, 0, 0}, KindTIFF},
		"bmp":  {[]byte("BM\x00\x00\x00\x00\x00\x00"), KindBMP},
		"gif":  {[]byte("GIF89a\x01\x00"), KindGIF},
		"webp": {[]byte("RIFF\x10\x00\x00\x00WEBP"), KindWEBP},
		"text": {[]byte("hello world!"), KindUnknown},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := DetectHeader(tc.header)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectHeaderTooShort(t *testing.T) {
	_, err := DetectHeader([]byte{0xff, 0xd8})
	assert.Error(t, err)
}

func TestSniffFileShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	_, err := SniffFile(path)
	assert.Error(t, err)
}

func TestKindFromExt(t *testing.T) {
	assert.Equal(t, KindJPEG, KindFromExt("/a/b/IMG_0001.JPG"))
	assert.Equal(t, KindTIFF, KindFromExt("scan.tif"))
	assert.Equal(t, KindUnknown, KindFromExt("notes.txt"))
	assert.True(t, IsSupported("x.webp"))
	assert.False(t, IsSupported("x"))
}
