package upload

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcare/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, url string) (string, []byte) {
	t.Helper()
	require.True(t, strings.HasPrefix(url, "data:"))
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return strings.TrimSuffix(meta, ";base64"), raw
}

func TestDataURL_SmallPNGKeptVerbatim(t *testing.T) {
	data := pngBytes(t, 40, 30)

	url, err := DataURL(model.LeafImage{Filename: "leaf.png", Data: data})
	require.NoError(t, err)

	mediaType, raw := decodeDataURL(t, url)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, data, raw)
}

func TestDataURL_LargeImageScaledIntoPreviewBox(t *testing.T) {
	data := pngBytes(t, 1400, 700)

	url, err := DataURL(model.LeafImage{Filename: "leaf.png", Data: data})
	require.NoError(t, err)

	_, raw := decodeDataURL(t, url)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 700, cfg.Width)
	assert.Equal(t, PreviewMaxHeight, cfg.Height)
}

func TestDataURL_OverPixelBudgetNotDecoded(t *testing.T) {
	prev := maxPreviewPixels
	maxPreviewPixels = 1400*700 - 1
	t.Cleanup(func() { maxPreviewPixels = prev })
	data := pngBytes(t, 1400, 700)

	url, err := DataURL(model.LeafImage{Filename: "huge.png", Data: data})
	require.NoError(t, err)

	mediaType, raw := decodeDataURL(t, url)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, data, raw, "embedded without decoding or scaling")
}

func TestDataURL_HugeDimensionsHeaderOnly(t *testing.T) {
	// A valid IHDR claiming 100000x100000 with no pixel data behind it.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], 100000)
	binary.BigEndian.PutUint32(data[20:24], 100000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 100000, cfg.Width)

	url, err := DataURL(model.LeafImage{Filename: "bomb.png", Data: data})
	require.NoError(t, err)
	_, raw := decodeDataURL(t, url)
	assert.Equal(t, data, raw)
}

func TestDataURL_NonImageEmbeddedAsIs(t *testing.T) {
	data := []byte("just some text, not a leaf")

	url, err := DataURL(model.LeafImage{Filename: "notes.txt", Data: data})
	require.NoError(t, err)

	mediaType, raw := decodeDataURL(t, url)
	assert.True(t, strings.HasPrefix(mediaType, "text/plain"))
	assert.Equal(t, data, raw)
}

func TestDataURL_Empty(t *testing.T) {
	_, err := DataURL(model.LeafImage{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(100, 100, 800, 350)
	assert.Equal(t, [2]int{100, 100}, [2]int{w, h})
	w, h = fitWithin(1600, 400, 800, 350)
	assert.Equal(t, [2]int{800, 200}, [2]int{w, h})
}
