package upload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"cropcare/internal/model"
)

// Preview box of the upload card.
const (
	PreviewMaxWidth  = 800
	PreviewMaxHeight = 350
)

// maxPreviewPixels bounds what DataURL decodes. Larger images are embedded as-is
// and left to the browser.
var maxPreviewPixels = 40_000_000

var ErrEmptyFile = errors.New("empty file")

// DataURL renders file as a data URL for the preview <img>. Images larger than the
// preview box are scaled down; anything that does not decode, or is too large to
// decode, is embedded as-is.
func DataURL(file model.LeafImage) (string, error) {
	if len(file.Data) == 0 {
		return "", ErrEmptyFile
	}

	mtype := mimetype.Detect(file.Data)
	if !isImage(mtype) {
		return encode(mtype.String(), file.Data), nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPreviewPixels) {
		return encode(mtype.String(), file.Data), nil
	}

	img, _, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return encode(mtype.String(), file.Data), nil
	}

	bounds := img.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), PreviewMaxWidth, PreviewMaxHeight)
	if w == bounds.Dx() && h == bounds.Dy() && mtype.Is("image/png") {
		return encode("image/png", file.Data), nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return encode(mtype.String(), file.Data), nil
	}
	return encode("image/png", buf.Bytes()), nil
}

func isImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		switch m.String() {
		case "image/jpeg", "image/png", "image/gif", "image/webp":
			return true
		}
	}
	return false
}

func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func encode(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
