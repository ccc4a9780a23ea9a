package generate

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// maxDimension is the largest side length the rendering engine accepts
// without excessive memory use.
const maxDimension = 1024

// Normalize rescales an image whose longer side exceeds maxDimension down
// to it, preserving aspect ratio with Lanczos resampling, and re-encodes as
// PNG. Images already within bounds come back byte-identical, so applying
// Normalize twice equals applying it once. Undecodable input is returned
// unchanged; the engine will surface the real failure downstream.
func Normalize(data []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return data
	}

	if w >= h {
		img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return data
	}
	return buf.Bytes()
}
