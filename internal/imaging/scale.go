package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// FitWidth downscales img so that its width does not exceed maxWidth,
// preserving the aspect ratio.
//
// The detector's per-cycle cost grows with the pixel count, so camera stills
// are bounded before they become frames. Images already narrower than
// maxWidth, and a maxWidth of zero or less, return img unchanged.
//
// Box filtering is used rather than Lanczos: it does not ring around hard
// edges, so it does not invent contrast that the edge map would pick up.
func FitWidth(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Box)
}

// Normalize returns a copy of img as a tightly packed *image.NRGBA anchored
// at the origin (Stride == 4*width), whatever the source colour model.
func Normalize(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
