package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	// HighlightPadding is the gap in pixels between a region's bounding box
	// and the highlight rectangle drawn around it.
	HighlightPadding = 10

	// HighlightLineWidth is the stroke width of highlight rectangles.
	HighlightLineWidth = 3

	// DefaultHighlightColor is used when no colour is configured.
	DefaultHighlightColor = "#ff0000"
)

// DrawRegions returns a copy of img with a padded rectangle stroked around
// every box.
//
// Boxes use inclusive corners: Min is the top-left pixel of the region and
// Max its bottom-right pixel. Each rectangle is grown by HighlightPadding on
// every side and stroked HighlightLineWidth pixels wide, centred on the
// outline. Strokes falling outside the image are clipped.
//
// Parameters:
//   - img: Source frame; it is never modified.
//   - boxes: Region bounding boxes in img's pixel coordinates.
//   - hexColor: Stroke colour as "#rgb" or "#rrggbb". Empty selects
//     DefaultHighlightColor.
//
// Returns:
//   - *image.NRGBA: The annotated copy, anchored at the origin.
//   - error: Non-nil if hexColor cannot be parsed.
func DrawRegions(img image.Image, boxes []image.Rectangle, hexColor string) (*image.NRGBA, error) {
	if hexColor == "" {
		hexColor = DefaultHighlightColor
	}
	c, err := colorful.Hex(hexColor)
	if err != nil {
		return nil, fmt.Errorf("invalid highlight color %q: %w", hexColor, err)
	}
	stroke := &image.Uniform{C: toNRGBA(c.Clamped())}

	out := Normalize(img)
	bounds := out.Bounds()

	half := HighlightLineWidth / 2
	for _, box := range boxes {
		left := box.Min.X - HighlightPadding
		top := box.Min.Y - HighlightPadding
		right := box.Max.X + HighlightPadding
		bottom := box.Max.Y + HighlightPadding

		edges := []image.Rectangle{
			image.Rect(left-half, top-half, right+half+1, top+half+1),       // top
			image.Rect(left-half, bottom-half, right+half+1, bottom+half+1), // bottom
			image.Rect(left-half, top-half, left+half+1, bottom+half+1),     // left
			image.Rect(right-half, top-half, right+half+1, bottom+half+1),   // right
		}
		for _, e := range edges {
			draw.Draw(out, e.Intersect(bounds), stroke, image.Point{}, draw.Src)
		}
	}

	return out, nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
