package detection

import (
	"image"

	"github.com/ironsheep/obstacle-mcp/internal/frame"
)

const (
	// MinSensitivity and MaxSensitivity bound the sensitivity parameter.
	MinSensitivity = 0
	MaxSensitivity = 100
)

// EdgeMap is a boolean grid with the same dimensions as the frame it was
// built from. Cells are stored row-major.
type EdgeMap struct {
	Width  int
	Height int
	Cells  []bool
}

// ClampSensitivity limits s to [MinSensitivity, MaxSensitivity].
func ClampSensitivity(s int) int {
	if s < MinSensitivity {
		return MinSensitivity
	}
	if s > MaxSensitivity {
		return MaxSensitivity
	}
	return s
}

// Threshold returns the luminance difference a pixel pair must exceed to be
// an edge at sensitivity s.
func Threshold(s int) int {
	return MaxSensitivity - ClampSensitivity(s)
}

// BuildEdgeMap marks edge[y][x] when the mean RGB luminance of (x,y) and
// (x+1,y) differ by more than Threshold(sensitivity).
//
// The comparison runs on integer channel sums: |sumA - sumB| > 3*threshold
// is exactly |sumA/3 - sumB/3| > threshold without rounding. The last column
// has no right neighbour and is always false. Frames with no pixels, or
// whose buffer does not match their layout, produce a map with no edges.
func BuildEdgeMap(f *frame.Frame, sensitivity int) EdgeMap {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return EdgeMap{}
	}

	m := EdgeMap{
		Width:  f.Width,
		Height: f.Height,
		Cells:  make([]bool, f.Width*f.Height),
	}
	if !f.Valid() {
		return m
	}

	limit := 3 * Threshold(sensitivity)
	ch := f.Channels
	stride := f.Width * ch

	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*stride : (y+1)*stride]
		cells := m.Cells[y*f.Width : (y+1)*f.Width]

		prev := int(row[0]) + int(row[1]) + int(row[2])
		for x := 0; x < f.Width-1; x++ {
			i := (x + 1) * ch
			next := int(row[i]) + int(row[i+1]) + int(row[i+2])

			diff := prev - next
			if diff < 0 {
				diff = -diff
			}
			cells[x] = diff > limit
			prev = next
		}
	}

	return m
}

// At reports whether (x,y) is an edge. Out-of-range coordinates are false.
func (m EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Cells[y*m.Width+x]
}

// Count returns the number of edge pixels.
func (m EdgeMap) Count() int {
	n := 0
	for _, c := range m.Cells {
		if c {
			n++
		}
	}
	return n
}

// Image renders the map as white edges on black.
func (m EdgeMap) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, c := range m.Cells {
		if c {
			img.Pix[i] = 0xff
		}
	}
	return img
}
