package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/obstacle-mcp/internal/frame"
)

var (
	light = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	dark  = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// createTestImage creates a solid colour image.
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSquareImage draws a solid dark square with inclusive corners on a
// light background.
func createSquareImage(width, height, x1, y1, x2, y2 int) *image.RGBA {
	img := createTestImage(width, height, light)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y, dark)
		}
	}
	return img
}

// createStripedSquareImage draws a square whose columns alternate dark and
// light, starting dark at x1, so every column inside it is an edge.
func createStripedSquareImage(width, height, x1, y1, x2, y2 int) *image.RGBA {
	img := createTestImage(width, height, light)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x += 2 {
			img.Set(x, y, dark)
		}
	}
	return img
}

func frameOf(t *testing.T, img image.Image) *frame.Frame {
	t.Helper()
	f := frame.FromImage(img)
	if !f.Valid() {
		t.Fatal("test frame is invalid")
	}
	return f
}

// newEdgeMap returns an all-false map.
func newEdgeMap(width, height int) EdgeMap {
	return EdgeMap{Width: width, Height: height, Cells: make([]bool, width*height)}
}

// fillCells sets every cell of the inclusive rectangle.
func fillCells(m EdgeMap, x1, y1, x2, y2 int) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			m.Cells[y*m.Width+x] = true
		}
	}
}

// outlineCells sets the one-pixel border of the inclusive rectangle.
func outlineCells(m EdgeMap, x1, y1, x2, y2 int) {
	for x := x1; x <= x2; x++ {
		m.Cells[y1*m.Width+x] = true
		m.Cells[y2*m.Width+x] = true
	}
	for y := y1; y <= y2; y++ {
		m.Cells[y*m.Width+x1] = true
		m.Cells[y*m.Width+x2] = true
	}
}
