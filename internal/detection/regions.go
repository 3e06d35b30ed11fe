package detection

import "image"

const (
	// MinRegionPixels is the pixel count a component must exceed to count
	// as an obstacle.
	MinRegionPixels = 100

	// MinRegionSpan is the bounding-box width and height (maxX-minX,
	// maxY-minY) a component must exceed.
	MinRegionSpan = 20
)

// Region is one connected component of edge pixels that passed the noise
// filter.
type Region struct {
	MinX       int     `json:"min_x"`
	MinY       int     `json:"min_y"`
	MaxX       int     `json:"max_x"`
	MaxY       int     `json:"max_y"`
	PixelCount int     `json:"pixel_count"`
	CenterX    float64 `json:"center_x"`
}

// Box returns the bounding box with inclusive corners.
func (r Region) Box() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: r.MinX, Y: r.MinY},
		Max: image.Point{X: r.MaxX, Y: r.MaxY},
	}
}

func (r Region) significant() bool {
	return r.PixelCount > MinRegionPixels &&
		r.MaxX-r.MinX > MinRegionSpan &&
		r.MaxY-r.MinY > MinRegionSpan
}

// ExtractRegions returns the filtered connected components of m in row-major
// discovery order.
func ExtractRegions(m EdgeMap) []Region {
	var e Extractor
	return e.Extract(m)
}

// Extractor finds regions while reusing its visited grid and work stack
// between calls. A zero Extractor is ready to use. It is not safe for
// concurrent use.
type Extractor struct {
	visited []bool
	stack   []int
}

// Extract is ExtractRegions using the extractor's buffers.
func (e *Extractor) Extract(m EdgeMap) []Region {
	n := m.Width * m.Height
	if n <= 0 || len(m.Cells) < n {
		return nil
	}

	if cap(e.visited) < n {
		e.visited = make([]bool, n)
	} else {
		e.visited = e.visited[:n]
		clear(e.visited)
	}

	var regions []Region
	for i, edge := range m.Cells[:n] {
		if !edge || e.visited[i] {
			continue
		}
		r := e.fill(m, i)
		if r.significant() {
			regions = append(regions, r)
		}
	}
	return regions
}

// fill drains an 8-connected flood fill seeded at cell index start.
func (e *Extractor) fill(m EdgeMap, start int) Region {
	w, h := m.Width, m.Height
	r := Region{
		MinX: w, MinY: h,
		MaxX: -1, MaxY: -1,
	}

	stack := append(e.stack[:0], start)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e.visited[i] || !m.Cells[i] {
			continue
		}
		e.visited[i] = true

		x, y := i%w, i/w
		r.PixelCount++
		r.MinX = min(r.MinX, x)
		r.MaxX = max(r.MaxX, x)
		r.MinY = min(r.MinY, y)
		r.MaxY = max(r.MaxY, y)

		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
					continue
				}
				j := ny*w + nx
				if !e.visited[j] && m.Cells[j] {
					stack = append(stack, j)
				}
			}
		}
	}
	e.stack = stack

	r.CenterX = float64(r.MinX+r.MaxX) / 2
	return r
}
