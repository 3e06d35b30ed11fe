package detection

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractRegions_Filter(t *testing.T) {
	tests := []struct {
		name  string
		build func(m EdgeMap)
		want  []Region
	}{
		{
			name:  "empty map",
			build: func(m EdgeMap) {},
			want:  nil,
		},
		{
			name:  "filled block passes",
			build: func(m EdgeMap) { fillCells(m, 5, 5, 26, 26) },
			want:  []Region{{MinX: 5, MinY: 5, MaxX: 26, MaxY: 26, PixelCount: 484, CenterX: 15.5}},
		},
		{
			name:  "span of exactly 20 is rejected",
			build: func(m EdgeMap) { fillCells(m, 5, 5, 25, 40) },
			want:  nil,
		},
		{
			name:  "height of exactly 20 is rejected",
			build: func(m EdgeMap) { fillCells(m, 5, 5, 40, 25) },
			want:  nil,
		},
		{
			name:  "outline with too few pixels is rejected",
			build: func(m EdgeMap) { outlineCells(m, 5, 5, 26, 26) },
			want:  nil,
		},
		{
			name:  "larger outline passes",
			build: func(m EdgeMap) { outlineCells(m, 0, 0, 30, 30) },
			want:  []Region{{MinX: 0, MinY: 0, MaxX: 30, MaxY: 30, PixelCount: 120, CenterX: 15}},
		},
		{
			name: "diagonal steps connect",
			build: func(m EdgeMap) {
				for i := 0; i < 50; i++ {
					m.Cells[i*m.Width+i] = true
					m.Cells[i*m.Width+i+1] = true
					m.Cells[i*m.Width+i+2] = true
				}
			},
			want: []Region{{MinX: 0, MinY: 0, MaxX: 51, MaxY: 49, PixelCount: 150, CenterX: 25.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newEdgeMap(60, 60)
			tt.build(m)
			got := ExtractRegions(m)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("regions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractRegions_DiscoveryOrder(t *testing.T) {
	m := newEdgeMap(100, 100)
	fillCells(m, 0, 40, 25, 65)  // lower left, reached second
	fillCells(m, 60, 10, 85, 35) // upper right, first in row-major order
	fillCells(m, 70, 40, 95, 65) // lower right, same rows as the left block

	got := ExtractRegions(m)
	want := []Region{
		{MinX: 60, MinY: 10, MaxX: 85, MaxY: 35, PixelCount: 676, CenterX: 72.5},
		{MinX: 0, MinY: 40, MaxX: 25, MaxY: 65, PixelCount: 676, CenterX: 12.5},
		{MinX: 70, MinY: 40, MaxX: 95, MaxY: 65, PixelCount: 676, CenterX: 82.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRegions_NoPixelAssignedTwice(t *testing.T) {
	img := createTestImage(120, 90, light)
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			if (x/7+y/5)%3 == 0 || (x*y)%11 == 0 {
				img.Set(x, y, dark)
			}
		}
	}
	m := BuildEdgeMap(frameOf(t, img), 60)

	regions := ExtractRegions(m)
	total := 0
	for _, r := range regions {
		total += r.PixelCount
	}
	if total > m.Count() {
		t.Errorf("regions hold %d pixels, map has only %d edges", total, m.Count())
	}

	for _, r := range regions {
		if r.MinX < 0 || r.MinY < 0 || r.MaxX >= m.Width || r.MaxY >= m.Height {
			t.Errorf("region %+v outside %dx%d frame", r, m.Width, m.Height)
		}
		if r.PixelCount <= MinRegionPixels || r.MaxX-r.MinX <= MinRegionSpan || r.MaxY-r.MinY <= MinRegionSpan {
			t.Errorf("region %+v should have been filtered", r)
		}
	}
}

func TestExtractor_Reuse(t *testing.T) {
	var e Extractor

	big := newEdgeMap(80, 80)
	fillCells(big, 10, 10, 50, 50)
	first := e.Extract(big)

	small := newEdgeMap(40, 40)
	fillCells(small, 2, 2, 30, 30)
	second := e.Extract(small)

	again := e.Extract(big)

	if diff := cmp.Diff(ExtractRegions(big), first); diff != "" {
		t.Errorf("first extract mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ExtractRegions(small), second); diff != "" {
		t.Errorf("smaller map mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("repeat extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRegions_ShortCells(t *testing.T) {
	m := EdgeMap{Width: 10, Height: 10, Cells: make([]bool, 5)}
	if got := ExtractRegions(m); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestRegion_Box(t *testing.T) {
	r := Region{MinX: 9, MinY: 10, MaxX: 40, MaxY: 41}
	want := image.Rectangle{Min: image.Pt(9, 10), Max: image.Pt(40, 41)}
	if got := r.Box(); got != want {
		t.Errorf("Box: got %v, want %v", got, want)
	}
}
