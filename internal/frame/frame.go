// Package frame defines the raster snapshot consumed by the obstacle
// detector and the sources that supply it.
package frame

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/obstacle-mcp/internal/imaging"
)

var (
	// ErrInvalidChannels is returned for pixel layouts other than RGB or RGBA.
	ErrInvalidChannels = errors.New("frame: channels must be 3 (RGB) or 4 (RGBA)")

	// ErrShortBuffer is returned when the pixel buffer is smaller than
	// width*height*channels.
	ErrShortBuffer = errors.New("frame: pixel buffer too small")

	// ErrNegativeSize is returned for negative dimensions.
	ErrNegativeSize = errors.New("frame: negative dimensions")
)

// Frame is an immutable raster snapshot: Width*Height pixels, row-major,
// tightly packed, Channels bytes per pixel in R,G,B(,A) order.
//
// A zero-sized frame is valid and yields no edges.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte

	CapturedAt time.Time
	Sequence   uint64
}

// New validates the layout and wraps pix without copying. The caller must
// not modify pix afterwards.
func New(width, height, channels int, pix []byte) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNegativeSize, width, height)
	}
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChannels, channels)
	}
	if need := width * height * channels; len(pix) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(pix), need)
	}
	return &Frame{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// FromImage converts any image into an RGBA frame. Pixels are copied, so the
// frame stays valid if img is later modified.
func FromImage(img image.Image) *Frame {
	n := imaging.Normalize(img)
	b := n.Bounds()
	return &Frame{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: 4,
		Pix:      n.Pix,
	}
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0
}

// Valid reports whether the frame's layout is consistent with its buffer.
func (f *Frame) Valid() bool {
	if f == nil || f.Width < 0 || f.Height < 0 {
		return false
	}
	if f.Channels != 3 && f.Channels != 4 {
		return false
	}
	return len(f.Pix) >= f.Width*f.Height*f.Channels
}

// Bounds returns the frame rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Image returns a copy of the frame as an *image.NRGBA. RGB frames are
// given an opaque alpha channel.
func (f *Frame) Image() *image.NRGBA {
	out := image.NewNRGBA(f.Bounds())
	if !f.Valid() {
		return out
	}
	if f.Channels == 4 {
		copy(out.Pix, f.Pix[:f.Width*f.Height*4])
		return out
	}
	for i, j := 0, 0; j < len(out.Pix); i, j = i+3, j+4 {
		out.Pix[j] = f.Pix[i]
		out.Pix[j+1] = f.Pix[i+1]
		out.Pix[j+2] = f.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}
