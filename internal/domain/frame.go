package domain

import "image"

// bytesPerPixel is the interleaved channel count of a frame buffer.
const bytesPerPixel = 3

// Frame is a raw interleaved pixel buffer as delivered by the camera
// source. Camera frames arrive in BGR channel order; RGB returns the
// swapped copy the model stack infers on.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*bytesPerPixel),
	}
}

// Valid reports whether the buffer length matches the declared dimensions.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 &&
		len(f.Pix) == f.Width*f.Height*bytesPerPixel
}

// Bounds returns the frame rectangle at origin (0,0).
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// RGB returns a copy of the frame with the first and third channels
// swapped. The swap is its own inverse, so the same call converts either
// direction.
func (f Frame) RGB() Frame {
	out := Frame{
		Width:  f.Width,
		Height: f.Height,
		Pix:    make([]byte, len(f.Pix)),
	}
	for i := 0; i+2 < len(f.Pix); i += bytesPerPixel {
		out.Pix[i] = f.Pix[i+2]
		out.Pix[i+1] = f.Pix[i+1]
		out.Pix[i+2] = f.Pix[i]
	}
	return out
}

// Crop returns a copy of the region r, clamped to the frame bounds.
// An empty intersection yields a zero-size frame.
func (f Frame) Crop(r image.Rectangle) Frame {
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return Frame{}
	}

	out := NewFrame(r.Dx(), r.Dy())
	srcStride := f.Width * bytesPerPixel
	dstStride := r.Dx() * bytesPerPixel

	for y := 0; y < r.Dy(); y++ {
		srcOff := (r.Min.Y+y)*srcStride + r.Min.X*bytesPerPixel
		copy(out.Pix[y*dstStride:(y+1)*dstStride], f.Pix[srcOff:srcOff+dstStride])
	}
	return out
}
