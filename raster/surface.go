// Package raster composites engine-rendered pages into caller owned pixel
// buffers.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("raster: unsupported pixel format")
	ErrInvalidSurface    = errors.New("raster: invalid surface")
	ErrRender            = errors.New("raster: render failed")
)

// Format is the pixel layout of a Surface.
type Format int

const (
	// FormatRGBA8888 stores R, G, B, A bytes, the layout of image.RGBA.
	FormatRGBA8888 Format = iota + 1
	// FormatRGB565 stores little-endian 16-bit pixels, 5 bits red in the
	// high bits.
	FormatRGB565
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA_8888"
	case FormatRGB565:
		return "RGB_565"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// BytesPerPixel returns 0 for unknown formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8888:
		return 4
	case FormatRGB565:
		return 2
	}
	return 0
}

// Surface is a destination pixel buffer. Pix row y starts at y*Stride.
type Surface struct {
	Width, Height int
	Stride        int
	Format        Format
	Pix           []byte
}

// NewSurface allocates a tightly packed surface.
func NewSurface(width, height int, format Format) *Surface {
	stride := width * format.BytesPerPixel()
	return &Surface{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Pix:    make([]byte, stride*height),
	}
}

// Validate checks the format and that Pix holds every row.
func (s *Surface) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil surface", ErrInvalidSurface)
	}
	bpp := s.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, s.Format)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidSurface, s.Width, s.Height)
	}
	if s.Stride < s.Width*bpp {
		return fmt.Errorf("%w: stride %d below row size %d", ErrInvalidSurface, s.Stride, s.Width*bpp)
	}
	if need := s.Stride*(s.Height-1) + s.Width*bpp; len(s.Pix) < need {
		return fmt.Errorf("%w: buffer holds %d bytes, need %d", ErrInvalidSurface, len(s.Pix), need)
	}
	return nil
}

// At returns the pixel at (x, y).
func (s *Surface) At(x, y int) color.RGBA {
	switch s.Format {
	case FormatRGBA8888:
		off := y*s.Stride + x*4
		return color.RGBA{R: s.Pix[off], G: s.Pix[off+1], B: s.Pix[off+2], A: s.Pix[off+3]}
	case FormatRGB565:
		off := y*s.Stride + x*2
		r, g, b := expand565(uint16(s.Pix[off]) | uint16(s.Pix[off+1])<<8)
		return color.RGBA{R: r, G: g, B: b, A: 0xFF}
	}
	return color.RGBA{}
}

// Image returns the surface as an *image.RGBA. RGBA surfaces share Pix;
// 565 surfaces are expanded into a new buffer.
func (s *Surface) Image() (*image.RGBA, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Format == FormatRGBA8888 {
		return &image.RGBA{Pix: s.Pix, Stride: s.Stride, Rect: image.Rect(0, 0, s.Width, s.Height)}, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	RGB565ToRGBA(img.Pix, img.Stride, s.Pix, s.Stride, s.Width, s.Height)
	return img, nil
}

// Color is an 0xAARRGGBB value. Zero means "do not fill".
type Color uint32

// RGBA returns the color as color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{A: uint8(c >> 24), R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c)}
}

// swapRB exchanges red and blue so that a fill written in the engine's
// native BGRA order lands as R, G, B, A once byte order is reversed.
func (c Color) swapRB() uint32 {
	v := uint32(c)
	return v&0xFF00FF00 | (v>>16)&0xFF | (v&0xFF)<<16
}

// ParseColor accepts "0xAARRGGBB", "#AARRGGBB" and "#RRGGBB" (opaque).
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("raster: parse color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xFF000000
	}
	return Color(v), nil
}
