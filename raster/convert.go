package raster

// RGBTo565 packs a 24-bit R, G, B buffer into little-endian 565 pixels,
// keeping the top 5, 6 and 5 bits of each channel. It does not allocate;
// callers size both buffers.
func RGBTo565(dst []byte, dstStride int, src []byte, srcStride, width, height int) {
	for y := 0; y < height; y++ {
		s := src[y*srcStride : y*srcStride+width*3]
		d := dst[y*dstStride : y*dstStride+width*2]
		for x := 0; x < width; x++ {
			r, g, b := uint16(s[3*x]), uint16(s[3*x+1]), uint16(s[3*x+2])
			p := (r>>3)<<11 | (g>>2)<<5 | b>>3
			d[2*x] = byte(p)
			d[2*x+1] = byte(p >> 8)
		}
	}
}

// RGB565ToRGBA expands 565 pixels into an opaque R, G, B, A buffer.
func RGB565ToRGBA(dst []byte, dstStride int, src []byte, srcStride, width, height int) {
	for y := 0; y < height; y++ {
		s := src[y*srcStride : y*srcStride+width*2]
		d := dst[y*dstStride : y*dstStride+width*4]
		for x := 0; x < width; x++ {
			r, g, b := expand565(uint16(s[2*x]) | uint16(s[2*x+1])<<8)
			d[4*x], d[4*x+1], d[4*x+2], d[4*x+3] = r, g, b, 0xFF
		}
	}
}

// rgb565ToRGB seeds a scratch buffer from a 565 surface. Packing the result
// again with RGBTo565 reproduces the input exactly.
func rgb565ToRGB(dst []byte, dstStride int, src []byte, srcStride, width, height int) {
	for y := 0; y < height; y++ {
		s := src[y*srcStride : y*srcStride+width*2]
		d := dst[y*dstStride : y*dstStride+width*3]
		for x := 0; x < width; x++ {
			d[3*x], d[3*x+1], d[3*x+2] = expand565(uint16(s[2*x]) | uint16(s[2*x+1])<<8)
		}
	}
}

func expand565(p uint16) (r, g, b uint8) {
	r5, g6, b5 := uint8(p>>11), uint8(p>>5)&0x3F, uint8(p)&0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}
