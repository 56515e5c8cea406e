package raster

import "testing"

func TestRGBTo565(t *testing.T) {
	tests := []struct {
		r, g, b byte
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{0xFF, 0xFF, 0xFF, 0xFFFF},
		{0xFF, 0, 0, 0xF800},
		{0, 0xFF, 0, 0x07E0},
		{0, 0, 0xFF, 0x001F},
		{0x84, 0x84, 0x84, 0x8430},
		{0x07, 0x03, 0x07, 0x0000},
	}
	for _, tt := range tests {
		dst := make([]byte, 2)
		RGBTo565(dst, 2, []byte{tt.r, tt.g, tt.b}, 3, 1, 1)
		if got := uint16(dst[0]) | uint16(dst[1])<<8; got != tt.want {
			t.Errorf("RGBTo565(%#x,%#x,%#x) = %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestRGBTo565HonorsStrides(t *testing.T) {
	src := []byte{
		0xFF, 0, 0, 0, 0xFF, 0, 9, 9,
		0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 9, 9,
	}
	dst := make([]byte, 12)
	for i := range dst {
		dst[i] = 0xEE
	}
	RGBTo565(dst, 6, src, 8, 2, 2)
	want := []byte{0x00, 0xF8, 0xE0, 0x07, 0xEE, 0xEE, 0x1F, 0x00, 0xFF, 0xFF, 0xEE, 0xEE}
	if string(dst) != string(want) {
		t.Errorf("dst = % x, want % x", dst, want)
	}
}

func TestRGB565RoundTrip(t *testing.T) {
	src := make([]byte, 2*256)
	for i := 0; i < 256; i++ {
		p := uint16(i * 257)
		src[2*i], src[2*i+1] = byte(p), byte(p>>8)
	}
	rgb := make([]byte, 3*256)
	rgb565ToRGB(rgb, 3*256, src, 2*256, 256, 1)
	back := make([]byte, 2*256)
	RGBTo565(back, 2*256, rgb, 3*256, 256, 1)
	if string(back) != string(src) {
		t.Error("565 -> RGB -> 565 is not lossless")
	}
}

func TestRGB565ToRGBA(t *testing.T) {
	dst := make([]byte, 4)
	RGB565ToRGBA(dst, 4, []byte{0x00, 0xF8}, 2, 1, 1)
	if dst[0] != 0xFF || dst[1] != 0 || dst[2] != 0 || dst[3] != 0xFF {
		t.Errorf("RGB565ToRGBA(red) = % x", dst)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"0xFF848484", 0xFF848484, true},
		{"#80102030", 0x80102030, true},
		{"#102030", 0xFF102030, true},
		{"0", 0, true},
		{"blue", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q) = %#x, %v", tt.in, got, err)
		}
	}
}

func TestSwapRB(t *testing.T) {
	if got := Color(0xFF112233).swapRB(); got != 0xFF332211 {
		t.Errorf("swapRB = %#x", got)
	}
}
