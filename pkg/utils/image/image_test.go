package image

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"testing"
)

const (
	width  = 32
	height = 24
)

func TestRGB(t *testing.T) {
	data := make([]byte, width*height*3)
	for i := range data {
		data[i] = byte(i)
	}
	img, err := DecodeRGB(data, width, height)
	if err != nil {
		t.Fatal(err)
	}
	var jpgBuf bytes.Buffer
	if err := EncodeJPEG(img, &jpgBuf, 95); err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(&jpgBuf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != width || cfg.Height != height {
		t.Fatalf("got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRGBShortFrame(t *testing.T) {
	if _, err := DecodeRGB(make([]byte, 10), width, height); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestGray16(t *testing.T) {
	data := make([]byte, width*height*2)
	binary.LittleEndian.PutUint16(data[0:], 4000)
	binary.LittleEndian.PutUint16(data[2:], 2000)
	binary.LittleEndian.PutUint16(data[4:], 9000)

	img, err := DecodeGray16(data, width, height, 4000)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("unexpected image type %T", img)
	}
	for i, want := range []uint8{255, 127, 255} {
		if got := g.Pix[i]; got != want {
			t.Errorf("pixel %d: got %d, want %d", i, got, want)
		}
	}
}
