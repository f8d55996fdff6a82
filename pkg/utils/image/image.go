package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

func RGBToRGBA(in, out []byte, width, height int) {
	outStride := width * 4
	inStride := len(in) / height

	for i := 0; i < height; i++ {
		oIndex := i * outStride
		iIndex := i * inStride
		for j := 0; j < width; j++ {
			out[oIndex] = in[iIndex]
			out[oIndex+1] = in[iIndex+1]
			out[oIndex+2] = in[iIndex+2]
			out[oIndex+3] = 0xff

			oIndex += 4
			iIndex += 3
		}
	}
}

func DecodeRGB(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 || len(data) < width*height*3 {
		return nil, fmt.Errorf("rgb24 frame of %d bytes does not fit %dx%d", len(data), width, height)
	}
	i := image.NewRGBA(image.Rect(0, 0, width, height))
	RGBToRGBA(data, i.Pix, width, height)

	return i, nil
}

// DecodeGray16 converts little-endian 16 bit samples (depth in millimetres or
// infrared intensity) to an 8 bit gray image, mapping [0, maxValue] onto [0, 255].
func DecodeGray16(data []byte, width, height int, maxValue uint16) (image.Image, error) {
	if width <= 0 || height <= 0 || len(data) < width*height*2 {
		return nil, fmt.Errorf("gray16 frame of %d bytes does not fit %dx%d", len(data), width, height)
	}
	if maxValue == 0 {
		maxValue = 0xffff
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		v := uint32(binary.LittleEndian.Uint16(data[i*2:]))
		if v > uint32(maxValue) {
			v = uint32(maxValue)
		}
		img.Pix[i] = uint8(v * 255 / uint32(maxValue))
	}

	return img, nil
}

func EncodeJPEG(img image.Image, dst io.Writer, quality int) error {
	return jpeg.Encode(dst, img, &jpeg.Options{Quality: quality})
}

func EncodeJPEGBytes(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(img, &buf, quality); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
