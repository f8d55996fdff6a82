package recorder

import (
	"fmt"

	"multicam-logger/pkg/camera"
	imgutil "multicam-logger/pkg/utils/image"
)

const (
	DefaultQuality = 90

	// gray16Max maps depth millimetres and infrared intensity onto 8 bits.
	gray16Max = 8000
)

func encodeFrame(f *camera.Frame, quality int) ([]byte, error) {
	if f == nil || !f.OK {
		return nil, fmt.Errorf("frame not captured")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	switch f.Format {
	case camera.FormatJPEG:
		return f.Data, nil
	case camera.FormatRGB24:
		img, err := imgutil.DecodeRGB(f.Data, f.Width, f.Height)
		if err != nil {
			return nil, err
		}
		return imgutil.EncodeJPEGBytes(img, quality)
	case camera.FormatGray16:
		img, err := imgutil.DecodeGray16(f.Data, f.Width, f.Height, gray16Max)
		if err != nil {
			return nil, err
		}
		return imgutil.EncodeJPEGBytes(img, quality)
	}

	return nil, fmt.Errorf("unsupported frame format %s", f.Format)
}
