package qrcode

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder extracts a QR payload from an image. found is false when the
// image simply carries no QR code, which is a normal outcome and not an
// error; err is reserved for decode-layer failures.
type Decoder interface {
	Decode(img image.Image) (content string, found bool, err error)
}

// ZXingDecoder decodes QR payloads with the zxing port.
type ZXingDecoder struct {
	reader gozxing.Reader
}

// NewZXingDecoder creates a ready-to-use decoder.
func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{reader: qrcode.NewQRCodeReader()}
}

// Decode scans img for a QR code and returns its text payload.
func (d *ZXingDecoder) Decode(img image.Image) (string, bool, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false, fmt.Errorf("prepare bitmap: %w", err)
	}

	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return "", false, nil
		}
		return "", false, fmt.Errorf("decode qr code: %w", err)
	}

	return result.GetText(), true, nil
}
