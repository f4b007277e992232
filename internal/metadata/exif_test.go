package metadata

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestExtract_NoExifData(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}

	e := NewExifExtractor()
	meta, err := e.Extract(buf.Bytes())

	if err != nil {
		t.Fatalf("an EXIF-less image is not a failure, got %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil metadata for EXIF-less image, got %+v", meta)
	}
}

func TestExtract_GarbageInput(t *testing.T) {
	e := NewExifExtractor()
	meta, err := e.Extract([]byte("definitely not an image"))

	if err != nil {
		t.Fatalf("undecodable input is treated as no metadata, got %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil metadata, got %+v", meta)
	}
}
