package metadata

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/sannux/pixelguard/internal/models"
)

// Extractor pulls privacy-sensitive metadata out of an uploaded image.
type Extractor interface {
	Extract(imageBytes []byte) (*models.ImageMetadata, error)
}

// ExifExtractor reads the EXIF block of JPEG/TIFF uploads.
type ExifExtractor struct{}

// NewExifExtractor creates an EXIF-based extractor.
func NewExifExtractor() *ExifExtractor {
	return &ExifExtractor{}
}

// Extract returns the device, owner and location fields present in the
// image's EXIF block. Images without EXIF data return (nil, nil); that is
// the common case for screenshots and stripped uploads, not a failure.
func (e *ExifExtractor) Extract(imageBytes []byte) (*models.ImageMetadata, error) {
	x, err := exif.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, nil
	}

	meta := &models.ImageMetadata{
		Model:        tagString(x, exif.Model),
		OwnerName:    tagString(x, exif.Artist),
		SoftwareUsed: tagString(x, exif.Software),
	}

	if lat, long, err := x.LatLong(); err == nil {
		meta.Geolocation = &models.GeoPoint{
			Latitude:  lat,
			Longitude: long,
		}
	}

	if meta.Model == "" && meta.OwnerName == "" && meta.SoftwareUsed == "" && meta.Geolocation == nil {
		return nil, nil
	}

	return meta, nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return value
}
