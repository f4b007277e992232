package detectors

import (
	"context"

	"github.com/sannux/pixelguard/internal/models"
)

// ObjectDetector locates known object classes in an image. Implementations
// return one entry per detected class with all instance bounding boxes in
// pixel space.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, imageBytes []byte, width, height int) ([]models.DetectedObject, error)
}

// FaceDetector locates faces in an image and returns their pixel-space
// bounding boxes. An empty slice means no faces.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageBytes []byte, width, height int) ([]models.Coordinate, error)
}

// NSFWClassifier decides whether an image contains explicit content.
type NSFWClassifier interface {
	IsExplicit(ctx context.Context, imageBytes []byte) (bool, error)
}
