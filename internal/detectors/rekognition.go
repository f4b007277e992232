package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/sannux/pixelguard/internal/models"
)

// NewRekognitionClient creates a Rekognition client using ambient AWS
// credentials/profile.
func NewRekognitionClient(ctx context.Context, region string) (*rekognition.Client, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{}
	trimmedRegion := strings.TrimSpace(region)
	if trimmedRegion != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(trimmedRegion))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return rekognition.NewFromConfig(cfg), nil
}

// RekognitionObjectDetector runs label detection with byte payloads (no S3
// dependency).
type RekognitionObjectDetector struct {
	client        *rekognition.Client
	minConfidence float32
}

// NewRekognitionObjectDetector creates an object detector; minConfidence
// defaults to 55 when non-positive.
func NewRekognitionObjectDetector(client *rekognition.Client, minConfidence float32) *RekognitionObjectDetector {
	if minConfidence <= 0 {
		minConfidence = 55
	}
	return &RekognitionObjectDetector{
		client:        client,
		minConfidence: minConfidence,
	}
}

// DetectObjects calls Rekognition DetectLabels and groups instance boxes by
// label name, converting the ratio-based boxes to pixel coordinates.
func (d *RekognitionObjectDetector) DetectObjects(ctx context.Context, imageBytes []byte, width, height int) ([]models.DetectedObject, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}

	output, err := d.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &rekognitiontypes.Image{
			Bytes: imageBytes,
		},
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect labels failed: %w", err)
	}

	grouped := map[string][]models.Coordinate{}
	order := []string{}
	for _, label := range output.Labels {
		name := aws.ToString(label.Name)
		if name == "" || len(label.Instances) == 0 {
			continue
		}
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		for _, instance := range label.Instances {
			grouped[name] = append(grouped[name], boxToCoordinate(instance.BoundingBox, width, height))
		}
	}

	objects := make([]models.DetectedObject, 0, len(order))
	for _, name := range order {
		objects = append(objects, models.DetectedObject{
			Object:      name,
			Coordinates: grouped[name],
		})
	}

	return objects, nil
}

// RekognitionFaceDetector runs face detection with byte payloads.
type RekognitionFaceDetector struct {
	client *rekognition.Client
}

// NewRekognitionFaceDetector creates a face detector.
func NewRekognitionFaceDetector(client *rekognition.Client) *RekognitionFaceDetector {
	return &RekognitionFaceDetector{client: client}
}

// DetectFaces calls Rekognition DetectFaces and returns pixel-space boxes.
func (d *RekognitionFaceDetector) DetectFaces(ctx context.Context, imageBytes []byte, width, height int) ([]models.Coordinate, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}

	output, err := d.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &rekognitiontypes.Image{
			Bytes: imageBytes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect faces failed: %w", err)
	}

	faces := make([]models.Coordinate, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		faces = append(faces, boxToCoordinate(detail.BoundingBox, width, height))
	}

	return faces, nil
}

// RekognitionNSFWClassifier folds moderation labels into a single explicit
// content flag.
type RekognitionNSFWClassifier struct {
	client        *rekognition.Client
	minConfidence float32
}

// NewRekognitionNSFWClassifier creates an NSFW classifier; minConfidence
// defaults to 70 when non-positive.
func NewRekognitionNSFWClassifier(client *rekognition.Client, minConfidence float32) *RekognitionNSFWClassifier {
	if minConfidence <= 0 {
		minConfidence = 70
	}
	return &RekognitionNSFWClassifier{
		client:        client,
		minConfidence: minConfidence,
	}
}

// IsExplicit calls Rekognition DetectModerationLabels and reports whether
// any moderation label meets the confidence threshold.
func (d *RekognitionNSFWClassifier) IsExplicit(ctx context.Context, imageBytes []byte) (bool, error) {
	if len(imageBytes) == 0 {
		return false, fmt.Errorf("image bytes are required")
	}

	output, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image: &rekognitiontypes.Image{
			Bytes: imageBytes,
		},
	})
	if err != nil {
		return false, fmt.Errorf("rekognition detect moderation labels failed: %w", err)
	}

	for _, label := range output.ModerationLabels {
		if label.Confidence != nil && *label.Confidence >= d.minConfidence {
			return true, nil
		}
	}

	return false, nil
}

func boxToCoordinate(box *rekognitiontypes.BoundingBox, width, height int) models.Coordinate {
	if box == nil {
		return models.Coordinate{}
	}
	return models.Coordinate{
		X:      int(aws.ToFloat32(box.Left) * float32(width)),
		Y:      int(aws.ToFloat32(box.Top) * float32(height)),
		Width:  int(aws.ToFloat32(box.Width) * float32(width)),
		Height: int(aws.ToFloat32(box.Height) * float32(height)),
	}
}
