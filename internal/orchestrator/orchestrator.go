package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/apex/log"

	"github.com/sannux/pixelguard/internal/classify"
	"github.com/sannux/pixelguard/internal/detectors"
	"github.com/sannux/pixelguard/internal/metadata"
	"github.com/sannux/pixelguard/internal/metrics"
	"github.com/sannux/pixelguard/internal/models"
)

// QREngine produces a QR verdict for an image, or nil when the image
// carries no QR code.
type QREngine interface {
	Evaluate(ctx context.Context, img image.Image) (*models.QRAssessment, error)
}

// ThreatAnalyzer is the vision LLM collaborator.
type ThreatAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageBytes []byte) (*models.ThreatReport, error)
}

// TaskResult is the envelope for one concurrent detection task. Err is set
// and Value is the zero value on failure; a task never fails silently.
type TaskResult[T any] struct {
	Name  string
	Value T
	Err   error
}

// Result is the merged output of a full image analysis. Individual task
// failures are recorded in TaskErrors instead of failing the whole call.
type Result struct {
	DetectedObjects []models.DetectedObject `json:"detected_objects"`
	QRAssessment    *models.QRAssessment    `json:"qr_details"`
	Metadata        *models.ImageMetadata   `json:"metadata_details"`
	NSFW            bool                    `json:"nsfw_detection"`
	LLMReport       *models.ThreatReport    `json:"llm_response"`
	TaskErrors      map[string]string       `json:"task_errors,omitempty"`
}

// Orchestrator fans an uploaded image out to the detection collaborators
// and merges their results.
type Orchestrator struct {
	objects     detectors.ObjectDetector
	faces       detectors.FaceDetector
	nsfw        detectors.NSFWClassifier
	qr          QREngine
	metadata    metadata.Extractor
	llm         ThreatAnalyzer
	logger      log.Interface
	taskTimeout time.Duration
}

// Config carries the orchestrator's collaborators. All of them are
// required except TaskTimeout, which defaults to 30s.
type Config struct {
	Objects     detectors.ObjectDetector
	Faces       detectors.FaceDetector
	NSFW        detectors.NSFWClassifier
	QR          QREngine
	Metadata    metadata.Extractor
	LLM         ThreatAnalyzer
	Logger      log.Interface
	TaskTimeout time.Duration
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	taskTimeout := cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}
	return &Orchestrator{
		objects:     cfg.Objects,
		faces:       cfg.Faces,
		nsfw:        cfg.NSFW,
		qr:          cfg.QR,
		metadata:    cfg.Metadata,
		llm:         cfg.LLM,
		logger:      cfg.Logger,
		taskTimeout: taskTimeout,
	}
}

// run executes fn in its own goroutine with a per-task timeout and panic
// capture, delivering exactly one TaskResult on the returned channel.
func run[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (T, error)) <-chan TaskResult[T] {
	out := make(chan TaskResult[T], 1)
	go func() {
		defer close(out)

		taskCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result := TaskResult[T]{Name: name}
		defer func() {
			if r := recover(); r != nil {
				var zero T
				result.Value = zero
				result.Err = fmt.Errorf("%s panicked: %v", name, r)
				out <- result
			}
		}()

		result.Value, result.Err = fn(taskCtx)
		out <- result
	}()
	return out
}

// ProcessImage decodes the upload once, dispatches all detection tasks
// concurrently and merges their results. Only an undecodable image fails
// the call; every other failure is isolated to its task.
func (o *Orchestrator) ProcessImage(ctx context.Context, imageBytes []byte) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	objectsCh := run(ctx, "object_detection", o.taskTimeout, func(ctx context.Context) ([]models.DetectedObject, error) {
		return o.objects.DetectObjects(ctx, imageBytes, width, height)
	})
	qrCh := run(ctx, "qr_analysis", o.taskTimeout, func(ctx context.Context) (*models.QRAssessment, error) {
		return o.qr.Evaluate(ctx, img)
	})
	metadataCh := run(ctx, "metadata_extraction", o.taskTimeout, func(ctx context.Context) (*models.ImageMetadata, error) {
		return o.metadata.Extract(imageBytes)
	})
	facesCh := run(ctx, "face_detection", o.taskTimeout, func(ctx context.Context) ([]models.Coordinate, error) {
		return o.faces.DetectFaces(ctx, imageBytes, width, height)
	})
	nsfwCh := run(ctx, "nsfw_classification", o.taskTimeout, func(ctx context.Context) (bool, error) {
		return o.nsfw.IsExplicit(ctx, imageBytes)
	})
	llmCh := run(ctx, "llm_threat_analysis", o.taskTimeout, func(ctx context.Context) (*models.ThreatReport, error) {
		return o.llm.AnalyzeImage(ctx, imageBytes)
	})

	objects := <-objectsCh
	qr := <-qrCh
	meta := <-metadataCh
	faces := <-facesCh
	nsfw := <-nsfwCh
	llm := <-llmCh

	result := &Result{
		DetectedObjects: objects.Value,
		QRAssessment:    qr.Value,
		Metadata:        meta.Value,
		LLMReport:       llm.Value,
		TaskErrors:      map[string]string{},
	}

	o.recordTask(result, objects.Name, objects.Err)
	o.recordTask(result, qr.Name, qr.Err)
	o.recordTask(result, meta.Name, meta.Err)
	o.recordTask(result, faces.Name, faces.Err)
	o.recordTask(result, nsfw.Name, nsfw.Err)
	o.recordTask(result, llm.Name, llm.Err)

	if result.DetectedObjects == nil {
		result.DetectedObjects = []models.DetectedObject{}
	}

	// Faces ride along as one more detected class, but only when the
	// detector actually found some.
	if faces.Err == nil && len(faces.Value) > 0 {
		result.DetectedObjects = append(result.DetectedObjects, models.DetectedObject{
			Object:      "Face",
			Coordinates: faces.Value,
		})
	}

	result.NSFW = (nsfw.Err == nil && nsfw.Value) || classify.IsNSFW(llm.Value)

	if qr.Err == nil && qr.Value != nil {
		metrics.QRAssessments.WithLabelValues(string(qr.Value.RiskLevel)).Inc()
	}
	if len(result.TaskErrors) == 0 {
		result.TaskErrors = nil
	}

	return result, nil
}

// ProcessExtension is the lightweight variant: object detection plus QR
// analysis feeding the vulnerability classifier. Task failures degrade to
// their zero contribution rather than failing the call.
func (o *Orchestrator) ProcessExtension(ctx context.Context, imageBytes []byte) (models.VulnerabilityTier, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	objectsCh := run(ctx, "object_detection", o.taskTimeout, func(ctx context.Context) ([]models.DetectedObject, error) {
		return o.objects.DetectObjects(ctx, imageBytes, width, height)
	})
	qrCh := run(ctx, "qr_analysis", o.taskTimeout, func(ctx context.Context) (*models.QRAssessment, error) {
		return o.qr.Evaluate(ctx, img)
	})

	objects := <-objectsCh
	qr := <-qrCh

	if objects.Err != nil {
		o.taskFailed(objects.Name, objects.Err)
	}
	if qr.Err != nil {
		o.taskFailed(qr.Name, qr.Err)
	}

	classes := make([]string, 0, len(objects.Value))
	for _, obj := range objects.Value {
		classes = append(classes, obj.Object)
	}

	qrMalicious := qr.Err == nil && qr.Value != nil && qr.Value.IsMalicious

	return classify.Classify(classes, qrMalicious), nil
}

func (o *Orchestrator) recordTask(result *Result, name string, err error) {
	if err == nil {
		return
	}
	result.TaskErrors[name] = err.Error()
	o.taskFailed(name, err)
}

func (o *Orchestrator) taskFailed(name string, err error) {
	metrics.DetectionTaskFailures.WithLabelValues(name).Inc()
	o.logger.WithError(err).WithField("task", name).Warn("detection task failed")
}
