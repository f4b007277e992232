package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/sannux/pixelguard/internal/models"
	"github.com/sannux/pixelguard/internal/testutil"
)

type fakeObjects struct {
	objects []models.DetectedObject
	err     error
}

func (f *fakeObjects) DetectObjects(ctx context.Context, imageBytes []byte, width, height int) ([]models.DetectedObject, error) {
	return f.objects, f.err
}

type fakeFaces struct {
	faces []models.Coordinate
	err   error
}

func (f *fakeFaces) DetectFaces(ctx context.Context, imageBytes []byte, width, height int) ([]models.Coordinate, error) {
	return f.faces, f.err
}

type fakeNSFW struct {
	explicit bool
	err      error
	panics   bool
}

func (f *fakeNSFW) IsExplicit(ctx context.Context, imageBytes []byte) (bool, error) {
	if f.panics {
		panic("classifier crashed")
	}
	return f.explicit, f.err
}

type fakeQR struct {
	assessment *models.QRAssessment
	err        error
}

func (f *fakeQR) Evaluate(ctx context.Context, img image.Image) (*models.QRAssessment, error) {
	return f.assessment, f.err
}

type fakeMetadata struct {
	meta *models.ImageMetadata
	err  error
}

func (f *fakeMetadata) Extract(imageBytes []byte) (*models.ImageMetadata, error) {
	return f.meta, f.err
}

type fakeLLM struct {
	report *models.ThreatReport
	err    error
}

func (f *fakeLLM) AnalyzeImage(ctx context.Context, imageBytes []byte) (*models.ThreatReport, error) {
	return f.report, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func newOrchestrator(cfg Config) *Orchestrator {
	if cfg.Objects == nil {
		cfg.Objects = &fakeObjects{}
	}
	if cfg.Faces == nil {
		cfg.Faces = &fakeFaces{}
	}
	if cfg.NSFW == nil {
		cfg.NSFW = &fakeNSFW{}
	}
	if cfg.QR == nil {
		cfg.QR = &fakeQR{}
	}
	if cfg.Metadata == nil {
		cfg.Metadata = &fakeMetadata{}
	}
	if cfg.LLM == nil {
		cfg.LLM = &fakeLLM{}
	}
	cfg.Logger = testutil.NullLogger()
	return New(cfg)
}

func TestProcessImage_MergesResults(t *testing.T) {
	qr := &models.QRAssessment{
		Content:        "https://github.com/foo",
		RiskLevel:      models.RiskLow,
		Recommendation: models.RecommendationAllow,
	}
	meta := &models.ImageMetadata{Model: "Pixel 9"}
	report := &models.ThreatReport{ThreatLevel: "LOW"}

	o := newOrchestrator(Config{
		Objects:  &fakeObjects{objects: []models.DetectedObject{{Object: "Dog"}}},
		Faces:    &fakeFaces{faces: []models.Coordinate{{X: 1, Y: 2, Width: 3, Height: 4}}},
		NSFW:     &fakeNSFW{explicit: false},
		QR:       &fakeQR{assessment: qr},
		Metadata: &fakeMetadata{meta: meta},
		LLM:      &fakeLLM{report: report},
	})

	result, err := o.ProcessImage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}

	if len(result.DetectedObjects) != 2 {
		t.Fatalf("expected detected objects plus merged face entry, got %v", result.DetectedObjects)
	}
	face := result.DetectedObjects[1]
	if face.Object != "Face" || len(face.Coordinates) != 1 {
		t.Errorf("merged face entry = %+v", face)
	}
	if result.QRAssessment != qr {
		t.Error("QR assessment not carried through")
	}
	if result.Metadata != meta {
		t.Error("metadata not carried through")
	}
	if result.LLMReport != report {
		t.Error("LLM report not carried through")
	}
	if result.NSFW {
		t.Error("NSFW must be false when classifier and combiner both pass")
	}
	if result.TaskErrors != nil {
		t.Errorf("unexpected task errors: %v", result.TaskErrors)
	}
}

func TestProcessImage_NoFacesNoMergedEntry(t *testing.T) {
	o := newOrchestrator(Config{
		Objects: &fakeObjects{objects: []models.DetectedObject{{Object: "Dog"}}},
		Faces:   &fakeFaces{faces: nil},
	})

	result, err := o.ProcessImage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}

	if len(result.DetectedObjects) != 1 {
		t.Fatalf("empty face result must not be merged, got %v", result.DetectedObjects)
	}
}

func TestProcessImage_NSFWFailureIsolated(t *testing.T) {
	qr := &models.QRAssessment{RiskLevel: models.RiskLow}

	o := newOrchestrator(Config{
		Objects:  &fakeObjects{objects: []models.DetectedObject{{Object: "Dog"}}},
		Faces:    &fakeFaces{faces: []models.Coordinate{{X: 1}}},
		NSFW:     &fakeNSFW{err: errors.New("service unavailable")},
		QR:       &fakeQR{assessment: qr},
		Metadata: &fakeMetadata{meta: &models.ImageMetadata{Model: "X"}},
		LLM:      &fakeLLM{report: &models.ThreatReport{ThreatLevel: "LOW"}},
	})

	result, err := o.ProcessImage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("a single task failure must not fail the call, got %v", err)
	}

	if _, ok := result.TaskErrors["nsfw_classification"]; !ok {
		t.Errorf("expected nsfw task error recorded, got %v", result.TaskErrors)
	}
	if len(result.DetectedObjects) != 2 {
		t.Errorf("sibling results must survive, got %v", result.DetectedObjects)
	}
	if result.QRAssessment == nil || result.Metadata == nil || result.LLMReport == nil {
		t.Error("sibling results must be present and well-formed")
	}
	if result.NSFW {
		t.Error("failed classifier must not flag NSFW on its own")
	}
}

func TestProcessImage_PanicCaptured(t *testing.T) {
	o := newOrchestrator(Config{
		NSFW: &fakeNSFW{panics: true},
	})

	result, err := o.ProcessImage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("a panicking task must not fail the call, got %v", err)
	}

	if _, ok := result.TaskErrors["nsfw_classification"]; !ok {
		t.Errorf("expected panic recorded as task error, got %v", result.TaskErrors)
	}
}

func TestProcessImage_CombinerFlagsNSFW(t *testing.T) {
	report := &models.ThreatReport{
		ThreatLevel: "HIGH",
		ThreatScore: 95,
		Reasons:     []string{"Explicit content detected."},
	}

	o := newOrchestrator(Config{
		NSFW: &fakeNSFW{explicit: false},
		LLM:  &fakeLLM{report: report},
	})

	result, err := o.ProcessImage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if !result.NSFW {
		t.Error("combiner verdict on the LLM report must flag NSFW")
	}
}

func TestProcessImage_UndecodableImage(t *testing.T) {
	o := newOrchestrator(Config{})

	if _, err := o.ProcessImage(context.Background(), []byte("not an image")); err == nil {
		t.Fatal("undecodable upload must fail the call")
	}
}

func TestProcessExtension(t *testing.T) {
	tests := []struct {
		name    string
		objects []models.DetectedObject
		qr      *models.QRAssessment
		want    models.VulnerabilityTier
	}{
		{
			name: "clean image",
			want: models.TierLow,
		},
		{
			name:    "knife detected",
			objects: []models.DetectedObject{{Object: "Knife"}},
			want:    models.TierModerate,
		},
		{
			name: "malicious qr",
			qr: &models.QRAssessment{
				RiskLevel:   models.RiskHigh,
				IsMalicious: true,
			},
			want: models.TierHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(Config{
				Objects: &fakeObjects{objects: tt.objects},
				QR:      &fakeQR{assessment: tt.qr},
			})

			tier, err := o.ProcessExtension(context.Background(), pngBytes(t))
			if err != nil {
				t.Fatalf("ProcessExtension() error = %v", err)
			}
			if tier != tt.want {
				t.Errorf("tier = %v, want %v", tier, tt.want)
			}
		})
	}
}

func TestProcessExtension_ObjectFailureDegrades(t *testing.T) {
	o := newOrchestrator(Config{
		Objects: &fakeObjects{err: errors.New("detector down")},
		QR:      &fakeQR{assessment: &models.QRAssessment{IsMalicious: true, RiskLevel: models.RiskHigh}},
	})

	tier, err := o.ProcessExtension(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("ProcessExtension() error = %v", err)
	}
	if tier != models.TierHigh {
		t.Errorf("tier = %v, want High from the surviving QR verdict", tier)
	}
}
