package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sannux/pixelguard/internal/models"
	"github.com/sannux/pixelguard/internal/orchestrator"
	"github.com/sannux/pixelguard/internal/testutil"
)

type fakeProcessor struct {
	result *orchestrator.Result
	tier   models.VulnerabilityTier
	err    error
}

func (f *fakeProcessor) ProcessImage(ctx context.Context, imageBytes []byte) (*orchestrator.Result, error) {
	return f.result, f.err
}

func (f *fakeProcessor) ProcessExtension(ctx context.Context, imageBytes []byte) (models.VulnerabilityTier, error) {
	return f.tier, f.err
}

type fakeDecoder struct {
	content string
	found   bool
	err     error
}

func (f *fakeDecoder) Decode(img image.Image) (string, bool, error) {
	return f.content, f.found, f.err
}

type fakeTextLLM struct {
	reply string
	err   error
}

func (f *fakeTextLLM) AnalyzeText(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func newAPI(processor *fakeProcessor, decoder *fakeDecoder, textLLM *fakeTextLLM) *AnalyzeAPI {
	if processor == nil {
		processor = &fakeProcessor{}
	}
	if decoder == nil {
		decoder = &fakeDecoder{}
	}
	if textLLM == nil {
		textLLM = &fakeTextLLM{}
	}
	return NewAnalyzeAPI(processor, decoder, textLLM, testutil.NullLogger(), 5*time.Second)
}

func uploadRequest(t *testing.T, target string, imageData []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(imageData); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return got
}

func TestHandleAnalyze_Success(t *testing.T) {
	api := newAPI(&fakeProcessor{
		result: &orchestrator.Result{
			DetectedObjects: []models.DetectedObject{{Object: "Dog"}},
			NSFW:            false,
		},
	}, nil, nil)

	rec := httptest.NewRecorder()
	api.handleAnalyze(rec, uploadRequest(t, "/api", testPNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody(t, rec)
	if _, ok := got["detected_objects"]; !ok {
		t.Errorf("response missing detected_objects: %v", got)
	}
	if _, ok := got["error"]; ok {
		t.Errorf("unexpected error field: %v", got)
	}
}

func TestHandleAnalyze_ProcessingErrorInBand(t *testing.T) {
	api := newAPI(&fakeProcessor{err: errors.New("decode image: broken")}, nil, nil)

	rec := httptest.NewRecorder()
	api.handleAnalyze(rec, uploadRequest(t, "/api", testPNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("top-level failures are reported in-band with 200, got %d", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["error"] == "" || got["error"] == nil {
		t.Errorf("expected error field, got %v", got)
	}
}

func TestHandleAnalyze_MethodNotAllowed(t *testing.T) {
	api := newAPI(nil, nil, nil)

	rec := httptest.NewRecorder()
	api.handleAnalyze(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleAnalyze_MissingFile(t *testing.T) {
	api := newAPI(nil, nil, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("other", "value")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	api.handleAnalyze(rec, req)

	got := decodeBody(t, rec)
	if got["error"] != "image file is required" {
		t.Errorf("error = %v, want missing file message", got["error"])
	}
}

func TestHandleAnalyze_RejectsNonImageUpload(t *testing.T) {
	api := newAPI(nil, nil, nil)

	rec := httptest.NewRecorder()
	api.handleAnalyze(rec, uploadRequest(t, "/api", []byte("plain text payload")))

	got := decodeBody(t, rec)
	if got["error"] != "unsupported image type" {
		t.Errorf("error = %v, want unsupported image type", got["error"])
	}
}

func TestHandleExtension(t *testing.T) {
	api := newAPI(&fakeProcessor{tier: models.TierModerate}, nil, nil)

	rec := httptest.NewRecorder()
	api.handleExtension(rec, uploadRequest(t, "/extension", testPNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["Vulnerable"] != "Moderate" {
		t.Errorf("Vulnerable = %v, want Moderate", got["Vulnerable"])
	}
}

func TestHandleProcessQR_NoQRCode(t *testing.T) {
	api := newAPI(nil, &fakeDecoder{found: false}, nil)

	rec := httptest.NewRecorder()
	api.handleProcessQR(rec, uploadRequest(t, "/process_qr_with_gpt", testPNG(t)))

	got := decodeBody(t, rec)
	if got["message"] != "No QR code detected." {
		t.Errorf("message = %v, want no-QR message", got["message"])
	}
}

func TestHandleProcessQR_PhishingVerdict(t *testing.T) {
	api := newAPI(nil,
		&fakeDecoder{content: "https://suspicious.example/x", found: true},
		&fakeTextLLM{reply: "This URL is very likely PHISHING."},
	)

	rec := httptest.NewRecorder()
	api.handleProcessQR(rec, uploadRequest(t, "/process_qr_with_gpt", testPNG(t)))

	got := decodeBody(t, rec)
	details, ok := got["qr_details"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing qr_details: %v", got)
	}
	if details["content"] != "https://suspicious.example/x" {
		t.Errorf("content = %v", details["content"])
	}
	if details["is_malicious"] != true {
		t.Errorf("is_malicious = %v, want true for phishing verdict", details["is_malicious"])
	}
	if got["gpt_analysis"] == "" {
		t.Error("gpt_analysis missing")
	}
}

func TestHandleProcessQR_SafeVerdict(t *testing.T) {
	api := newAPI(nil,
		&fakeDecoder{content: "https://github.com/foo", found: true},
		&fakeTextLLM{reply: "This URL appears safe."},
	)

	rec := httptest.NewRecorder()
	api.handleProcessQR(rec, uploadRequest(t, "/process_qr_with_gpt", testPNG(t)))

	got := decodeBody(t, rec)
	details := got["qr_details"].(map[string]interface{})
	if details["is_malicious"] != false {
		t.Errorf("is_malicious = %v, want false for safe verdict", details["is_malicious"])
	}
}

func TestHandleProcessQR_LLMError(t *testing.T) {
	api := newAPI(nil,
		&fakeDecoder{content: "https://x.example", found: true},
		&fakeTextLLM{err: errors.New("api unavailable")},
	)

	rec := httptest.NewRecorder()
	api.handleProcessQR(rec, uploadRequest(t, "/process_qr_with_gpt", testPNG(t)))

	got := decodeBody(t, rec)
	if got["error"] != "api unavailable" {
		t.Errorf("error = %v, want llm error in-band", got["error"])
	}
}
