package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sannux/pixelguard/internal/metrics"
	"github.com/sannux/pixelguard/internal/qrcode"
)

const maxUploadBytes = int64(10 * 1024 * 1024)

// phishingKeywords flag a free-text LLM verdict as malicious.
var phishingKeywords = []string{"phishing", "malicious"}

// AnalyzeAPI handles the image analysis endpoints.
type AnalyzeAPI struct {
	processor ImageProcessor
	decoder   qrcode.Decoder
	textLLM   TextAnalyzer
	logger    log.Interface
	timeout   time.Duration
}

// NewAnalyzeAPI creates the analysis API handler. Timeout bounds each
// request's detection work and defaults to 60s.
func NewAnalyzeAPI(processor ImageProcessor, decoder qrcode.Decoder, textLLM TextAnalyzer, logger log.Interface, timeout time.Duration) *AnalyzeAPI {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnalyzeAPI{
		processor: processor,
		decoder:   decoder,
		textLLM:   textLLM,
		logger:    logger,
		timeout:   timeout,
	}
}

// RegisterRoutes registers the analysis routes.
func (api *AnalyzeAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api", corsMiddleware(api.handleAnalyze))
	mux.HandleFunc("/extension", corsMiddleware(api.handleExtension))
	mux.HandleFunc("/process_qr_with_gpt", corsMiddleware(api.handleProcessQR))
}

// handleAnalyze runs the full detection pipeline. Top-level failures are
// reported in-band as {"error": ...} with a 200 status so browser clients
// always get a JSON body to render.
func (api *AnalyzeAPI) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("api"))
	defer timer.ObserveDuration()

	imageData, logger, ok := api.readUpload(w, r, "api")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.timeout)
	defer cancel()

	result, err := api.processor.ProcessImage(ctx, imageData)
	if err != nil {
		logger.WithError(err).Warn("image processing failed")
		metrics.ImagesProcessed.WithLabelValues("api", "error").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	metrics.ImagesProcessed.WithLabelValues("api", "ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

// handleExtension runs the lightweight object + QR pipeline and reports a
// coarse exposure tier.
func (api *AnalyzeAPI) handleExtension(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("extension"))
	defer timer.ObserveDuration()

	imageData, logger, ok := api.readUpload(w, r, "extension")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.timeout)
	defer cancel()

	tier, err := api.processor.ProcessExtension(ctx, imageData)
	if err != nil {
		logger.WithError(err).Warn("extension processing failed")
		metrics.ImagesProcessed.WithLabelValues("extension", "error").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	metrics.ImagesProcessed.WithLabelValues("extension", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{
		"Vulnerable": string(tier),
	})
}

// handleProcessQR decodes a QR payload and asks the LLM for a free-text
// phishing verdict on it. The malicious flag comes from a keyword match on
// the reply, not from the structured analyzer.
func (api *AnalyzeAPI) handleProcessQR(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("process_qr_with_gpt"))
	defer timer.ObserveDuration()

	imageData, logger, ok := api.readUpload(w, r, "process_qr_with_gpt")
	if !ok {
		return
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		metrics.ImagesProcessed.WithLabelValues("process_qr_with_gpt", "error").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"error": fmt.Sprintf("decode image: %v", err)})
		return
	}

	content, found, err := api.decoder.Decode(img)
	if err != nil {
		logger.WithError(err).Warn("qr decode failed")
		metrics.ImagesProcessed.WithLabelValues("process_qr_with_gpt", "error").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		metrics.ImagesProcessed.WithLabelValues("process_qr_with_gpt", "ok").Inc()
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "No QR code detected.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Analyze this content decoded from a QR code for phishing or malicious intent: %q. "+
			"Respond with a short assessment and state clearly whether it is phishing, malicious, or safe.",
		content,
	)
	reply, err := api.textLLM.AnalyzeText(ctx, prompt)
	if err != nil {
		logger.WithError(err).Warn("llm phishing analysis failed")
		metrics.ImagesProcessed.WithLabelValues("process_qr_with_gpt", "error").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	metrics.ImagesProcessed.WithLabelValues("process_qr_with_gpt", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"qr_details": map[string]interface{}{
			"content":      content,
			"is_malicious": replyFlagsMalicious(reply),
		},
		"gpt_analysis": reply,
	})
}

// readUpload reads and validates the multipart "file" field. On failure it
// writes the in-band error response and returns ok=false.
func (api *AnalyzeAPI) readUpload(w http.ResponseWriter, r *http.Request, endpoint string) ([]byte, log.Interface, bool) {
	logger := api.logger.WithFields(log.Fields{
		"endpoint":   endpoint,
		"request_id": uuid.NewString(),
	})

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, logger, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "invalid upload payload"})
		return nil, logger, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "image file is required"})
		return nil, logger, false
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "failed to read image"})
		return nil, logger, false
	}

	contentType, ok := detectAllowedImageContentType(imageData)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"error": "unsupported image type"})
		return nil, logger, false
	}

	logger.WithFields(log.Fields{
		"content_type": contentType,
		"bytes":        len(imageData),
	}).Info("image upload received")

	return imageData, logger, true
}

func replyFlagsMalicious(reply string) bool {
	lower := strings.ToLower(reply)
	for _, keyword := range phishingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
