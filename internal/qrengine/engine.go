package qrengine

import (
	"context"
	"image"

	"github.com/apex/log"

	"github.com/sannux/pixelguard/internal/models"
	"github.com/sannux/pixelguard/internal/qrcode"
	"github.com/sannux/pixelguard/internal/threat"
)

// Engine composes QR decoding, content analysis and aggregation into a
// single verdict for an image.
type Engine struct {
	decoder  qrcode.Decoder
	analyzer *threat.Analyzer
	logger   log.Interface
}

// New creates a QR content engine.
func New(decoder qrcode.Decoder, analyzer *threat.Analyzer, logger log.Interface) *Engine {
	return &Engine{
		decoder:  decoder,
		analyzer: analyzer,
		logger:   logger,
	}
}

// Evaluate decodes the QR payload from img and assesses it. An image
// without a QR code returns (nil, nil): downstream orchestration treats
// that as a normal low-risk outcome, not a fault. Only a decode-layer
// failure surfaces as an error; malformed-but-decodable content always
// yields an assessment.
func (e *Engine) Evaluate(ctx context.Context, img image.Image) (*models.QRAssessment, error) {
	content, found, err := e.decoder.Decode(img)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	analysis := e.analyzer.Analyze(ctx, content)
	assessment := threat.BuildAssessment(analysis.Content, analysis.Signals, analysis.Level, analysis.Chain)

	e.logger.WithFields(log.Fields{
		"risk_level":   string(assessment.RiskLevel),
		"is_malicious": assessment.IsMalicious,
	}).Info("qr content assessed")

	return &assessment, nil
}
