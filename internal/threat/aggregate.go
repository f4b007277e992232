package threat

import "github.com/sannux/pixelguard/internal/models"

// BuildAssessment folds an analysis into the final verdict. It is a pure
// mapping: isMalicious holds exactly when the level is HIGH, the
// recommendation follows the level, and the signal list is carried through
// in detection order with nothing dropped.
func BuildAssessment(content string, signals []models.ThreatSignal, level models.RiskLevel, chain models.RedirectChain) models.QRAssessment {
	return models.QRAssessment{
		Content:        content,
		RiskLevel:      level,
		IsMalicious:    level == models.RiskHigh,
		Recommendation: models.RecommendationFor(level),
		Signals:        signals,
		RedirectChain:  chain,
	}
}
