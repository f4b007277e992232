package models

// RiskLevel is an ordinal threat severity. Levels compare as
// UNKNOWN < LOW < MEDIUM < HIGH; combining two levels always takes the
// maximum, so a later rule can never lower a verdict.
type RiskLevel string

const (
	RiskUnknown RiskLevel = "UNKNOWN"
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
)

var riskRank = map[RiskLevel]int{
	RiskUnknown: 0,
	RiskLow:     1,
	RiskMedium:  2,
	RiskHigh:    3,
}

// Rank returns the ordinal position of the level. Unrecognized values rank
// the same as UNKNOWN.
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// Max returns the more severe of the two levels.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.Rank() > r.Rank() {
		return other
	}
	return r
}

// AtLeast reports whether the level is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// Recommendation is the action suggested to the caller for a QR verdict.
type Recommendation string

const (
	RecommendationAllow Recommendation = "ALLOW"
	RecommendationWarn  Recommendation = "WARN"
	RecommendationBlock Recommendation = "BLOCK"
)

// RecommendationFor maps a risk level to a recommendation: BLOCK for HIGH,
// WARN for MEDIUM, ALLOW otherwise (LOW and UNKNOWN).
func RecommendationFor(level RiskLevel) Recommendation {
	switch level {
	case RiskHigh:
		return RecommendationBlock
	case RiskMedium:
		return RecommendationWarn
	default:
		return RecommendationAllow
	}
}

// ThreatSignal is a single human-readable finding with the severity it
// contributes. Signals are accumulated in detection order and never mutated.
type ThreatSignal struct {
	Description string    `json:"description"`
	Severity    RiskLevel `json:"severity"`
}

// MaxSeverity folds a signal list into the most severe contribution,
// starting from floor. An empty list returns floor unchanged.
func MaxSeverity(floor RiskLevel, signals []ThreatSignal) RiskLevel {
	level := floor
	for _, s := range signals {
		level = level.Max(s.Severity)
	}
	return level
}

// RedirectChain is the ordered sequence of URLs visited while resolving a
// starting URL; the first element is the original input.
type RedirectChain []string

// QRAssessment is the verdict for a decoded QR payload. It is constructed
// once per request by the aggregator and immutable afterwards.
type QRAssessment struct {
	Content        string         `json:"content"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	IsMalicious    bool           `json:"is_malicious"`
	Recommendation Recommendation `json:"recommendation"`
	Signals        []ThreatSignal `json:"signals"`
	RedirectChain  RedirectChain  `json:"redirect_chain,omitempty"`
}

// VulnerabilityTier is the coarse exposure tier reported by the extension
// endpoint. Derived, never stored.
type VulnerabilityTier string

const (
	TierLow      VulnerabilityTier = "Low"
	TierModerate VulnerabilityTier = "Moderate"
	TierHigh     VulnerabilityTier = "High"
)

var tierRank = map[VulnerabilityTier]int{
	TierLow:      0,
	TierModerate: 1,
	TierHigh:     2,
}

// Max returns the higher of the two tiers.
func (t VulnerabilityTier) Max(other VulnerabilityTier) VulnerabilityTier {
	if tierRank[other] > tierRank[t] {
		return other
	}
	return t
}
