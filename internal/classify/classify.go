package classify

import (
	"strings"

	"github.com/sannux/pixelguard/internal/models"
)

// nsfwKeywords are matched against the lower-cased, concatenated reasons of
// an LLM threat report. A keyword hit alone is never conclusive.
var nsfwKeywords = []string{
	"explicit",
	"nudity",
	"nude",
	"sexual",
	"pornographic",
	"violence",
	"violent",
	"injury",
	"blood",
	"gore",
	"deceased",
}

// moderateClasses and highClasses map detected-object class names to
// exposure tiers. Matching is case-insensitive on the class name.
var moderateClasses = map[string]struct{}{
	"license plate": {},
	"car plate":     {},
	"knife":         {},
}

var highClasses = map[string]struct{}{
	"id card":            {},
	"credit card":        {},
	"house number plate": {},
}

// IsNSFW reports whether an LLM threat report flags explicit content. All
// three conditions must hold: a keyword hit in the reasons text, a HIGH
// threat level, and a threat score of at least 90. Requiring all three keeps
// incidental keyword use in an otherwise benign report from tripping the
// flag.
func IsNSFW(report *models.ThreatReport) bool {
	if report == nil {
		return false
	}
	if report.ThreatLevel != "HIGH" || report.ThreatScore < 90 {
		return false
	}

	reasons := strings.ToLower(strings.Join(report.Reasons, " "))
	for _, keyword := range nsfwKeywords {
		if strings.Contains(reasons, keyword) {
			return true
		}
	}

	return false
}

// Classify maps detected-object classes plus the QR malicious flag to an
// exposure tier. The result is the maximum tier any rule triggers, so High
// wins regardless of evaluation order.
func Classify(objectClasses []string, qrMalicious bool) models.VulnerabilityTier {
	tier := models.TierLow

	for _, class := range objectClasses {
		name := strings.ToLower(strings.TrimSpace(class))
		if _, ok := highClasses[name]; ok {
			tier = tier.Max(models.TierHigh)
			continue
		}
		if _, ok := moderateClasses[name]; ok {
			tier = tier.Max(models.TierModerate)
		}
	}

	if qrMalicious {
		tier = tier.Max(models.TierHigh)
	}

	return tier
}
