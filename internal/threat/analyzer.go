package threat

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/apex/log"
	"golang.org/x/net/publicsuffix"

	"github.com/sannux/pixelguard/internal/models"
)

// ChainResolver expands a possibly-shortened URL into its redirect chain.
type ChainResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, models.RedirectChain, error)
}

// Analysis is the outcome of scanning one piece of decoded QR content.
// Content may differ from the input when a shortened URL was expanded: the
// remaining rules run against the final destination.
type Analysis struct {
	Content string
	Signals []models.ThreatSignal
	Level   models.RiskLevel
	Chain   models.RedirectChain
}

// Analyzer inspects decoded QR content for spoofing, reputation, lexical
// and redirect-chain risks. It is stateless; one instance serves all
// requests.
type Analyzer struct {
	resolver ChainResolver
	logger   log.Interface
}

// NewAnalyzer creates an analyzer using the given resolver for shortened
// URLs.
func NewAnalyzer(resolver ChainResolver, logger log.Interface) *Analyzer {
	return &Analyzer{
		resolver: resolver,
		logger:   logger,
	}
}

// Analyze applies every rule to content and folds the collected signal
// severities into one risk level. The fold is monotonic: once a rule
// contributes HIGH no later rule can lower the verdict. A content string
// that does not parse as a URL at all yields UNKNOWN, which is distinct
// from "no risks found" (LOW).
func (a *Analyzer) Analyze(ctx context.Context, content string) Analysis {
	parsed, err := url.Parse(content)
	if err != nil {
		return Analysis{
			Content: content,
			Signals: []models.ThreatSignal{{
				Description: fmt.Sprintf("error analyzing URL: %v", err),
				Severity:    models.RiskUnknown,
			}},
			Level: models.RiskUnknown,
		}
	}

	// Non-URL payloads (plain text, wifi configs, vcards) carry no URL
	// risk surface.
	if parsed.Scheme == "" {
		return Analysis{Content: content, Level: models.RiskLow}
	}

	var signals []models.ThreatSignal
	var chain models.RedirectChain

	// Shortener expansion first: all later rules must see the real
	// destination, not the shortener's vanity host.
	if _, ok := shortenerDomains[registrableDomain(parsed.Hostname())]; ok {
		finalURL, resolved, err := a.resolver.Resolve(ctx, content)
		if err != nil {
			signals = append(signals, models.ThreatSignal{
				Description: fmt.Sprintf("error resolving shortened URL: %v", err),
				Severity:    models.RiskHigh,
			})
		} else {
			chain = resolved
			signals = append(signals, chainAnomalies(resolved)...)
			signals = append(signals, models.ThreatSignal{
				Description: "URL redirect chain: " + strings.Join(resolved, " -> "),
				Severity:    models.RiskLow,
			})
			if finalURL != "" {
				content = finalURL
				if final, err := url.Parse(finalURL); err == nil {
					parsed = final
				}
			}
		}
	}

	host := parsed.Hostname()
	domain := registrableDomain(host)

	if containsConfusables(content) {
		signals = append(signals, models.ThreatSignal{
			Description: "URL contains visually similar characters (homoglyphs)",
			Severity:    models.RiskMedium,
		})
	}

	if _, ok := safeDomains[domain]; !ok {
		signals = append(signals, models.ThreatSignal{
			Description: fmt.Sprintf("unknown domain: %s", domain),
			Severity:    models.RiskMedium,
		})
	}

	if isHomographAttack(host) {
		signals = append(signals, models.ThreatSignal{
			Description: fmt.Sprintf("suspicious homograph attack detected in domain: %s", domain),
			Severity:    models.RiskHigh,
		})
	}

	for _, p := range suspiciousPatterns {
		if p.re.MatchString(content) {
			signals = append(signals, models.ThreatSignal{
				Description: fmt.Sprintf("suspicious pattern found: %s", p.description),
				Severity:    models.RiskHigh,
			})
		}
	}

	if decoded, err := url.PathUnescape(content); err == nil && decoded != content {
		signals = append(signals, models.ThreatSignal{
			Description: "URL contains encoded characters",
			Severity:    models.RiskMedium,
		})
	}

	if subdomainLabels(host, domain) > 3 {
		signals = append(signals, models.ThreatSignal{
			Description: "suspicious number of subdomains",
			Severity:    models.RiskHigh,
		})
	}

	level := models.MaxSeverity(models.RiskLow, signals)
	a.logger.WithFields(log.Fields{
		"risk_level": string(level),
		"signals":    len(signals),
	}).Debug("content analyzed")

	return Analysis{
		Content: content,
		Signals: signals,
		Level:   level,
		Chain:   chain,
	}
}

// chainAnomalies inspects a resolved redirect chain. Mixed schemes and
// many distinct country-code suffixes are high-risk on their own; a long
// chain is only reported descriptively.
func chainAnomalies(chain models.RedirectChain) []models.ThreatSignal {
	var signals []models.ThreatSignal

	if len(chain) > 3 {
		signals = append(signals, models.ThreatSignal{
			Description: fmt.Sprintf("suspicious number of redirects: %d", len(chain)),
			Severity:    models.RiskLow,
		})
	}

	hasHTTP := false
	hasHTTPS := false
	suffixes := map[string]struct{}{}
	for _, hop := range chain {
		if strings.HasPrefix(hop, "http://") {
			hasHTTP = true
		}
		if strings.HasPrefix(hop, "https://") {
			hasHTTPS = true
		}
		if u, err := url.Parse(hop); err == nil && u.Hostname() != "" {
			suffix, _ := publicsuffix.PublicSuffix(strings.ToLower(u.Hostname()))
			suffixes[suffix] = struct{}{}
		}
	}

	if hasHTTP && hasHTTPS {
		signals = append(signals, models.ThreatSignal{
			Description: "mixed HTTP/HTTPS redirects detected",
			Severity:    models.RiskHigh,
		})
	}

	if len(suffixes) > 2 {
		names := make([]string, 0, len(suffixes))
		for s := range suffixes {
			names = append(names, s)
		}
		signals = append(signals, models.ThreatSignal{
			Description: fmt.Sprintf("multiple country domains in redirect chain: %s", strings.Join(names, ", ")),
			Severity:    models.RiskHigh,
		})
	}

	return signals
}

// registrableDomain extracts the eTLD+1 for a host, falling back to the
// bare host when the public suffix list cannot place it.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}

// subdomainLabels counts the labels to the left of the registrable domain.
func subdomainLabels(host, domain string) int {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == domain || domain == "" || !strings.HasSuffix(host, "."+domain) {
		return 0
	}
	sub := strings.TrimSuffix(host, "."+domain)
	return len(strings.Split(sub, "."))
}
