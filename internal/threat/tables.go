package threat

import "regexp"

// Fixed lookup tables used by the analyzer. They are configuration data
// built once at init and never mutated afterwards.

// shortenerDomains are registrable domains of known URL shortening services.
var shortenerDomains = map[string]struct{}{
	"bit.ly":        {},
	"tinyurl.com":   {},
	"t.co":          {},
	"goo.gl":        {},
	"tiny.cc":       {},
	"ow.ly":         {},
	"is.gd":         {},
	"buff.ly":       {},
	"adf.ly":        {},
	"bitly.com":     {},
	"rebrand.ly":    {},
	"cutt.ly":       {},
	"shorturl.at":   {},
	"tiny.one":      {},
	"rotf.lol":      {},
	"shorturl.asia": {},
}

// safeDomains is the allow-list of well-known registrable domains. Absence
// from this list raises the risk floor to MEDIUM but never lowers risk set
// by other rules.
var safeDomains = map[string]struct{}{
	"google.com":         {},
	"microsoft.com":      {},
	"apple.com":          {},
	"amazon.com":         {},
	"github.com":         {},
	"facebook.com":       {},
	"instagram.com":      {},
	"twitter.com":        {},
	"linkedin.com":       {},
	"pinterest.com":      {},
	"reddit.com":         {},
	"tiktok.com":         {},
	"snapchat.com":       {},
	"youtube.com":        {},
	"whatsapp.com":       {},
	"bbc.com":            {},
	"cnn.com":            {},
	"nytimes.com":        {},
	"theguardian.com":    {},
	"reuters.com":        {},
	"bloomberg.com":      {},
	"aljazeera.com":      {},
	"forbes.com":         {},
	"npr.org":            {},
	"washingtonpost.com": {},
	"wikipedia.org":      {},
	"netflix.com":        {},
	"spotify.com":        {},
	"stackoverflow.com":  {},
	"dropbox.com":        {},
}

// suspiciousPattern pairs a compiled pattern with the description reported
// in its signal.
type suspiciousPattern struct {
	re          *regexp.Regexp
	description string
}

// suspiciousPatterns match executable payloads, script-capable URL schemes
// and credential/banking/wallet phishing bait.
var suspiciousPatterns = []suspiciousPattern{
	{regexp.MustCompile(`(?i)\.exe$`), "executable file extension"},
	{regexp.MustCompile(`(?i)\.bat$`), "batch file extension"},
	{regexp.MustCompile(`(?i)\.ps1$`), "powershell script extension"},
	{regexp.MustCompile(`(?i)phish`), "phishing keyword"},
	{regexp.MustCompile(`(?i)login`), "login keyword"},
	{regexp.MustCompile(`(?i)password`), "password keyword"},
	{regexp.MustCompile(`(?i)bank`), "banking keyword"},
	{regexp.MustCompile(`(?i)wallet`), "crypto wallet keyword"},
	{regexp.MustCompile(`(?i)data:text/html`), "HTML data URL"},
	{regexp.MustCompile(`(?i)javascript:`), "javascript protocol"},
	{regexp.MustCompile(`(?i)^file:`), "file protocol"},
}
