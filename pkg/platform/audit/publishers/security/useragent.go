package security

import (
	"github.com/mssola/useragent"
)

// NormalizeUserAgent reduces a raw User-Agent header to a short forensic
// summary. Raw headers are unbounded attacker-controlled strings; the
// normalized form is what lands in security events.
func NormalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			return "bot"
		}
		return "bot:" + name
	}

	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	summary := name
	if version != "" {
		summary += "/" + version
	}
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}
