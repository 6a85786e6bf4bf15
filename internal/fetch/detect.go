package fetch

import (
	"regexp"
	"strings"
)

// DynamicSignal identifies why a static fetch was judged insufficient.
type DynamicSignal string

const (
	SignalNone             DynamicSignal = ""
	SignalEmptyBody        DynamicSignal = "empty_body"
	SignalSPAShell         DynamicSignal = "spa_shell"
	SignalThinContent      DynamicSignal = "thin_content"
	SignalNoProductSignals DynamicSignal = "no_product_signals"
)

// Detection is the result of inspecting static HTML for dynamic-content
// indicators.
type Detection struct {
	// Dynamic is true when the static HTML is unlikely to contain the
	// page's real content and a rendered fetch should be attempted.
	Dynamic bool

	// Signal identifies the strongest indicator found.
	Signal DynamicSignal

	// Description provides a human-readable explanation.
	Description string
}

// Detector inspects static HTML responses and decides whether the page
// needs browser rendering before extraction.
type Detector struct {
	// MinTextBytes is the visible-text size below which a page is
	// considered suspiciously thin.
	MinTextBytes int

	// ScriptRatio is the share of the document occupied by script tags
	// above which a thin page is assumed to be client-rendered.
	ScriptRatio float64
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(minTextBytes int, scriptRatio float64) *Detector {
	return &Detector{
		MinTextBytes: minTextBytes,
		ScriptRatio:  scriptRatio,
	}
}

var (
	// SPA framework shells - empty root elements mean the content is
	// JavaScript-rendered.
	spaRootPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<div\s+id=["'](?:root|app|__next|__nuxt)["'][^>]*>\s*</div>`),
		regexp.MustCompile(`<app-root[^>]*>\s*</app-root>`),
		regexp.MustCompile(`<div\s+id=["']react-root["'][^>]*>\s*</div>`),
	}

	scriptTagRegex  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTagRegex   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptRegex   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// Signals that the static HTML already carries product data, so a
	// rendered fetch would buy nothing.
	jsonLDOfferRegex = regexp.MustCompile(`(?is)<script[^>]+application/ld\+json[^>]*>.*?("@type"\s*:\s*"(?:Product|Offer|AggregateOffer)"|"offers"\s*:).*?</script>`)
	ogProductRegex   = regexp.MustCompile(`(?i)<meta[^>]+(?:property|name)=["'](?:og:type["'][^>]+content=["'][^"']*product|product:price|og:price)`)
	priceTokenRegex  = regexp.MustCompile(`(?:[$€£¥]\s?\d[\d.,]*|\d[\d.,]*\s?(?:USD|EUR|GBP|JPY))`)
	priceClassRegex  = regexp.MustCompile(`(?i)(?:class|id|itemprop)=["'][^"']*price`)
)

// Detect inspects static HTML and reports whether a rendered fetch is
// warranted. Pages that already expose product signals (JSON-LD offers,
// Open Graph product meta, visible price tokens) never escalate.
func (d *Detector) Detect(html string) Detection {
	if strings.TrimSpace(html) == "" {
		return Detection{
			Dynamic:     true,
			Signal:      SignalEmptyBody,
			Description: "response body is empty",
		}
	}

	if d.hasProductSignals(html) {
		return Detection{Dynamic: false}
	}

	for _, pattern := range spaRootPatterns {
		if pattern.MatchString(html) {
			return Detection{
				Dynamic:     true,
				Signal:      SignalSPAShell,
				Description: "client-rendered shell with empty root element",
			}
		}
	}

	textBytes := d.visibleTextBytes(html)
	if textBytes < d.MinTextBytes {
		if d.scriptShare(html) >= d.ScriptRatio {
			return Detection{
				Dynamic:     true,
				Signal:      SignalThinContent,
				Description: "little visible text and a script-heavy document",
			}
		}
		return Detection{
			Dynamic:     true,
			Signal:      SignalNoProductSignals,
			Description: "little visible text and no product signals",
		}
	}

	return Detection{Dynamic: false}
}

// hasProductSignals reports whether the HTML already carries machine- or
// human-readable product data.
func (d *Detector) hasProductSignals(html string) bool {
	if jsonLDOfferRegex.MatchString(html) {
		return true
	}
	if ogProductRegex.MatchString(html) {
		return true
	}
	if priceClassRegex.MatchString(html) {
		return true
	}
	// Price tokens inside scripts don't count as visible signals.
	stripped := scriptTagRegex.ReplaceAllString(html, "")
	return priceTokenRegex.MatchString(stripped)
}

// visibleTextBytes measures the text a user would see, excluding
// script, style, and noscript content.
func (d *Detector) visibleTextBytes(html string) int {
	cleaned := scriptTagRegex.ReplaceAllString(html, "")
	cleaned = styleTagRegex.ReplaceAllString(cleaned, "")
	cleaned = noscriptRegex.ReplaceAllString(cleaned, "")

	text := htmlTagRegex.ReplaceAllString(cleaned, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return len(strings.TrimSpace(text))
}

// scriptShare returns the fraction of the document occupied by script
// tags and their bodies.
func (d *Detector) scriptShare(html string) float64 {
	if len(html) == 0 {
		return 0
	}
	scriptBytes := 0
	for _, m := range scriptTagRegex.FindAllString(html, -1) {
		scriptBytes += len(m)
	}
	return float64(scriptBytes) / float64(len(html))
}
