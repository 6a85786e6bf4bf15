package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

var (
	priceTextRegex         = regexp.MustCompile(`[$€£¥]\s?\d[\d.,]*|\d[\d.,]*\s?(?:USD|EUR|GBP|JPY)`)
	stockPhraseRegex       = regexp.MustCompile(`(?i)\b(out of stock|sold out|back[- ]?order(?:ed)?|pre[- ]?order|low stock|in stock)\b`)
	addToCartRegex         = regexp.MustCompile(`(?i)add[\s-]?to[\s-]?(?:cart|bag|basket)|buy[\s-]?now|purchase`)
	placeholderOptionRegex = regexp.MustCompile(`(?i)^(select|choose|pick|--|—)`)
	nonOptionControlRegex  = regexp.MustCompile(`(?i)qty|quantity|currency|country|lang|locale|sort|search|ship|newsletter`)
	bracketNameRegex       = regexp.MustCompile(`\[([^\]]+)\]$`)
)

// domStrategy scrapes visible markup when no structured data is
// present: page title, option selects, radio groups, swatches, and
// price-looking elements.
type domStrategy struct{}

func (s *domStrategy) Name() string { return "dom" }

func (s *domStrategy) Identity(doc *Document) identityCandidate {
	cand := identityCandidate{}
	if h1 := strings.TrimSpace(doc.dom.Find("h1").First().Text()); h1 != "" {
		cand.title = h1
	} else if t := strings.TrimSpace(doc.dom.Find("title").First().Text()); t != "" {
		cand.title = t
	}
	doc.dom.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		src = strings.TrimSpace(src)
		low := strings.ToLower(src)
		if src == "" || strings.HasPrefix(low, "data:") ||
			strings.Contains(low, "logo") || strings.Contains(low, "icon") || strings.Contains(low, "sprite") {
			return true
		}
		cand.images = []string{src}
		return false
	})
	return cand
}

// Variants reads option pickers. Each select option, radio button, or
// swatch becomes its own single-attribute candidate; pickers are not
// cross-multiplied.
func (s *domStrategy) Variants(doc *Document) []VariantCandidate {
	var out []VariantCandidate

	doc.dom.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := optionControlName(sel, doc)
		if nonOptionControlRegex.MatchString(name) {
			return
		}
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			text := strings.TrimSpace(opt.Text())
			if text == "" {
				text = strings.TrimSpace(opt.AttrOr("value", ""))
			}
			if text == "" || placeholderOptionRegex.MatchString(text) {
				return
			}
			out = append(out, VariantCandidate{Attributes: map[string]string{name: text}})
		})
	})

	radios := map[string][]string{}
	doc.dom.Find(`input[type="radio"]`).Each(func(_ int, radio *goquery.Selection) {
		name, _ := radio.Attr("name")
		if name == "" || nonOptionControlRegex.MatchString(name) {
			return
		}
		value := strings.TrimSpace(radio.AttrOr("value", ""))
		if value == "" {
			if id, ok := radio.Attr("id"); ok {
				value = strings.TrimSpace(doc.dom.Find(`label[for="` + id + `"]`).First().Text())
			}
		}
		if value == "" {
			return
		}
		key := name
		if m := bracketNameRegex.FindStringSubmatch(name); m != nil {
			key = m[1]
		}
		radios[key] = append(radios[key], value)
	})
	for name, values := range radios {
		for _, value := range values {
			out = append(out, VariantCandidate{Attributes: map[string]string{name: value}})
		}
	}

	doc.dom.Find(`[class*="swatch"]`).Each(func(_ int, swatch *goquery.Selection) {
		value := strings.TrimSpace(swatch.AttrOr("data-value", swatch.AttrOr("data-option-value", "")))
		if value == "" {
			return
		}
		name := strings.TrimSpace(swatch.AttrOr("data-option-name", "option"))
		out = append(out, VariantCandidate{Attributes: map[string]string{name: value}})
	})

	return dropEmptyCandidates(out)
}

func (s *domStrategy) Price(doc *Document) *PriceShell {
	var shell *PriceShell
	doc.dom.Find(`[class*="price"], [id*="price"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		// Long text means a container wrapping several prices; keep
		// scanning for the leaf element.
		if text == "" || len(text) > 64 {
			return true
		}
		amount, currency := ParsePrice(text)
		if !amount.Valid {
			return true
		}
		shell = &PriceShell{Price: amount.Decimal, Raw: text, Currency: currency}
		return false
	})
	if shell != nil {
		return shell
	}
	if m := priceTextRegex.FindString(visibleText(doc)); m != "" {
		if amount, currency := ParsePrice(m); amount.Valid {
			return &PriceShell{Price: amount.Decimal, Raw: strings.TrimSpace(m), Currency: currency}
		}
	}
	return nil
}

// optionControlName resolves a human name for a select: its label text,
// a bracketed form name like options[Size], or the name/id attribute.
func optionControlName(sel *goquery.Selection, doc *Document) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		if label := strings.TrimSpace(doc.dom.Find(`label[for="` + id + `"]`).First().Text()); label != "" {
			return strings.TrimSuffix(label, ":")
		}
	}
	name := sel.AttrOr("name", "")
	if name == "" {
		name = sel.AttrOr("id", "")
	}
	if m := bracketNameRegex.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if name == "" {
		return "option"
	}
	return name
}

// domTextStockStrategy scans visible page text for stock phrases.
type domTextStockStrategy struct{}

func (s *domTextStockStrategy) Name() string { return "dom" }

func (s *domTextStockStrategy) Stock(doc *Document) *StockShell {
	m := stockPhraseRegex.FindString(visibleText(doc))
	if m == "" {
		return nil
	}
	return &StockShell{Status: NormalizeStock(m), Raw: m}
}

// buttonStockStrategy infers stock from the add-to-cart button state.
type buttonStockStrategy struct{}

func (s *buttonStockStrategy) Name() string { return "button" }

func (s *buttonStockStrategy) Stock(doc *Document) *StockShell {
	var shell *StockShell
	doc.dom.Find(`button, input[type="submit"], a[role="button"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := strings.TrimSpace(sel.Text())
		if label == "" {
			label = strings.TrimSpace(sel.AttrOr("value", ""))
		}
		class := sel.AttrOr("class", "")
		hint := strings.ToLower(label + " " + sel.AttrOr("name", "") + " " + sel.AttrOr("id", "") + " " + class)
		if !addToCartRegex.MatchString(hint) && !strings.Contains(hint, "addtocart") {
			return true
		}
		raw := label
		if raw == "" {
			raw = "add-to-cart"
		}
		_, disabled := sel.Attr("disabled")
		lowClass := strings.ToLower(class)
		phrase := stockPhraseRegex.FindString(label)
		switch {
		case disabled || strings.Contains(lowClass, "disabled") || strings.Contains(lowClass, "sold-out"):
			shell = &StockShell{Status: models.StockOutOfStock, Raw: raw}
		case phrase != "":
			// A button labelled "Sold Out" reads as its own phrase.
			shell = &StockShell{Status: NormalizeStock(phrase), Raw: raw}
		default:
			shell = &StockShell{Status: models.StockInStock, Raw: raw}
		}
		return false
	})
	return shell
}

// visibleText returns body text with script, style, and noscript
// content removed.
func visibleText(doc *Document) string {
	body := doc.dom.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return body.Text()
}
