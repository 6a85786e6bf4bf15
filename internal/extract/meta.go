package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// metaStrategy reads OpenGraph and twitter card tags.
type metaStrategy struct{}

func (s *metaStrategy) Name() string { return "meta" }

func (s *metaStrategy) Identity(doc *Document) identityCandidate {
	cand := identityCandidate{
		title:       metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`),
		description: metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`),
	}
	doc.dom.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				cand.images = append(cand.images, v)
			}
		}
	})
	return cand
}

func (s *metaStrategy) Price(doc *Document) *PriceShell {
	raw := metaContent(doc, `meta[property="og:price:amount"]`, `meta[property="product:price:amount"]`)
	if raw == "" {
		return nil
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		return nil
	}
	currency := metaContent(doc, `meta[property="og:price:currency"]`, `meta[property="product:price:currency"]`)
	return &PriceShell{
		Price:    amount,
		Raw:      raw,
		Currency: NormalizeCurrency(currency),
	}
}

// microdataStrategy reads schema.org itemprop markup.
type microdataStrategy struct{}

func (s *microdataStrategy) Name() string { return "microdata" }

func (s *microdataStrategy) Price(doc *Document) *PriceShell {
	node := doc.dom.Find(`[itemprop="price"]`).First()
	if node.Length() == 0 {
		return nil
	}
	raw, ok := node.Attr("content")
	if !ok || strings.TrimSpace(raw) == "" {
		raw = node.Text()
	}
	raw = strings.TrimSpace(raw)
	amount, currency := ParsePrice(raw)
	if !amount.Valid {
		return nil
	}
	if currency == "" {
		cur := doc.dom.Find(`[itemprop="priceCurrency"]`).First()
		if v, ok := cur.Attr("content"); ok {
			currency = NormalizeCurrency(v)
		} else {
			currency = NormalizeCurrency(cur.Text())
		}
	}
	return &PriceShell{Price: amount.Decimal, Raw: raw, Currency: currency}
}

func metaContent(doc *Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.dom.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
