package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// variantAttributeKeys are object keys treated as variant attributes
// when they appear on offer or variant objects.
var variantAttributeKeys = []string{"size", "color", "colour", "material", "style", "finish", "width", "pattern"}

// jsonLDStrategy reads schema.org Product blocks from ld+json scripts.
type jsonLDStrategy struct{}

func (s *jsonLDStrategy) Name() string { return "json" }

func (s *jsonLDStrategy) products(doc *Document) []map[string]interface{} {
	var out []map[string]interface{}
	for _, blob := range doc.LDJSONBlobs() {
		if hasType(blob.Data, "Product") || hasType(blob.Data, "ProductGroup") {
			out = append(out, blob.Data)
		}
	}
	return out
}

func (s *jsonLDStrategy) Identity(doc *Document) identityCandidate {
	for _, p := range s.products(doc) {
		cand := identityCandidate{
			title:       jsonString(p, "name"),
			description: jsonString(p, "description"),
			images:      jsonImages(p["image"]),
		}
		if cand.title != "" || cand.description != "" || len(cand.images) > 0 {
			return cand
		}
	}
	return identityCandidate{}
}

func (s *jsonLDStrategy) Price(doc *Document) *PriceShell {
	for _, p := range s.products(doc) {
		for _, offer := range jsonOffers(p["offers"]) {
			// AggregateOffer carries lowPrice instead of price.
			for _, key := range []string{"price", "lowPrice"} {
				amount, raw, ok := jsonPrice(offer[key])
				if !ok {
					continue
				}
				return &PriceShell{
					Price:    amount,
					Raw:      raw,
					Currency: NormalizeCurrency(jsonString(offer, "priceCurrency")),
				}
			}
		}
	}
	return nil
}

func (s *jsonLDStrategy) Stock(doc *Document) *StockShell {
	for _, p := range s.products(doc) {
		for _, offer := range jsonOffers(p["offers"]) {
			if raw := jsonString(offer, "availability"); raw != "" {
				return &StockShell{Status: NormalizeStock(raw), Raw: raw}
			}
		}
	}
	return nil
}

func (s *jsonLDStrategy) Variants(doc *Document) []VariantCandidate {
	var out []VariantCandidate
	for _, p := range s.products(doc) {
		// A single offer describes the product itself; multiple offers
		// describe one purchasable variation each.
		if offers := jsonOffers(p["offers"]); len(offers) > 1 {
			for _, offer := range offers {
				out = append(out, offerCandidate(offer))
			}
		}
		for _, v := range jsonArray(p["hasVariant"]) {
			vm, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			cand := offerCandidate(vm)
			if vOffers := jsonOffers(vm["offers"]); len(vOffers) > 0 {
				oc := offerCandidate(vOffers[0])
				if !cand.Price.Valid {
					cand.Price, cand.RawPrice, cand.Currency = oc.Price, oc.RawPrice, oc.Currency
				}
				if cand.Stock == "" {
					cand.Stock = oc.Stock
				}
			}
			out = append(out, cand)
		}
	}
	return dropEmptyCandidates(out)
}

// offerCandidate reads one offer or variant object into a candidate.
func offerCandidate(m map[string]interface{}) VariantCandidate {
	cand := VariantCandidate{
		Currency: NormalizeCurrency(jsonString(m, "priceCurrency")),
		ImageURL: firstImage(jsonImages(m["image"])),
	}
	if sku := jsonScalar(m["sku"]); sku != "" {
		cand.SKU = &sku
	}
	if amount, raw, ok := jsonPrice(m["price"]); ok {
		cand.Price = decimal.NewNullDecimal(amount)
		cand.RawPrice = raw
	}
	if raw := jsonString(m, "availability"); raw != "" {
		cand.Stock = NormalizeStock(raw)
	}
	attrs := make(map[string]string)
	for _, key := range variantAttributeKeys {
		if v := jsonScalar(m[key]); v != "" {
			attrs[key] = v
		}
	}
	if len(attrs) > 0 {
		cand.Attributes = attrs
	}
	return cand
}

func dropEmptyCandidates(cands []VariantCandidate) []VariantCandidate {
	out := cands[:0]
	for _, c := range cands {
		if c.SKU == nil && len(c.Attributes) == 0 && !c.Price.Valid && c.Stock == "" && c.ImageURL == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// hasType reports whether a JSON-LD object's @type matches want. The
// field may be a string or an array of strings.
func hasType(m map[string]interface{}, want string) bool {
	switch t := m["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// jsonArray returns v as a slice, wrapping a single object.
func jsonArray(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case map[string]interface{}:
		return []interface{}{t}
	}
	return nil
}

// jsonOffers flattens an offers value into offer objects. An
// AggregateOffer's nested offers array is included after the
// aggregate itself.
func jsonOffers(v interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, item := range jsonArray(v) {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, m)
		for _, nested := range jsonArray(m["offers"]) {
			if nm, ok := nested.(map[string]interface{}); ok {
				out = append(out, nm)
			}
		}
	}
	return out
}

func jsonString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// jsonScalar renders a string or numeric JSON value as a string.
func jsonScalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// jsonPrice parses a price value that may be a JSON string or number.
func jsonPrice(v interface{}) (decimal.Decimal, string, bool) {
	switch t := v.(type) {
	case string:
		raw := strings.TrimSpace(t)
		if raw == "" {
			return decimal.Decimal{}, "", false
		}
		d, err := ParseAmount(raw)
		if err != nil {
			return decimal.Decimal{}, "", false
		}
		return d, raw, true
	case float64:
		raw := strconv.FormatFloat(t, 'f', -1, 64)
		return decimal.NewFromFloat(t), raw, true
	}
	return decimal.Decimal{}, "", false
}

// jsonImages reads an image value that may be a string, an ImageObject,
// or an array of either.
func jsonImages(v interface{}) []string {
	var out []string
	add := func(item interface{}) {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]interface{}:
			for _, key := range []string{"url", "contentUrl"} {
				if s := jsonString(t, key); s != "" {
					out = append(out, s)
					return
				}
			}
		}
	}
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			add(item)
		}
	default:
		add(v)
	}
	return out
}

func firstImage(images []string) string {
	if len(images) == 0 {
		return ""
	}
	return images[0]
}
