package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// embeddedStrategy reads storefront state blobs: inline script JSON and
// data attributes carrying a product object with a variants array.
type embeddedStrategy struct{}

func (s *embeddedStrategy) Name() string { return "embedded" }

// productObjects finds objects with a variants array, either at the top
// level or nested under a "product" key.
func (s *embeddedStrategy) productObjects(doc *Document) []map[string]interface{} {
	var out []map[string]interface{}
	for _, blob := range doc.EmbeddedBlobs() {
		for _, m := range []map[string]interface{}{blob.Data, childObject(blob.Data, "product")} {
			if m == nil {
				continue
			}
			if _, ok := m["variants"].([]interface{}); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func (s *embeddedStrategy) Variants(doc *Document) []VariantCandidate {
	var out []VariantCandidate
	for _, product := range s.productObjects(doc) {
		names := optionNames(product["options"])
		productCurrency := NormalizeCurrency(jsonString(product, "currency"))
		for _, item := range jsonArray(product["variants"]) {
			vm, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			cand := variantFromEmbedded(vm, names)
			if cand.Currency == "" {
				cand.Currency = productCurrency
			}
			out = append(out, cand)
		}
	}
	return dropEmptyCandidates(out)
}

func (s *embeddedStrategy) Price(doc *Document) *PriceShell {
	for _, product := range s.productObjects(doc) {
		currency := NormalizeCurrency(jsonString(product, "currency"))
		if amount, raw, ok := jsonPrice(product["price"]); ok {
			return &PriceShell{Price: amount, Raw: raw, Currency: currency}
		}
		for _, item := range jsonArray(product["variants"]) {
			vm, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if amount, raw, ok := jsonPrice(vm["price"]); ok {
				cur := NormalizeCurrency(jsonString(vm, "currency"))
				if cur == "" {
					cur = currency
				}
				return &PriceShell{Price: amount, Raw: raw, Currency: cur}
			}
		}
	}
	return nil
}

func variantFromEmbedded(m map[string]interface{}, names []string) VariantCandidate {
	cand := VariantCandidate{
		Currency: NormalizeCurrency(jsonString(m, "currency")),
		ImageURL: embeddedImage(m),
	}
	if sku := jsonScalar(m["sku"]); sku != "" {
		cand.SKU = &sku
	}
	if amount, raw, ok := jsonPrice(m["price"]); ok {
		cand.Price = decimal.NewNullDecimal(amount)
		cand.RawPrice = raw
	}
	if avail, ok := m["available"].(bool); ok {
		if avail {
			cand.Stock = models.StockInStock
		} else {
			cand.Stock = models.StockOutOfStock
		}
	} else if raw := jsonString(m, "availability"); raw != "" {
		cand.Stock = NormalizeStock(raw)
	}
	cand.Attributes = embeddedAttributes(m, names)
	return cand
}

// embeddedAttributes resolves variant attributes from, in order: an
// explicit options map, well-known keys on the variant, a positional
// options array, option1..option3 fields, and finally a "M / Blue"
// style title when the product declares option names.
func embeddedAttributes(m map[string]interface{}, names []string) map[string]string {
	if opts := childObject(m, "options"); opts != nil {
		attrs := make(map[string]string)
		for k, v := range opts {
			if s := jsonScalar(v); s != "" {
				attrs[k] = s
			}
		}
		if len(attrs) > 0 {
			return attrs
		}
	}

	attrs := make(map[string]string)
	for _, key := range variantAttributeKeys {
		if v := jsonScalar(m[key]); v != "" {
			attrs[key] = v
		}
	}
	if len(attrs) > 0 {
		return attrs
	}

	var values []string
	if arr, ok := m["options"].([]interface{}); ok {
		for _, v := range arr {
			if s := jsonScalar(v); s != "" {
				values = append(values, s)
			}
		}
	}
	if len(values) == 0 {
		for _, key := range []string{"option1", "option2", "option3"} {
			if v := jsonScalar(m[key]); v != "" {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 && len(names) > 0 {
		if title := jsonString(m, "title"); strings.Contains(title, " / ") {
			values = strings.Split(title, " / ")
		}
	}
	for i, v := range values {
		key := "option" + strconv.Itoa(i+1)
		if i < len(names) {
			key = names[i]
		}
		attrs[strings.TrimSpace(key)] = strings.TrimSpace(v)
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// optionNames reads a product-level options declaration, either
// [{"name": "Size"}, ...] or ["Size", "Color"].
func optionNames(v interface{}) []string {
	var names []string
	for _, item := range jsonArray(v) {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				names = append(names, s)
			}
		case map[string]interface{}:
			if s := jsonString(t, "name"); s != "" {
				names = append(names, s)
			}
		}
	}
	return names
}

func embeddedImage(m map[string]interface{}) string {
	for _, key := range []string{"featured_image", "image"} {
		switch t := m[key].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case map[string]interface{}:
			for _, sub := range []string{"src", "url"} {
				if s := jsonString(t, sub); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func childObject(m map[string]interface{}, key string) map[string]interface{} {
	child, _ := m[key].(map[string]interface{})
	return child
}
