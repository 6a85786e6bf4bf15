package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// stockAliases maps collapsed availability strings to the closed enum.
// Keys are lowercased with separators removed, so "In Stock", "in_stock",
// and "https://schema.org/InStock" all land on the same entry.
var stockAliases = map[string]models.StockStatus{
	"instock":             models.StockInStock,
	"available":           models.StockInStock,
	"availableforsale":    models.StockInStock,
	"onlineonly":          models.StockInStock,
	"instoreonly":         models.StockInStock,
	"outofstock":          models.StockOutOfStock,
	"soldout":             models.StockOutOfStock,
	"unavailable":         models.StockOutOfStock,
	"notavailable":        models.StockOutOfStock,
	"discontinued":        models.StockOutOfStock,
	"oos":                 models.StockOutOfStock,
	"lowstock":            models.StockLowStock,
	"limitedavailability": models.StockLowStock,
	"limited":             models.StockLowStock,
	"backorder":           models.StockBackorder,
	"backordered":         models.StockBackorder,
	"onbackorder":         models.StockBackorder,
	"preorder":            models.StockPreorder,
	"presale":             models.StockPreorder,
	"unknown":             models.StockUnknown,
}

var stockAliasStrip = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "")

// NormalizeStock maps a raw availability string to the status enum.
// Schema.org URIs are reduced to their last path segment first. Unknown
// strings map to StockUnknown. The mapping is idempotent.
func NormalizeStock(raw string) models.StockStatus {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.StockUnknown
	}
	// "https://schema.org/OutOfStock" -> "OutOfStock"
	if i := strings.LastIndexAny(s, "/#"); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	key := stockAliasStrip.Replace(strings.ToLower(s))
	if status, ok := stockAliases[key]; ok {
		return status
	}
	return models.StockUnknown
}

// currencySymbols maps common symbols to ISO codes.
var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// NormalizeCurrency trims and uppercases a currency code; recognized
// symbols are mapped to their ISO code. Idempotent.
func NormalizeCurrency(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	return strings.ToUpper(s)
}

var (
	priceAmountRegex   = regexp.MustCompile(`\d[\d.,\s]*`)
	priceCurrencyRegex = regexp.MustCompile(`[$€£¥]|\b(USD|EUR|GBP|JPY|CAD|AUD|CHF|SEK|NOK|DKK|PLN)\b`)
)

// ParsePrice pulls an amount and currency out of free-form price text
// like "$29.99", "29,99 €", or "USD 1,299.00". The currency is empty
// when the text carries none.
func ParsePrice(raw string) (decimal.NullDecimal, string) {
	currency := ""
	if m := priceCurrencyRegex.FindString(raw); m != "" {
		currency = NormalizeCurrency(m)
	}

	amount := strings.TrimSpace(priceAmountRegex.FindString(raw))
	if amount == "" {
		return decimal.NullDecimal{}, currency
	}
	d, err := ParseAmount(amount)
	if err != nil {
		return decimal.NullDecimal{}, currency
	}
	return decimal.NewNullDecimal(d), currency
}

// ParseAmount parses a numeric string that may use either "1,299.00" or
// "1.299,00" separator conventions.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.299,00
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,299.00
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// A comma with exactly two trailing digits reads as a decimal
		// separator; anything else reads as thousands grouping.
		if len(s)-lastComma-1 == 2 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return decimal.NewFromString(s)
}

// normalizeAttributes lowercases and trims attribute keys, trims
// values, and drops empty pairs. Returns nil when nothing survives.
func normalizeAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
