package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ========================================
// StockStatus Tests
// ========================================

func TestStockStatus_Valid(t *testing.T) {
	valid := []StockStatus{
		StockInStock, StockOutOfStock, StockLowStock,
		StockBackorder, StockPreorder, StockUnknown,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("StockStatus(%q).Valid() = false, want true", s)
		}
	}

	if StockStatus("available").Valid() {
		t.Error("arbitrary status string should not be valid")
	}
	if StockStatus("").Valid() {
		t.Error("empty status should not be valid")
	}
}

func TestStockStatus_Availability(t *testing.T) {
	t.Run("in_stock is available", func(t *testing.T) {
		got := StockInStock.Availability()
		if got == nil || !*got {
			t.Errorf("Availability() = %v, want true", got)
		}
	})

	t.Run("out_of_stock is unavailable", func(t *testing.T) {
		got := StockOutOfStock.Availability()
		if got == nil || *got {
			t.Errorf("Availability() = %v, want false", got)
		}
	})

	t.Run("other statuses are indeterminate", func(t *testing.T) {
		for _, s := range []StockStatus{StockLowStock, StockBackorder, StockPreorder, StockUnknown} {
			if got := s.Availability(); got != nil {
				t.Errorf("StockStatus(%q).Availability() = %v, want nil", s, *got)
			}
		}
	})
}

// ========================================
// CanonicalAttributes Tests
// ========================================

func TestCanonicalAttributes_Deterministic(t *testing.T) {
	a := CanonicalAttributes(map[string]string{"size": "M", "color": "Blue"})
	b := CanonicalAttributes(map[string]string{"color": "Blue", "size": "M"})

	if a != b {
		t.Errorf("key order should not matter: %q != %q", a, b)
	}
	if a != `{"color":"Blue","size":"M"}` {
		t.Errorf("CanonicalAttributes() = %q, want keys sorted", a)
	}
}

func TestCanonicalAttributes_Trims(t *testing.T) {
	got := CanonicalAttributes(map[string]string{" size ": " M "})
	want := `{"size":"M"}`
	if got != want {
		t.Errorf("CanonicalAttributes() = %q, want %q", got, want)
	}
}

func TestCanonicalAttributes_Empty(t *testing.T) {
	if got := CanonicalAttributes(nil); got != "{}" {
		t.Errorf("CanonicalAttributes(nil) = %q, want {}", got)
	}
	if got := CanonicalAttributes(map[string]string{}); got != "{}" {
		t.Errorf("CanonicalAttributes(empty) = %q, want {}", got)
	}
	if got := CanonicalAttributes(map[string]string{"  ": "x"}); got != "{}" {
		t.Errorf("CanonicalAttributes(blank key) = %q, want {}", got)
	}
}

func TestCanonicalAttributes_EscapesJSON(t *testing.T) {
	got := CanonicalAttributes(map[string]string{"label": `24" monitor`})
	want := `{"label":"24\" monitor"}`
	if got != want {
		t.Errorf("CanonicalAttributes() = %q, want %q", got, want)
	}
}

func TestParseAttributes_RoundTrip(t *testing.T) {
	in := map[string]string{"color": "Blue", "size": "M"}
	out := ParseAttributes(CanonicalAttributes(in))

	if len(out) != 2 || out["color"] != "Blue" || out["size"] != "M" {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestParseAttributes_Malformed(t *testing.T) {
	if got := ParseAttributes("not json"); len(got) != 0 {
		t.Errorf("ParseAttributes(malformed) = %v, want empty map", got)
	}
	if got := ParseAttributes(""); len(got) != 0 {
		t.Errorf("ParseAttributes(empty) = %v, want empty map", got)
	}
}

// ========================================
// Variant Tests
// ========================================

func TestVariant_AttributeMap(t *testing.T) {
	v := &Variant{Attributes: `{"color":"Red"}`}
	got := v.AttributeMap()
	if got["color"] != "Red" {
		t.Errorf("AttributeMap() = %v, want color=Red", got)
	}
}

func TestVariant_PriceComparison(t *testing.T) {
	// Decimal comparison must not be tripped by representation
	// differences (29.99 vs 29.990).
	a := decimal.RequireFromString("29.99")
	b := decimal.RequireFromString("29.990")
	if !a.Equal(b) {
		t.Error("29.99 and 29.990 should compare equal")
	}

	c := decimal.RequireFromString("39.99")
	if a.Equal(c) {
		t.Error("29.99 and 39.99 should not compare equal")
	}
}
