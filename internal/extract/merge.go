package extract

import (
	"strings"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// mergeVariants folds incoming candidates into the accumulated set.
// Matching candidates are merged; the rest are appended in order.
func mergeVariants(existing, incoming []VariantCandidate) []VariantCandidate {
	out := existing
	for _, cand := range incoming {
		matched := false
		for i := range out {
			if !sameVariant(out[i], cand) {
				continue
			}
			out[i] = mergeCandidate(out[i], cand)
			matched = true
			break
		}
		if !matched {
			out = append(out, cand)
		}
	}
	return out
}

// sameVariant reports whether two candidates describe the same
// purchasable variation. When both carry a SKU the SKU decides;
// otherwise equal attribute sets decide. Candidates without SKU or
// attributes never match anything.
func sameVariant(a, b VariantCandidate) bool {
	if a.SKU != nil && b.SKU != nil {
		return strings.EqualFold(*a.SKU, *b.SKU)
	}
	if len(a.Attributes) == 0 || len(b.Attributes) == 0 {
		return false
	}
	return models.CanonicalAttributes(a.Attributes) == models.CanonicalAttributes(b.Attributes)
}

// mergeCandidate combines two matching candidates. The more populated
// one wins (ties keep the earlier, higher-priority one) and its empty
// fields are filled from the other.
func mergeCandidate(a, b VariantCandidate) VariantCandidate {
	winner, loser := a, b
	if candidateFields(b) > candidateFields(a) {
		winner, loser = b, a
	}
	if winner.SKU == nil {
		winner.SKU = loser.SKU
	}
	if !winner.Price.Valid && loser.Price.Valid {
		winner.Price = loser.Price
		winner.RawPrice = loser.RawPrice
	}
	if winner.Currency == "" {
		winner.Currency = loser.Currency
	}
	if winner.Stock == "" {
		winner.Stock = loser.Stock
	}
	if winner.ImageURL == "" {
		winner.ImageURL = loser.ImageURL
	}
	if len(loser.Attributes) > 0 {
		merged := make(map[string]string, len(winner.Attributes)+len(loser.Attributes))
		for k, v := range winner.Attributes {
			merged[k] = v
		}
		for k, v := range loser.Attributes {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
		winner.Attributes = merged
	}
	return winner
}

func candidateFields(c VariantCandidate) int {
	n := 0
	if c.SKU != nil {
		n++
	}
	if len(c.Attributes) > 0 {
		n++
	}
	if c.Price.Valid {
		n++
	}
	if c.Currency != "" {
		n++
	}
	if c.Stock != "" {
		n++
	}
	if c.ImageURL != "" {
		n++
	}
	return n
}
