package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// ========================================
// VariantRepository Tests
// ========================================

func newTestVariant(productID int64, sku string, attrs map[string]string) *models.Variant {
	now := time.Now().UTC().Truncate(time.Second)
	v := &models.Variant{
		ProductID:          productID,
		Attributes:         models.CanonicalAttributes(attrs),
		CurrentStockStatus: models.StockUnknown,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if sku != "" {
		v.SKU = &sku
	}
	return v
}

func TestVariantRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/variants")

	variant := newTestVariant(productID, "WID-M-BLUE", map[string]string{"size": "M", "color": "Blue"})
	variant.CurrentPrice = decimal.NewNullDecimal(decimal.RequireFromString("29.99"))
	variant.Currency = "USD"
	variant.CurrentStockStatus = models.StockInStock
	variant.IsAvailable = models.StockInStock.Availability()

	if err := repos.Variant.Create(ctx, variant); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}
	if variant.ID == 0 {
		t.Error("expected ID to be generated")
	}

	fetched, err := repos.Variant.GetByID(ctx, variant.ID)
	if err != nil {
		t.Fatalf("failed to fetch variant: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected variant, got nil")
	}
	if fetched.SKU == nil || *fetched.SKU != "WID-M-BLUE" {
		t.Errorf("SKU = %v, want WID-M-BLUE", fetched.SKU)
	}
	if fetched.Attributes != `{"color":"Blue","size":"M"}` {
		t.Errorf("Attributes = %q, want canonical form", fetched.Attributes)
	}
	if !fetched.CurrentPrice.Valid || !fetched.CurrentPrice.Decimal.Equal(decimal.RequireFromString("29.99")) {
		t.Errorf("CurrentPrice = %v, want 29.99", fetched.CurrentPrice)
	}
	if fetched.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", fetched.Currency)
	}
	if fetched.CurrentStockStatus != models.StockInStock {
		t.Errorf("CurrentStockStatus = %q, want in_stock", fetched.CurrentStockStatus)
	}
	if fetched.IsAvailable == nil || !*fetched.IsAvailable {
		t.Errorf("IsAvailable = %v, want true", fetched.IsAvailable)
	}
}

func TestVariantRepository_Create_NullPrice(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/nullprice")

	variant := newTestVariant(productID, "", map[string]string{"size": "L"})
	if err := repos.Variant.Create(ctx, variant); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}

	fetched, _ := repos.Variant.GetByID(ctx, variant.ID)
	if fetched.CurrentPrice.Valid {
		t.Errorf("CurrentPrice = %v, want null", fetched.CurrentPrice)
	}
	if fetched.SKU != nil {
		t.Errorf("SKU = %v, want nil", fetched.SKU)
	}
	if fetched.IsAvailable != nil {
		t.Errorf("IsAvailable = %v, want nil", fetched.IsAvailable)
	}
}

func TestVariantRepository_UniqueSKUPerProduct(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/unique-sku")

	if err := repos.Variant.Create(ctx, newTestVariant(productID, "SKU-1", map[string]string{"size": "S"})); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}
	err := repos.Variant.Create(ctx, newTestVariant(productID, "SKU-1", map[string]string{"size": "M"}))
	if err == nil {
		t.Error("expected unique constraint error for duplicate sku")
	}

	// Same sku on a different product is fine.
	otherID := InsertTestProduct(t, db, "https://example.com/p/unique-sku-2")
	if err := repos.Variant.Create(ctx, newTestVariant(otherID, "SKU-1", map[string]string{"size": "S"})); err != nil {
		t.Errorf("same sku on another product should be allowed: %v", err)
	}
}

func TestVariantRepository_UniqueAttributesWhenSkuless(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/unique-attrs")

	attrs := map[string]string{"size": "M", "color": "Red"}
	if err := repos.Variant.Create(ctx, newTestVariant(productID, "", attrs)); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}
	if err := repos.Variant.Create(ctx, newTestVariant(productID, "", attrs)); err == nil {
		t.Error("expected unique constraint error for duplicate sku-less attributes")
	}
}

func TestVariantRepository_GetBySKU(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/by-sku")
	variant := newTestVariant(productID, "FIND-ME", map[string]string{"size": "M"})
	if err := repos.Variant.Create(ctx, variant); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}

	fetched, err := repos.Variant.GetBySKU(ctx, productID, "FIND-ME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched == nil || fetched.ID != variant.ID {
		t.Errorf("GetBySKU returned %+v, want id %d", fetched, variant.ID)
	}

	missing, err := repos.Variant.GetBySKU(ctx, productID, "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown sku")
	}
}

func TestVariantRepository_GetByAttributes(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/by-attrs")
	attrs := models.CanonicalAttributes(map[string]string{"color": "Green", "size": "XL"})
	variant := newTestVariant(productID, "", map[string]string{"color": "Green", "size": "XL"})
	if err := repos.Variant.Create(ctx, variant); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}

	fetched, err := repos.Variant.GetByAttributes(ctx, productID, attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched == nil || fetched.ID != variant.ID {
		t.Errorf("GetByAttributes returned %+v, want id %d", fetched, variant.ID)
	}
}

func TestVariantRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/update-variant")
	variant := newTestVariant(productID, "UPD-1", map[string]string{"size": "M"})
	if err := repos.Variant.Create(ctx, variant); err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	variant.CurrentPrice = decimal.NewNullDecimal(decimal.RequireFromString("39.99"))
	variant.Currency = "EUR"
	variant.CurrentStockStatus = models.StockOutOfStock
	variant.IsAvailable = models.StockOutOfStock.Availability()
	variant.LastCheckedAt = &now
	if err := repos.Variant.Update(ctx, variant); err != nil {
		t.Fatalf("failed to update variant: %v", err)
	}

	fetched, _ := repos.Variant.GetByID(ctx, variant.ID)
	if !fetched.CurrentPrice.Valid || !fetched.CurrentPrice.Decimal.Equal(decimal.RequireFromString("39.99")) {
		t.Errorf("CurrentPrice = %v, want 39.99", fetched.CurrentPrice)
	}
	if fetched.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", fetched.Currency)
	}
	if fetched.CurrentStockStatus != models.StockOutOfStock {
		t.Errorf("CurrentStockStatus = %q, want out_of_stock", fetched.CurrentStockStatus)
	}
	if fetched.IsAvailable == nil || *fetched.IsAvailable {
		t.Errorf("IsAvailable = %v, want false", fetched.IsAvailable)
	}
	if fetched.LastCheckedAt == nil || !fetched.LastCheckedAt.Equal(now) {
		t.Errorf("LastCheckedAt = %v, want %v", fetched.LastCheckedAt, now)
	}
}

func TestVariantRepository_GetByProductID(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/list-variants")
	for _, sku := range []string{"A", "B", "C"} {
		if err := repos.Variant.Create(ctx, newTestVariant(productID, sku, map[string]string{"sku": sku})); err != nil {
			t.Fatalf("failed to create variant: %v", err)
		}
	}

	variants, err := repos.Variant.GetByProductID(ctx, productID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(variants) != 3 {
		t.Fatalf("GetByProductID returned %d variants, want 3", len(variants))
	}
	// Insertion order is preserved (ascending id).
	if *variants[0].SKU != "A" || *variants[2].SKU != "C" {
		t.Errorf("variants out of order: %v, %v", *variants[0].SKU, *variants[2].SKU)
	}
}

func TestVariantRepository_WithTx(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	productID := InsertTestProduct(t, db, "https://example.com/p/tx")

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		variants := repos.Variant.WithTx(tx)
		if err := variants.Create(ctx, newTestVariant(productID, "TX-ROLLBACK", nil)); err != nil {
			t.Fatalf("failed to create variant in tx: %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		fetched, err := repos.Variant.GetBySKU(ctx, productID, "TX-ROLLBACK")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetched != nil {
			t.Error("rolled-back variant should not be visible")
		}
	})

	t.Run("commit persists writes", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		variants := repos.Variant.WithTx(tx)
		if err := variants.Create(ctx, newTestVariant(productID, "TX-COMMIT", nil)); err != nil {
			t.Fatalf("failed to create variant in tx: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("failed to commit: %v", err)
		}

		fetched, err := repos.Variant.GetBySKU(ctx, productID, "TX-COMMIT")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetched == nil {
			t.Error("committed variant should be visible")
		}
	})
}
