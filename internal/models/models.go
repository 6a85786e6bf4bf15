// Package models defines the domain models for the application.
// Note: user accounts live in the external API; UserID fields carry the
// identifiers it issues and are never interpreted by the core.
package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the closed availability enum for a variant.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockLowStock   StockStatus = "low_stock"
	StockBackorder  StockStatus = "backorder"
	StockPreorder   StockStatus = "preorder"
	StockUnknown    StockStatus = "unknown"
)

// Valid reports whether s is a member of the enum.
func (s StockStatus) Valid() bool {
	switch s {
	case StockInStock, StockOutOfStock, StockLowStock, StockBackorder, StockPreorder, StockUnknown:
		return true
	}
	return false
}

// Availability derives the is_available flag from the status:
// in_stock is available, out_of_stock is not, anything else is
// indeterminate (nil).
func (s StockStatus) Availability() *bool {
	switch s {
	case StockInStock:
		v := true
		return &v
	case StockOutOfStock:
		v := false
		return &v
	default:
		return nil
	}
}

// FetchMode identifies which fetch path produced a page.
type FetchMode string

const (
	FetchModeHTTP     FetchMode = "http"
	FetchModeRendered FetchMode = "rendered"
)

// CheckRunStatus represents the status of a check run.
type CheckRunStatus string

const (
	CheckRunStatusRunning CheckRunStatus = "running"
	CheckRunStatusSuccess CheckRunStatus = "success"
	CheckRunStatusFailed  CheckRunStatus = "failed"
)

// CheckTrigger records what initiated a check run.
type CheckTrigger string

const (
	CheckTriggerManual    CheckTrigger = "manual"
	CheckTriggerScheduled CheckTrigger = "scheduled"
)

// Product represents an observed product page.
type Product struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	CanonicalURL  *string    `json:"canonical_url,omitempty"`
	Name          string     `json:"name,omitempty"`
	Description   string     `json:"description,omitempty"`
	Vendor        string     `json:"vendor,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	Metadata      string     `json:"metadata,omitempty"` // JSON
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Variant represents a purchasable configuration of a product.
type Variant struct {
	ID                 int64               `json:"id"`
	ProductID          int64               `json:"product_id"`
	SKU                *string             `json:"sku,omitempty"`
	Attributes         string              `json:"attributes"` // canonical JSON, see CanonicalAttributes
	CurrentPrice       decimal.NullDecimal `json:"current_price"`
	Currency           string              `json:"currency,omitempty"` // ISO-4217, uppercase
	CurrentStockStatus StockStatus         `json:"current_stock_status"`
	IsAvailable        *bool               `json:"is_available,omitempty"`
	ImageURL           string              `json:"image_url,omitempty"`
	Metadata           string              `json:"metadata,omitempty"` // JSON
	LastCheckedAt      *time.Time          `json:"last_checked_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// AttributeMap returns the variant's attributes as a map. A malformed
// attributes column yields an empty map rather than an error.
func (v *Variant) AttributeMap() map[string]string {
	return ParseAttributes(v.Attributes)
}

// PriceHistory is an append-only price observation for a variant.
type PriceHistory struct {
	ID         int64               `json:"id"`
	VariantID  int64               `json:"variant_id"`
	Price      decimal.NullDecimal `json:"price"`
	Currency   string              `json:"currency,omitempty"`
	Raw        string              `json:"raw,omitempty"` // price text as scraped
	Metadata   string              `json:"metadata,omitempty"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// StockHistory is an append-only stock observation for a variant.
type StockHistory struct {
	ID          int64       `json:"id"`
	VariantID   int64       `json:"variant_id"`
	StockStatus StockStatus `json:"stock_status"`
	IsAvailable *bool       `json:"is_available,omitempty"`
	Raw         string      `json:"raw,omitempty"` // availability text as scraped
	Metadata    string      `json:"metadata,omitempty"`
	RecordedAt  time.Time   `json:"recorded_at"`
}

// CheckRun represents one attempt to observe a product.
type CheckRun struct {
	ID           string         `json:"id"`
	ProductID    int64          `json:"product_id"`
	Trigger      CheckTrigger   `json:"trigger"`
	Status       CheckRunStatus `json:"status"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	MetadataJSON string         `json:"metadata,omitempty"` // CheckRunMetadata
	SnapshotKey  string         `json:"snapshot_key,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// CheckRunMetadata is the structured payload stored on a check run.
type CheckRunMetadata struct {
	ModeUsed      FetchMode `json:"mode_used,omitempty"`
	VariantsFound int       `json:"variants_found"`
	Notes         []string  `json:"notes,omitempty"`
	FetchMs       int64     `json:"fetch_ms,omitempty"`
	RenderMs      int64     `json:"render_ms,omitempty"`
}

// SchedulerLog summarizes one scheduler sweep.
type SchedulerLog struct {
	ID              string     `json:"id"`
	RunStartedAt    time.Time  `json:"run_started_at"`
	RunFinishedAt   *time.Time `json:"run_finished_at,omitempty"`
	ProductsChecked int        `json:"products_checked"`
	ItemsChecked    int        `json:"items_checked"`
	Success         *bool      `json:"success,omitempty"` // nil while the sweep is open
	ErrorSummary    string     `json:"error_summary,omitempty"`
	MetadataJSON    string     `json:"metadata,omitempty"` // SweepMetadata
}

// SweepMetadata is the structured payload stored on a scheduler log.
type SweepMetadata struct {
	ProductIDs  []int64         `json:"product_ids,omitempty"`
	DurationsMs map[int64]int64 `json:"durations_ms,omitempty"` // keyed by product id
	Errors      []string        `json:"errors,omitempty"`
}

// TrackedItem maps a user to a product (optionally a specific variant).
// Written by the external API; the core only reads these.
type TrackedItem struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	VariantID *int64    `json:"variant_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CanonicalAttributes serializes a variant attribute map with trimmed
// keys and values and alphabetically sorted keys, so equal maps always
// produce byte-identical JSON. Empty keys are dropped.
func CanonicalAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "{}"
	}

	trimmed := make(map[string]string, len(attrs))
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if _, seen := trimmed[key]; !seen {
			keys = append(keys, key)
		}
		trimmed[key] = strings.TrimSpace(v)
	}
	if len(keys) == 0 {
		return "{}"
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(trimmed[k])
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// ParseAttributes decodes a canonical attributes string back into a map.
// Malformed input yields an empty map.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	if s == "" {
		return attrs
	}
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return map[string]string{}
	}
	return attrs
}
