// Package extract turns fetched HTML into a structured product shell.
// Strategies run in priority order (structured data first, embedded
// JSON next, DOM heuristics last); for each field the first strategy
// that finds a value wins, and variant candidates from all strategies
// are merged and deduplicated.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/internal/fetch"
	"github.com/shelfwatch/shelfwatch/internal/models"
)

// PriceShell is a shell-level price observation.
type PriceShell struct {
	Price    decimal.Decimal
	Raw      string
	Currency string
	Source   string
}

// StockShell is a shell-level stock observation.
type StockShell struct {
	Status models.StockStatus
	Raw    string
	Source string
}

// VariantCandidate is one purchasable variation as seen by a single
// strategy, before merging.
type VariantCandidate struct {
	SKU        *string
	Attributes map[string]string
	Price      decimal.NullDecimal
	RawPrice   string
	Currency   string
	Stock      models.StockStatus
	ImageURL   string
	Source     string
}

// ShellMetadata describes how the shell was obtained.
type ShellMetadata struct {
	Mode            string `json:"mode"`
	IsLikelyDynamic bool   `json:"is_likely_dynamic"`
	JSONBlobCount   int    `json:"json_blob_count"`
}

// ProductShell is the full extraction result for one page. A shell is
// always returned, even when no strategy matched; Notes records what
// each strategy contributed.
type ProductShell struct {
	URL         string
	FinalURL    string
	FetchedAt   time.Time
	Title       string
	Description string
	Images      []string
	Variants    []VariantCandidate
	Pricing     *PriceShell
	Stock       *StockShell
	Notes       []string
	Metadata    ShellMetadata
}

// identityCandidate carries title/description/images from one strategy.
type identityCandidate struct {
	title       string
	description string
	images      []string
}

type identityStrategy interface {
	Name() string
	Identity(doc *Document) identityCandidate
}

type variantStrategy interface {
	Name() string
	Variants(doc *Document) []VariantCandidate
}

type priceStrategy interface {
	Name() string
	Price(doc *Document) *PriceShell
}

type stockStrategy interface {
	Name() string
	Stock(doc *Document) *StockShell
}

// Extractor runs the strategy registry over a parsed document.
type Extractor struct {
	identity []identityStrategy
	variants []variantStrategy
	price    []priceStrategy
	stock    []stockStrategy
	logger   *slog.Logger
}

// NewExtractor creates an extractor with the default strategy order.
func NewExtractor(logger *slog.Logger) *Extractor {
	jsonLD := &jsonLDStrategy{}
	meta := &metaStrategy{}
	embedded := &embeddedStrategy{}
	dom := &domStrategy{}

	return &Extractor{
		identity: []identityStrategy{jsonLD, meta, dom},
		variants: []variantStrategy{jsonLD, embedded, dom},
		price:    []priceStrategy{jsonLD, &microdataStrategy{}, meta, embedded, dom},
		stock:    []stockStrategy{jsonLD, &domTextStockStrategy{}, &buttonStockStrategy{}},
		logger:   logger,
	}
}

// Extract builds a product shell from a fetch result. It never fails:
// unparseable or empty documents yield a degraded shell with a note.
func (e *Extractor) Extract(ctx context.Context, res *fetch.Result) *ProductShell {
	shell := &ProductShell{
		URL:       res.OriginalURL,
		FinalURL:  res.FinalURL,
		FetchedAt: res.FetchedAt,
		Metadata: ShellMetadata{
			Mode:            string(res.Mode),
			IsLikelyDynamic: res.Mode == fetch.ModeRendered || res.Metadata.DynamicSignal != "",
		},
	}

	doc, err := ParseDocument(res.ContentHTML())
	if err != nil {
		shell.Notes = append(shell.Notes, fmt.Sprintf("document-parse: %v", err))
		return shell
	}
	shell.Metadata.JSONBlobCount = len(doc.JSONBlobs)

	e.resolveIdentity(doc, shell)
	e.resolvePrice(doc, shell)
	e.resolveStock(doc, shell)
	e.resolveVariants(doc, shell)

	if shell.Title == "" && shell.Pricing == nil && shell.Stock == nil && len(shell.Variants) == 0 {
		shell.Notes = append(shell.Notes, "no-product-data: no strategy matched")
	}
	return shell
}

func (e *Extractor) resolveIdentity(doc *Document, shell *ProductShell) {
	for _, s := range e.identity {
		cand := s.Identity(doc)
		if shell.Title == "" && cand.title != "" {
			shell.Title = cand.title
			shell.Notes = append(shell.Notes, fmt.Sprintf("%s-identity-strategy: title=%q", s.Name(), cand.title))
			e.logger.Debug("identity extracted", "strategy", s.Name(), "title", cand.title)
		}
		if shell.Description == "" && cand.description != "" {
			shell.Description = cand.description
		}
		if len(shell.Images) == 0 && len(cand.images) > 0 {
			shell.Images = cand.images
		}
	}
}

func (e *Extractor) resolvePrice(doc *Document, shell *ProductShell) {
	for _, s := range e.price {
		cand := s.Price(doc)
		if cand == nil {
			continue
		}
		cand.Source = s.Name()
		shell.Pricing = cand
		shell.Notes = append(shell.Notes, fmt.Sprintf("%s-price-strategy: price=%s", s.Name(), cand.Price.String()))
		e.logger.Debug("price extracted", "strategy", s.Name(), "price", cand.Price.String(), "currency", cand.Currency)
		return
	}
}

func (e *Extractor) resolveStock(doc *Document, shell *ProductShell) {
	for _, s := range e.stock {
		cand := s.Stock(doc)
		if cand == nil {
			continue
		}
		cand.Source = s.Name()
		shell.Stock = cand
		shell.Notes = append(shell.Notes, fmt.Sprintf("%s-stock-strategy: availability=%s", s.Name(), rawLabel(cand.Raw)))
		e.logger.Debug("stock extracted", "strategy", s.Name(), "status", cand.Status)
		return
	}
}

func (e *Extractor) resolveVariants(doc *Document, shell *ProductShell) {
	for _, s := range e.variants {
		cands := s.Variants(doc)
		if len(cands) == 0 {
			continue
		}
		for i := range cands {
			cands[i].Source = s.Name()
			cands[i].Attributes = normalizeAttributes(cands[i].Attributes)
		}
		shell.Variants = mergeVariants(shell.Variants, cands)
		shell.Notes = append(shell.Notes, fmt.Sprintf("%s-variant-strategy: found=%d", s.Name(), len(cands)))
		e.logger.Debug("variants extracted", "strategy", s.Name(), "count", len(cands))
	}
}

// rawLabel trims a schema.org URI down to its final segment for notes.
func rawLabel(s string) string {
	if i := strings.LastIndexAny(s, "/#"); i >= 0 && i < len(s)-1 {
		return s[i+1:]
	}
	return s
}
