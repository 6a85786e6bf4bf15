package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	json "github.com/goccy/go-json"
)

// Blob sources.
const (
	blobSourceLDJSON   = "ld+json"
	blobSourceInline   = "inline"
	blobSourceDataAttr = "data-attr"
)

// maxBlobs bounds the JSON pre-pass on pathological pages.
const maxBlobs = 50

// JSONBlob is one JSON object discovered during the pre-pass.
type JSONBlob struct {
	Source string
	Data   map[string]interface{}
}

// Document is the parsed form of a fetched page: a query-able DOM plus
// every JSON payload discoverable from JSON-LD scripts, inline script
// object literals, and data attributes.
type Document struct {
	dom       *goquery.Document
	JSONBlobs []JSONBlob
}

// ParseDocument builds a Document from raw HTML. It returns an error
// only when the HTML cannot be parsed at all; partial documents are
// returned as-is.
func ParseDocument(html string) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	doc := &Document{dom: dom}
	doc.collectLDJSON()
	doc.collectInlineJSON()
	doc.collectDataAttrJSON()
	return doc, nil
}

// LDJSONBlobs returns the blobs that came from ld+json scripts.
func (d *Document) LDJSONBlobs() []JSONBlob {
	var out []JSONBlob
	for _, b := range d.JSONBlobs {
		if b.Source == blobSourceLDJSON {
			out = append(out, b)
		}
	}
	return out
}

// EmbeddedBlobs returns the blobs from inline scripts and data
// attributes, excluding structured-data scripts.
func (d *Document) EmbeddedBlobs() []JSONBlob {
	var out []JSONBlob
	for _, b := range d.JSONBlobs {
		if b.Source != blobSourceLDJSON {
			out = append(out, b)
		}
	}
	return out
}

func (d *Document) collectLDJSON() {
	d.dom.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return
		}
		d.addDecoded(blobSourceLDJSON, decoded)
	})
}

// addDecoded flattens a decoded JSON-LD value into object blobs,
// expanding top-level arrays and @graph containers.
func (d *Document) addDecoded(source string, decoded interface{}) {
	switch v := decoded.(type) {
	case map[string]interface{}:
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, entry := range graph {
				if obj, ok := entry.(map[string]interface{}); ok {
					d.addBlob(source, obj)
				}
			}
			return
		}
		d.addBlob(source, v)
	case []interface{}:
		for _, entry := range v {
			if obj, ok := entry.(map[string]interface{}); ok {
				d.addBlob(source, obj)
			}
		}
	}
}

func (d *Document) addBlob(source string, obj map[string]interface{}) {
	if len(obj) == 0 || len(d.JSONBlobs) >= maxBlobs {
		return
	}
	d.JSONBlobs = append(d.JSONBlobs, JSONBlob{Source: source, Data: obj})
}

func (d *Document) collectInlineJSON() {
	d.dom.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if t, _ := s.Attr("type"); strings.Contains(t, "ld+json") {
			return
		}
		body := s.Text()
		if !strings.Contains(body, "{") {
			return
		}
		for _, literal := range jsonObjectLiterals(body) {
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(literal), &obj); err != nil {
				continue
			}
			d.addBlob(blobSourceInline, obj)
		}
	})
}

func (d *Document) collectDataAttrJSON() {
	d.dom.Find("body *").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			for _, attr := range node.Attr {
				if !strings.HasPrefix(attr.Key, "data-") {
					continue
				}
				val := strings.TrimSpace(attr.Val)
				if !strings.HasPrefix(val, "{") && !strings.HasPrefix(val, "[") {
					continue
				}
				var decoded interface{}
				if err := json.Unmarshal([]byte(val), &decoded); err != nil {
					continue
				}
				d.addDecoded(blobSourceDataAttr, decoded)
			}
		}
	})
}

// jsonObjectLiterals walks script text and returns every balanced
// top-level {...} span. String contents are skipped so braces inside
// quoted values don't break the balance.
func jsonObjectLiterals(script string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range script {
		switch {
		case escaped:
			escaped = false
		case inString:
			if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
		case r == '"':
			inString = true
		case r == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case r == '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, script[start:i+1])
				start = -1
			}
		}
	}
	return out
}
