package store

import (
	"strings"

	"catalog-service/internal/models"
)

// ProductFilter narrows a product listing. Every condition must hold.
// Equals keys are document paths such as "brand", "in_stock" or
// "specs.price_tier"; values are strings or bools.
type ProductFilter struct {
	Equals   map[string]any
	MinPrice *int64
	MaxPrice *int64
}

// IsEmpty reports whether the filter matches every product.
func (f ProductFilter) IsEmpty() bool {
	return len(f.Equals) == 0 && f.MinPrice == nil && f.MaxPrice == nil
}

// Matches evaluates the filter against an in-memory record.
func (f ProductFilter) Matches(p *models.Product) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	for path, want := range f.Equals {
		got, ok := fieldValue(p, path)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func fieldValue(p *models.Product, path string) (any, bool) {
	if key, ok := strings.CutPrefix(path, "specs."); ok {
		v, present := p.Specs[key]
		return v, present
	}
	switch path {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "brand":
		return p.Brand, true
	case "category":
		return p.Category, true
	case "in_stock":
		return p.InStock, true
	case "image_state":
		return string(p.ImageState), true
	}
	return nil, false
}

// containment nests dotted paths into the document shape used by a
// JSONB @> query: {"specs.use_case": "Gaming"} becomes
// {"specs": {"use_case": "Gaming"}}.
func containment(equals map[string]any) map[string]any {
	doc := make(map[string]any)
	for path, v := range equals {
		parts := strings.Split(path, ".")
		cur := doc
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[part] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return doc
}
