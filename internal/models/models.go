package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultCategory is applied when a product arrives without a category.
const DefaultCategory = "Smartphones"

// ImageState tracks whether a product's image URLs have been checked for reachability.
type ImageState string

// Image states
const (
	ImageStateDraft    ImageState = "draft"
	ImageStateVerified ImageState = "verified"
)

// Specs holds free-form specifications plus the derived category tags.
type Specs map[string]string

// Get returns the value for key, or "" when absent.
func (s Specs) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// Merge copies every entry of other into s, overwriting existing keys.
func (s Specs) Merge(other map[string]string) {
	for k, v := range other {
		s[k] = v
	}
}

// Clone returns an independent copy.
func (s Specs) Clone() Specs {
	out := make(Specs, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Product represents one sellable phone model in the catalog
type Product struct {
	ID            string     `json:"id" bson:"_id"`
	Name          string     `json:"name" bson:"name"`
	Brand         string     `json:"brand" bson:"brand"`
	Category      string     `json:"category" bson:"category"`
	Price         int64      `json:"price" bson:"price"`
	Description   string     `json:"description" bson:"description"`
	Images        []string   `json:"images" bson:"images"`
	ImageURL      string     `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Specs         Specs      `json:"specs" bson:"specs"`
	InStock       bool       `json:"in_stock" bson:"in_stock"`
	StockQuantity int        `json:"stock_quantity" bson:"stock_quantity"`
	ImageState    ImageState `json:"image_state" bson:"image_state"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// MigrateImages moves a legacy single image_url into the images array.
func (p *Product) MigrateImages() {
	if len(p.Images) == 0 && p.ImageURL != "" {
		p.Images = []string{p.ImageURL}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Specs == nil {
		p.Specs = Specs{}
	}
}

// PrimaryImage returns the thumbnail URL, or "" when the product has no image.
func (p *Product) PrimaryImage() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return p.ImageURL
}

// IsComplete reports whether the product has at least one image.
func (p *Product) IsComplete() bool {
	return len(p.Images) > 0
}

// ProductPatch is a partial update. Nil fields are left untouched;
// Specs entries are merged key by key.
type ProductPatch struct {
	Name          *string
	Brand         *string
	Category      *string
	Price         *int64
	Description   *string
	Images        *[]string
	Specs         map[string]string
	InStock       *bool
	StockQuantity *int
	ImageState    *ImageState
	VerifiedAt    *time.Time
	UpdatedAt     time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p *ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Brand == nil && p.Category == nil && p.Price == nil &&
		p.Description == nil && p.Images == nil && len(p.Specs) == 0 && p.InStock == nil &&
		p.StockQuantity == nil && p.ImageState == nil && p.VerifiedAt == nil
}

// Apply writes the patch onto dst.
func (p *ProductPatch) Apply(dst *Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Brand != nil {
		dst.Brand = *p.Brand
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Images != nil {
		dst.Images = append([]string{}, (*p.Images)...)
	}
	if len(p.Specs) > 0 {
		if dst.Specs == nil {
			dst.Specs = Specs{}
		}
		dst.Specs.Merge(p.Specs)
	}
	if p.InStock != nil {
		dst.InStock = *p.InStock
	}
	if p.StockQuantity != nil {
		dst.StockQuantity = *p.StockQuantity
	}
	if p.ImageState != nil {
		dst.ImageState = *p.ImageState
	}
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		dst.VerifiedAt = &t
	}
	if !p.UpdatedAt.IsZero() {
		dst.UpdatedAt = p.UpdatedAt
	}
}

// SetFields flattens the patch into document paths for a $set update.
// Specs entries become "specs.<key>" so sibling keys survive.
func (p *ProductPatch) SetFields() map[string]any {
	set := make(map[string]any)
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Brand != nil {
		set["brand"] = *p.Brand
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Images != nil {
		set["images"] = append([]string{}, (*p.Images)...)
	}
	for k, v := range p.Specs {
		set["specs."+k] = v
	}
	if p.InStock != nil {
		set["in_stock"] = *p.InStock
	}
	if p.StockQuantity != nil {
		set["stock_quantity"] = *p.StockQuantity
	}
	if p.ImageState != nil {
		set["image_state"] = string(*p.ImageState)
	}
	if p.VerifiedAt != nil {
		set["verified_at"] = *p.VerifiedAt
	}
	if !p.UpdatedAt.IsZero() {
		set["updated_at"] = p.UpdatedAt
	}
	return set
}

// Order statuses
const (
	OrderStatusPending = "pending"
)

// LineItem snapshots a product and its price at purchase time.
type LineItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	Price     int64  `json:"price" bson:"price"`
}

// ShippingDetails is the delivery block of an order.
type ShippingDetails struct {
	FullName   string `json:"full_name" bson:"full_name"`
	Email      string `json:"email" bson:"email"`
	Phone      string `json:"phone,omitempty" bson:"phone,omitempty"`
	Address    string `json:"address" bson:"address"`
	City       string `json:"city" bson:"city"`
	PostalCode string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// Order represents a customer order
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	UserEmail       string          `json:"user_email" bson:"user_email"`
	Items           []LineItem      `json:"items" bson:"items"`
	ShippingDetails ShippingDetails `json:"shipping_details" bson:"shipping_details"`
	Total           int64           `json:"total" bson:"total"`
	Status          string          `json:"status" bson:"status"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
}

// ErrTotalOverflow is returned when an order total does not fit in int64.
var ErrTotalOverflow = errors.New("order total overflows")

// CalculateTotal sums price*quantity over the line items. Negative prices
// or quantities are not expected; the sum is checked for overflow.
func CalculateTotal(items []LineItem) (int64, error) {
	var total int64
	for _, item := range items {
		if item.Price < 0 || item.Quantity < 0 {
			return 0, fmt.Errorf("line item %q has a negative price or quantity", item.ProductID)
		}
		qty := int64(item.Quantity)
		if qty != 0 && item.Price > math.MaxInt64/qty {
			return 0, ErrTotalOverflow
		}
		line := item.Price * qty
		if total > math.MaxInt64-line {
			return 0, ErrTotalOverflow
		}
		total += line
	}
	return total, nil
}
