package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/categorize"
	"catalog-service/internal/imagecheck"
	"catalog-service/internal/models"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher is satisfied by broker.EventPublisher and broker.NopPublisher.
type EventPublisher interface {
	PublishProductEvent(ctx context.Context, event *models.ProductEvent) error
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
}

// ImageVerifier checks image reachability.
type ImageVerifier interface {
	Verify(ctx context.Context, urls []string) (*imagecheck.Report, error)
}

// CatalogOptions tunes CatalogService behaviour.
type CatalogOptions struct {
	// VerifyOnCreate rejects a new product whose images are unreachable.
	VerifyOnCreate  bool
	DefaultCategory string
}

// CatalogService handles product business logic
type CatalogService struct {
	store     store.ProductStore
	verifier  ImageVerifier
	publisher EventPublisher
	opts      CatalogOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	productStore store.ProductStore,
	verifier ImageVerifier,
	publisher EventPublisher,
	opts CatalogOptions,
) *CatalogService {
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = models.DefaultCategory
	}
	return &CatalogService{
		store:     productStore,
		verifier:  verifier,
		publisher: publisher,
		opts:      opts,
		logger:    util.GetLogger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProductRequest is the body of a create request and one entry of the seed file.
type ProductRequest struct {
	Name          string            `json:"name" yaml:"name" validate:"required,notblank,max=200"`
	Brand         string            `json:"brand" yaml:"brand" validate:"required,notblank,max=100"`
	Category      string            `json:"category" yaml:"category"`
	Price         int64             `json:"price" yaml:"price" validate:"gte=0"`
	Description   string            `json:"description" yaml:"description"`
	Images        []string          `json:"images" yaml:"images"`
	ImageURL      string            `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Specs         map[string]string `json:"specs" yaml:"specs" validate:"omitempty,dive,keys,speckey,endkeys"`
	InStock       *bool             `json:"in_stock,omitempty" yaml:"in_stock,omitempty"`
	StockQuantity int               `json:"stock_quantity" yaml:"stock_quantity" validate:"gte=0"`
}

// normalizedImages folds the legacy single image_url into the images list.
func (r *ProductRequest) normalizedImages() []string {
	if len(r.Images) == 0 && r.ImageURL != "" {
		return []string{r.ImageURL}
	}
	return r.Images
}

// ProductUpdateRequest is a partial update; nil fields are left untouched
// and specs entries are merged key by key.
type ProductUpdateRequest struct {
	Name          *string           `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Brand         *string           `json:"brand,omitempty" validate:"omitempty,notblank,max=100"`
	Category      *string           `json:"category,omitempty"`
	Price         *int64            `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description   *string           `json:"description,omitempty"`
	Images        *[]string         `json:"images,omitempty"`
	ImageURL      *string           `json:"image_url,omitempty"`
	Specs         map[string]string `json:"specs,omitempty" validate:"omitempty,dive,keys,speckey,endkeys"`
	InStock       *bool             `json:"in_stock,omitempty"`
	StockQuantity *int              `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
}

// ListFilter is the query surface of ListProducts.
type ListFilter struct {
	Name     string
	Brand    string
	Category string
	InStock  *bool
	// Tags maps a tag key (categorize.TagKeys) to the required value.
	Tags     map[string]string
	MinPrice *int64
	MaxPrice *int64
}

// PriceRange is the min and max catalog price.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FilterOptions lists the distinct values available for each facet.
type FilterOptions struct {
	Brands              []string   `json:"brands"`
	Categories          []string   `json:"categories"`
	PriceTiers          []string   `json:"price_tiers"`
	UseCases            []string   `json:"use_cases"`
	FormFactors         []string   `json:"form_factors"`
	SoftwareExperiences []string   `json:"software_experiences"`
	ChipsetCategories   []string   `json:"chipset_categories"`
	MarketOrigins       []string   `json:"market_origins"`
	TargetDemographics  []string   `json:"target_demographics"`
	PriceRange          PriceRange `json:"price_range"`
}

// RecategorizeSummary reports a batch re-tagging run.
type RecategorizeSummary struct {
	Total   int              `json:"total"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Errors  []string         `json:"errors,omitempty"`
	Stats   categorize.Stats `json:"stats"`
}

// VerificationResult is the outcome of VerifyProductImages.
type VerificationResult struct {
	Product  *models.Product    `json:"product"`
	Verified bool               `json:"verified"`
	Report   *imagecheck.Report `json:"report"`
}

// CreateProduct validates, categorizes and stores a new product in draft state
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	images := req.normalizedImages()
	if err := imagecheck.ValidateShape(images); err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		Name:          strings.TrimSpace(req.Name),
		Brand:         strings.TrimSpace(req.Brand),
		Category:      req.Category,
		Price:         req.Price,
		Description:   req.Description,
		Images:        append([]string{}, images...),
		Specs:         models.Specs{},
		InStock:       true,
		StockQuantity: req.StockQuantity,
		ImageState:    models.ImageStateDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if product.Category == "" {
		product.Category = s.opts.DefaultCategory
	}
	if req.InStock != nil {
		product.InStock = *req.InStock
	}
	product.Specs.Merge(req.Specs)

	tags := categorize.Product(product)
	product.Specs.Merge(tags.Specs())
	util.CategorizationsTotal.WithLabelValues(tags.UseCase).Inc()

	if s.opts.VerifyOnCreate {
		report, err := s.verifier.Verify(ctx, product.Images)
		if err != nil {
			return nil, fmt.Errorf("failed to verify images: %w", err)
		}
		if !report.OK() {
			return nil, apperrors.Validation(fmt.Sprintf("image URLs are not reachable: %s",
				strings.Join(report.Failed(), ", ")))
		}
		product.ImageState = models.ImageStateVerified
		product.VerifiedAt = &now
	}

	start := time.Now()
	if err := s.store.CreateProduct(ctx, product); err != nil {
		util.SpanError(span, err)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	util.StoreOperationLatency.WithLabelValues("create_product").Observe(time.Since(start).Seconds())

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("price_tier", tags.PriceTier),
		zap.String("use_case", tags.UseCase))

	s.publish(ctx, models.EventTypeProductCreated, product, true)
	return product, nil
}

// EnsureProduct creates the product unless one with the exact same name
// exists. The boolean reports whether a record was created.
func (s *CatalogService) EnsureProduct(ctx context.Context, req *ProductRequest) (*models.Product, bool, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.EnsureProduct")
	defer span.End()

	existing, err := s.store.FindProductByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up product by name: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	product, err := s.CreateProduct(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return product, true, nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	return s.store.GetProduct(ctx, id)
}

// ListProducts returns the products matching every condition in filter
func (s *CatalogService) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	storeFilter, err := filter.toStoreFilter()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	products, err := s.store.ListProducts(ctx, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	util.StoreOperationLatency.WithLabelValues("list_products").Observe(time.Since(start).Seconds())
	return products, nil
}

func (f ListFilter) toStoreFilter() (store.ProductFilter, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return store.ProductFilter{}, apperrors.Validation("min_price must not exceed max_price")
	}

	equals := make(map[string]any)
	if f.Name != "" {
		equals["name"] = f.Name
	}
	if f.Brand != "" {
		equals["brand"] = f.Brand
	}
	if f.Category != "" {
		equals["category"] = f.Category
	}
	if f.InStock != nil {
		equals["in_stock"] = *f.InStock
	}
	for key, value := range f.Tags {
		if !isTagKey(key) {
			return store.ProductFilter{}, apperrors.Validation(fmt.Sprintf("unknown tag filter %q", key))
		}
		if value != "" {
			equals["specs."+key] = value
		}
	}

	return store.ProductFilter{Equals: equals, MinPrice: f.MinPrice, MaxPrice: f.MaxPrice}, nil
}

func isTagKey(key string) bool {
	for _, k := range categorize.TagKeys {
		if k == key {
			return true
		}
	}
	return false
}

// UpdateProduct merges the request into the stored product. With
// validateImages false the image shape check is skipped, so an empty
// images list is accepted on this path. Changing images resets the
// record to draft; changing a categorization input re-runs the engine.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, req *ProductUpdateRequest, validateImages bool) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, apperrors.Validation("field 'name' must not be blank")
	}
	if req.Brand != nil && strings.TrimSpace(*req.Brand) == "" {
		return nil, apperrors.Validation("field 'brand' must not be blank")
	}

	existing, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := &models.ProductPatch{
		Name:          trimmed(req.Name),
		Brand:         trimmed(req.Brand),
		Category:      req.Category,
		Price:         req.Price,
		Description:   req.Description,
		Specs:         copySpecs(req.Specs),
		InStock:       req.InStock,
		StockQuantity: req.StockQuantity,
	}

	images := req.Images
	if images == nil && req.ImageURL != nil {
		single := []string{*req.ImageURL}
		images = &single
	}
	imagesChanged := false
	if images != nil {
		if validateImages {
			if err := imagecheck.ValidateShape(*images); err != nil {
				return nil, err
			}
		}
		patch.Images = images
		if !equalStrings(existing.Images, *images) {
			imagesChanged = true
			draft := models.ImageStateDraft
			patch.ImageState = &draft
		}
	}

	if patch.IsEmpty() {
		return existing, nil
	}

	if patch.Name != nil || patch.Brand != nil || patch.Price != nil || len(patch.Specs) > 0 {
		merged := *existing
		merged.Specs = existing.Specs.Clone()
		patch.Apply(&merged)
		tags := categorize.Product(&merged)
		if patch.Specs == nil {
			patch.Specs = map[string]string{}
		}
		for k, v := range tags.Specs() {
			patch.Specs[k] = v
		}
		util.CategorizationsTotal.WithLabelValues(tags.UseCase).Inc()
	}
	patch.UpdatedAt = s.now()

	updated, err := s.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	util.ProductsUpdatedTotal.Inc()
	s.logger.Info("Product updated",
		zap.String("product_id", id),
		zap.Bool("images_changed", imagesChanged),
		zap.Bool("validate_images", validateImages))

	s.publish(ctx, models.EventTypeProductUpdated, updated, imagesChanged)
	return updated, nil
}

// DeleteProduct physically removes a product
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	util.ProductsDeletedTotal.Inc()
	s.logger.Info("Product deleted", zap.String("product_id", id))

	s.publish(ctx, models.EventTypeProductDeleted, &models.Product{ID: id}, false)
	return nil
}

// FilterOptions scans the whole catalog and collects the distinct value
// set of every facet.
func (s *CatalogService) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.FilterOptions")
	defer span.End()

	products, err := s.store.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	sets := map[string]map[string]struct{}{}
	add := func(facet, value string) {
		if value == "" {
			return
		}
		if sets[facet] == nil {
			sets[facet] = map[string]struct{}{}
		}
		sets[facet][value] = struct{}{}
	}

	var priceRange PriceRange
	for i, p := range products {
		add("brand", p.Brand)
		add("category", p.Category)
		for _, key := range categorize.TagKeys {
			add(key, p.Specs.Get(key))
		}
		if i == 0 || p.Price < priceRange.Min {
			priceRange.Min = p.Price
		}
		if i == 0 || p.Price > priceRange.Max {
			priceRange.Max = p.Price
		}
	}

	return &FilterOptions{
		Brands:              sorted(sets["brand"]),
		Categories:          sorted(sets["category"]),
		PriceTiers:          sorted(sets[categorize.KeyPriceTier]),
		UseCases:            sorted(sets[categorize.KeyUseCase]),
		FormFactors:         sorted(sets[categorize.KeyFormFactor]),
		SoftwareExperiences: sorted(sets[categorize.KeySoftwareExperience]),
		ChipsetCategories:   sorted(sets[categorize.KeyChipsetCategory]),
		MarketOrigins:       sorted(sets[categorize.KeyMarketOrigin]),
		TargetDemographics:  sorted(sets[categorize.KeyTargetDemographic]),
		PriceRange:          priceRange,
	}, nil
}

// RecategorizeProduct recomputes and stores the tags of one product
func (s *CatalogService) RecategorizeProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.RecategorizeProduct")
	defer span.End()

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, _, err := s.recategorize(ctx, product)
	return updated, err
}

func (s *CatalogService) recategorize(ctx context.Context, product *models.Product) (*models.Product, categorize.Tags, error) {
	tags := categorize.Product(product)
	patch := &models.ProductPatch{Specs: tags.Specs(), UpdatedAt: s.now()}

	updated, err := s.store.UpdateProduct(ctx, product.ID, patch)
	if err != nil {
		return nil, tags, fmt.Errorf("failed to store tags for %s: %w", product.ID, err)
	}
	util.CategorizationsTotal.WithLabelValues(tags.UseCase).Inc()
	return updated, tags, nil
}

// RecategorizeAll re-tags every product. Failures are counted and the run
// continues with the next product.
func (s *CatalogService) RecategorizeAll(ctx context.Context) (*RecategorizeSummary, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.RecategorizeAll")
	defer span.End()

	products, err := s.store.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	summary := &RecategorizeSummary{Total: len(products), Stats: categorize.Stats{}}
	for i := range products {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		product := &products[i]
		_, tags, err := s.recategorize(ctx, product)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err.Error())
			util.SeedItemsTotal.WithLabelValues("categorize", "failed").Inc()
			s.logger.Error("Failed to categorize product",
				zap.String("product_id", product.ID),
				zap.String("name", product.Name),
				zap.Error(err))
			continue
		}

		summary.Updated++
		summary.Stats.Add(tags)
		util.SeedItemsTotal.WithLabelValues("categorize", "updated").Inc()
		s.logger.Info("Categorized product",
			zap.String("product_id", product.ID),
			zap.String("name", product.Name),
			zap.String("price_tier", tags.PriceTier),
			zap.String("use_case", tags.UseCase))
	}

	s.logger.Info("Categorization complete",
		zap.Int("total", summary.Total),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// VerifyProductImages checks every image URL of a product. The product is
// promoted to verified only when all of them answer 200; otherwise it
// stays in draft.
func (s *CatalogService) VerifyProductImages(ctx context.Context, id string) (*VerificationResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.VerifyProductImages")
	defer span.End()

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsComplete() {
		return nil, apperrors.Validation("product has no images to verify")
	}

	report, err := s.verifier.Verify(ctx, product.Images)
	if err != nil {
		util.SpanError(span, err)
		return nil, fmt.Errorf("failed to verify images: %w", err)
	}

	now := s.now()
	state := models.ImageStateDraft
	patch := &models.ProductPatch{ImageState: &state, UpdatedAt: now}
	if report.OK() {
		state = models.ImageStateVerified
		patch.VerifiedAt = &now
	}

	updated, err := s.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		util.SpanError(span, err)
		return nil, fmt.Errorf("failed to store image state: %w", err)
	}

	s.logger.Info("Product images checked",
		zap.String("product_id", id),
		zap.String("image_state", string(state)),
		zap.Strings("failed_urls", report.Failed()))

	if report.OK() {
		s.publish(ctx, models.EventTypeProductVerified, updated, false)
	}
	return &VerificationResult{Product: updated, Verified: report.OK(), Report: report}, nil
}

func (s *CatalogService) publish(ctx context.Context, eventType string, p *models.Product, imagesChanged bool) {
	event := &models.ProductEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		ProductID:     p.ID,
		Name:          p.Name,
		Brand:         p.Brand,
		ImageState:    p.ImageState,
		ImagesChanged: imagesChanged,
	}

	if err := s.publisher.PublishProductEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish product event",
			zap.String("event_type", eventType),
			zap.String("product_id", p.ID),
			zap.Error(err))
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func copySpecs(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
