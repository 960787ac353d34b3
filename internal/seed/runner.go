package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/models"
	"catalog-service/internal/service"
	"catalog-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LockName is the redis lock shared by every batch job.
const LockName = "catalog-seed"

// Catalog is the part of service.CatalogService the batch jobs drive.
type Catalog interface {
	EnsureProduct(ctx context.Context, req *service.ProductRequest) (*models.Product, bool, error)
	ListProducts(ctx context.Context, filter service.ListFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id string, req *service.ProductUpdateRequest, validateImages bool) (*models.Product, error)
	RecategorizeAll(ctx context.Context) (*service.RecategorizeSummary, error)
	VerifyProductImages(ctx context.Context, id string) (*service.VerificationResult, error)
}

// Locker serializes batch jobs across operators. Implemented by redisclient.Client.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// Options tunes a Runner.
type Options struct {
	// RatePerSecond caps catalog writes; zero or less means unlimited.
	RatePerSecond float64
	LockTTL       time.Duration
}

// ItemError records one failed item of a batch.
type ItemError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report summarizes a batch job. A failed item never aborts the batch.
type Report struct {
	Job      string      `json:"job"`
	Total    int         `json:"total"`
	Created  int         `json:"created"`
	Updated  int         `json:"updated"`
	Verified int         `json:"verified"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Errors   []ItemError `json:"errors,omitempty"`
}

func (r *Report) fail(name string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ItemError{Name: name, Error: err.Error()})
	util.SeedItemsTotal.WithLabelValues(r.Job, "failed").Inc()
}

func (r *Report) count(result string) {
	util.SeedItemsTotal.WithLabelValues(r.Job, result).Inc()
}

// Runner executes the catalog batch jobs.
type Runner struct {
	catalog Catalog
	locker  Locker
	limiter *rate.Limiter
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewRunner creates a runner. locker may be nil when only one operator can run jobs.
func NewRunner(catalog Catalog, locker Locker, opts Options) *Runner {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &Runner{
		catalog: catalog,
		locker:  locker,
		limiter: rate.NewLimiter(limit, 1),
		lockTTL: opts.LockTTL,
		logger:  util.Component("seed"),
	}
}

func (r *Runner) withLock(ctx context.Context, fn func() error) error {
	if r.locker == nil {
		return fn()
	}

	token, err := r.locker.AcquireLock(ctx, LockName, r.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire seed lock: %w", err)
	}
	if token == "" {
		return apperrors.Conflict("another catalog batch job is running")
	}
	defer func() {
		if err := r.locker.ReleaseLock(context.Background(), LockName, token); err != nil {
			r.logger.Warn("Failed to release seed lock", zap.Error(err))
		}
	}()

	return fn()
}

// Load creates every product whose name is not in the catalog yet.
func (r *Runner) Load(ctx context.Context, products []service.ProductRequest) (*Report, error) {
	report := &Report{Job: "load", Total: len(products)}

	err := r.withLock(ctx, func() error {
		for i := range products {
			req := &products[i]
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}

			product, created, err := r.catalog.EnsureProduct(ctx, req)
			switch {
			case err != nil:
				r.logger.Warn("Seed item failed", zap.String("name", req.Name), zap.Error(err))
				report.fail(req.Name, err)
			case created:
				r.logger.Info("Seed item created",
					zap.String("name", product.Name),
					zap.String("product_id", product.ID))
				report.Created++
				report.count("created")
			default:
				r.logger.Debug("Seed item already present", zap.String("name", req.Name))
				report.Skipped++
				report.count("skipped")
			}
		}
		return nil
	})

	r.logSummary(report)
	return report, err
}

// Recategorize re-runs the categorization engine over the whole catalog.
func (r *Runner) Recategorize(ctx context.Context) (*service.RecategorizeSummary, error) {
	var summary *service.RecategorizeSummary
	err := r.withLock(ctx, func() error {
		var err error
		summary, err = r.catalog.RecategorizeAll(ctx)
		return err
	})
	return summary, err
}

// VerifyImages checks the images of every draft product, or of every
// product when all is set.
func (r *Runner) VerifyImages(ctx context.Context, all bool) (*Report, error) {
	report := &Report{Job: "verify_images"}

	err := r.withLock(ctx, func() error {
		products, err := r.catalog.ListProducts(ctx, service.ListFilter{})
		if err != nil {
			return err
		}
		report.Total = len(products)

		for _, p := range products {
			if !all && p.ImageState == models.ImageStateVerified {
				report.Skipped++
				report.count("skipped")
				continue
			}
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}

			result, err := r.catalog.VerifyProductImages(ctx, p.ID)
			switch {
			case err != nil:
				report.fail(p.Name, err)
			case result.Verified:
				report.Verified++
				report.count("verified")
			default:
				report.fail(p.Name, fmt.Errorf("unreachable images: %s", strings.Join(result.Report.Failed(), ", ")))
			}
		}
		return nil
	})

	r.logSummary(report)
	return report, err
}

// FixImages replaces the images of each named product. With validate
// false the URL shape check is skipped.
func (r *Runner) FixImages(ctx context.Context, fixes []ImageFix, validate bool) (*Report, error) {
	report := &Report{Job: "fix_images", Total: len(fixes)}

	err := r.withLock(ctx, func() error {
		for _, fix := range fixes {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}

			matches, err := r.catalog.ListProducts(ctx, service.ListFilter{Name: fix.Name})
			if err != nil {
				report.fail(fix.Name, err)
				continue
			}
			if len(matches) == 0 {
				report.fail(fix.Name, apperrors.NotFound("product", fix.Name))
				continue
			}

			images := append([]string{}, fix.Images...)
			for _, p := range matches {
				if _, err := r.catalog.UpdateProduct(ctx, p.ID, &service.ProductUpdateRequest{Images: &images}, validate); err != nil {
					report.fail(fix.Name, err)
					continue
				}
				r.logger.Info("Product images replaced",
					zap.String("name", p.Name),
					zap.String("product_id", p.ID),
					zap.Int("images", len(images)))
				report.Updated++
				report.count("updated")
			}
		}
		return nil
	})

	r.logSummary(report)
	return report, err
}

func (r *Runner) logSummary(report *Report) {
	r.logger.Info("Batch job finished",
		zap.String("job", report.Job),
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("verified", report.Verified),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
}
