package reconcile

import (
	"context"
	"fmt"
	"time"

	"printful-sync/internal/models"
	"printful-sync/internal/util"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// CatalogStore is the local catalog's capability interface. The executor
// mutates the catalog only through it. CreateProduct and CreateVariant must
// mirror the assigned local id into variant metadata under the local-id key.
// GetProduct and GetProductByExternalID eager-load variants and options;
// GetProductByExternalID returns (nil, nil) when no product carries the id.
type CatalogStore interface {
	CreateProduct(ctx context.Context, p models.NewProduct) (*models.LocalProduct, error)
	GetProduct(ctx context.Context, id string) (*models.LocalProduct, error)
	GetProductByExternalID(ctx context.Context, externalID string) (*models.LocalProduct, error)
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error
	DeleteProduct(ctx context.Context, id string) error
	CreateVariant(ctx context.Context, productID string, v models.NewVariant, options []models.OptionValue) (*models.LocalVariant, error)
	UpdateVariant(ctx context.Context, variantID string, upd models.VariantUpdate) error
	DeleteVariant(ctx context.Context, variantID string) error
	AddOptionValue(ctx context.Context, variantID, optionID, value string) error
	UpdateOptionValue(ctx context.Context, variantID, optionID, value string) error
	UpdateVariantPrices(ctx context.Context, variantID string, prices []models.Price) error
}

// RetryResult is the typed outcome of the product-create retry loop, exposed
// so callers and tests can assert on it without capturing log output.
type RetryResult struct {
	Succeeded bool
	Attempts  int
	LastErr   error
}

// OpFailure records one non-fatal operation failure. The affected entity is
// left in its prior state and execution continues.
type OpFailure struct {
	Kind       models.OpKind
	ExternalID string
	Err        error
}

// Result aggregates the outcome of one plan execution.
type Result struct {
	ProductID       string
	Created         bool
	CreateRetry     *RetryResult
	Executed        int
	VariantsCreated int
	VariantsUpdated int
	VariantsDeleted int
	Failures        []OpFailure
}

// Executor applies operation plans strictly in order against the catalog
// store. Product creation is retried with capped exponential backoff and
// full jitter; every other operation runs at most once, and its failure is
// isolated so one bad variant cannot abort the whole product. Nothing is
// ever rolled back.
type Executor struct {
	store    CatalogStore
	attempts int
	logger   *zap.Logger
}

// NewExecutor creates a plan executor. attempts caps product-create tries.
func NewExecutor(store CatalogStore, attempts int) *Executor {
	if attempts <= 0 {
		attempts = 3
	}
	return &Executor{
		store:    store,
		attempts: attempts,
		logger:   util.GetLogger(),
	}
}

// Execute runs the plan. The returned error is non-nil only when product
// creation exhausted its retries; all other failures are collected in
// Result.Failures.
func (e *Executor) Execute(ctx context.Context, plan *models.OperationPlan) (*Result, error) {
	res := &Result{ProductID: plan.LocalProductID}

	// Local product state resolved lazily for option-value binding; reset
	// whenever a variant mutation may have invalidated it.
	var resolved *models.LocalProduct

	for _, op := range plan.Ops {
		switch op.Kind {
		case models.OpCreateProduct:
			created, retry := e.createProduct(ctx, op.CreateProduct.Product)
			res.CreateRetry = retry
			if !retry.Succeeded {
				return res, fmt.Errorf("create product %s after %d attempts: %w",
					plan.ExternalID, retry.Attempts, retry.LastErr)
			}
			res.ProductID = created.ID
			res.Created = true
			res.VariantsCreated += len(op.CreateProduct.Product.Variants)
			util.ProductsCreatedTotal.Inc()
			util.VariantsCreatedTotal.Add(float64(len(op.CreateProduct.Product.Variants)))
			resolved = nil

		case models.OpUpdateProduct:
			if err := e.store.UpdateProduct(ctx, op.UpdateProduct.ProductID, op.UpdateProduct.Update); err != nil {
				e.fail(res, op.Kind, plan.ExternalID, err)
				continue
			}
			util.ProductsUpdatedTotal.Inc()

		case models.OpCreateVariant:
			p := op.CreateVariant
			if _, err := e.store.CreateVariant(ctx, p.ProductID, p.Variant, p.Options); err != nil {
				e.fail(res, op.Kind, p.ExternalID, err)
				continue
			}
			res.VariantsCreated++
			util.VariantsCreatedTotal.Inc()
			resolved = nil

		case models.OpUpdateVariant:
			p := op.UpdateVariant
			if err := e.store.UpdateVariant(ctx, p.VariantID, p.Update); err != nil {
				e.fail(res, op.Kind, p.ExternalID, err)
				continue
			}
			res.VariantsUpdated++
			util.VariantsUpdatedTotal.Inc()
			resolved = nil

		case models.OpDeleteVariant:
			p := op.DeleteVariant
			if err := e.store.DeleteVariant(ctx, p.VariantID); err != nil {
				e.fail(res, op.Kind, p.ExternalID, err)
				continue
			}
			res.VariantsDeleted++
			util.VariantsDeletedTotal.Inc()
			resolved = nil

		case models.OpSetOptionValue:
			var err error
			resolved, err = e.setOptionValue(ctx, res.ProductID, resolved, op.SetOptionValue)
			if err != nil {
				e.fail(res, op.Kind, op.SetOptionValue.VariantExternalID, err)
				continue
			}

		case models.OpSetVariantPrice:
			p := op.SetVariantPrice
			if err := e.store.UpdateVariantPrices(ctx, p.VariantID, p.Prices); err != nil {
				e.fail(res, op.Kind, p.ExternalID, err)
				continue
			}

		default:
			e.fail(res, op.Kind, plan.ExternalID, fmt.Errorf("unknown operation kind %q", op.Kind))
			continue
		}
		res.Executed++
	}

	return res, nil
}

// createProduct retries product creation with full-jitter exponential
// backoff, capped at e.attempts.
func (e *Executor) createProduct(ctx context.Context, p models.NewProduct) (*models.LocalProduct, *RetryResult) {
	retry := &RetryResult{}
	var created *models.LocalProduct

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.RandomizationFactor = 1 // full jitter

	operation := func() error {
		retry.Attempts++
		if retry.Attempts > 1 {
			util.ProductCreateRetriesTotal.Inc()
		}
		var err error
		created, err = e.store.CreateProduct(ctx, p)
		if err != nil {
			retry.LastErr = err
			e.logger.Warn("Product creation attempt failed",
				zap.String("external_id", p.ExternalID),
				zap.Int("attempt", retry.Attempts),
				zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.attempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		retry.LastErr = err
		return nil, retry
	}
	retry.Succeeded = true
	return created, retry
}

// setOptionValue binds one option value, resolving the variant's local id
// and the option id from the product relations. resolved is retrieved on
// first use and reused until a variant mutation invalidates it.
func (e *Executor) setOptionValue(ctx context.Context, productID string, resolved *models.LocalProduct, p *models.SetOptionValueOp) (*models.LocalProduct, error) {
	if productID == "" {
		return resolved, fmt.Errorf("no local product id for option %s", p.OptionTitle)
	}
	if resolved == nil {
		var err error
		resolved, err = e.store.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", productID, err)
		}
	}

	var optionID string
	for _, opt := range resolved.Options {
		if opt.Title == p.OptionTitle {
			optionID = opt.ID
			break
		}
	}
	if optionID == "" {
		return resolved, fmt.Errorf("option %q on product %s: %w", p.OptionTitle, productID, ErrOptionNotFound)
	}

	var variantID string
	for i := range resolved.Variants {
		if resolved.Variants[i].ExternalID() == p.VariantExternalID {
			variantID = resolved.Variants[i].ID
			break
		}
	}
	if variantID == "" {
		return resolved, fmt.Errorf("variant %s not found on product %s", p.VariantExternalID, productID)
	}

	if p.Update {
		return resolved, e.store.UpdateOptionValue(ctx, variantID, optionID, p.Value)
	}
	return resolved, e.store.AddOptionValue(ctx, variantID, optionID, p.Value)
}

func (e *Executor) fail(res *Result, kind models.OpKind, externalID string, err error) {
	res.Failures = append(res.Failures, OpFailure{Kind: kind, ExternalID: externalID, Err: err})
	util.OperationFailuresTotal.WithLabelValues(string(kind)).Inc()
	e.logger.Error("Plan operation failed",
		zap.String("kind", string(kind)),
		zap.String("external_id", externalID),
		zap.Error(err))
}
