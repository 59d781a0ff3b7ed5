package reconcile

import (
	"context"
	"fmt"
	"strconv"

	"printful-sync/internal/models"
	"printful-sync/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CatalogReader reads catalog descriptors and size guides from the provider.
type CatalogReader interface {
	GetCatalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error)
	GetSizeGuide(ctx context.Context, catalogProductID int64) (*models.SizeGuide, error)
}

// SnapshotCache caches catalog descriptors and size guides between runs.
// A miss is (nil, nil); cache errors are treated as misses.
type SnapshotCache interface {
	GetCatalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error)
	SetCatalogVariant(ctx context.Context, variantID int64, info *models.CatalogVariantInfo) error
	GetSizeGuide(ctx context.Context, catalogProductID int64) (*models.SizeGuide, error)
	SetSizeGuide(ctx context.Context, catalogProductID int64, guide *models.SizeGuide) error
}

// Snapshot is a fully normalized remote product, ready for planning. The
// planner performs no I/O of its own.
type Snapshot struct {
	Product  models.SyncProduct
	Variants []SnapshotVariant
	Options  []string
	Images   []string
}

// SnapshotVariant pairs a sync variant with its catalog descriptor, size
// guide and normalized price. Err is set when the price failed to normalize;
// such variants stay in the snapshot (their local counterparts must not be
// deleted) but produce no create/update operations.
type SnapshotVariant struct {
	Remote     models.SyncVariant
	Descriptor models.CatalogVariant
	SizeGuide  *models.SizeGuide
	Price      models.Price
	Title      string
	Err        error
}

// ExternalID returns the sync-variant id as stored in local metadata.
func (v *SnapshotVariant) ExternalID() string {
	return strconv.FormatInt(v.Remote.ID, 10)
}

// Fetcher assembles snapshots. Per-variant descriptor and size-guide fetches
// fan out concurrently and are joined before the snapshot is returned; they
// populate disjoint fields, so no ordering is needed among them.
type Fetcher struct {
	remote      CatalogReader
	cache       SnapshotCache
	concurrency int
	logger      *zap.Logger
}

// NewFetcher creates a snapshot fetcher. cache may be nil.
func NewFetcher(remote CatalogReader, cache SnapshotCache, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Fetcher{
		remote:      remote,
		cache:       cache,
		concurrency: concurrency,
		logger:      util.GetLogger(),
	}
}

// Snapshot normalizes a remote product. A descriptor fetch failure aborts
// the snapshot (and with it the product's reconciliation); a size-guide
// failure yields an absent guide and is never propagated.
func (f *Fetcher) Snapshot(ctx context.Context, remote *models.RemoteProduct) (*Snapshot, error) {
	snap := &Snapshot{
		Product:  remote.SyncProduct,
		Variants: make([]SnapshotVariant, len(remote.SyncVariants)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i := range remote.SyncVariants {
		i := i
		v := remote.SyncVariants[i]
		g.Go(func() error {
			info, err := f.catalogVariant(gctx, v.VariantID)
			if err != nil {
				return fmt.Errorf("variant %d: descriptor: %w", v.ID, err)
			}
			snap.Variants[i] = SnapshotVariant{
				Remote:     v,
				Descriptor: info.Variant,
				SizeGuide:  f.sizeGuide(gctx, v.Product.ProductID),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	descriptors := make([]models.CatalogVariant, len(snap.Variants))
	for i := range snap.Variants {
		descriptors[i] = snap.Variants[i].Descriptor
	}
	snap.Options = DeriveOptions(descriptors)
	snap.Images = CollectImages(remote.SyncVariants)

	for i := range snap.Variants {
		sv := &snap.Variants[i]
		sv.Title = VariantTitle(remote.SyncProduct.Name, sv.Descriptor.Size, sv.Descriptor.Color)
		price, err := NormalizePrice(sv.Remote.RetailPrice, sv.Remote.Currency)
		if err != nil {
			sv.Err = err
			util.VariantsSkippedTotal.WithLabelValues("invalid_amount").Inc()
			f.logger.Warn("Variant price failed to normalize",
				zap.Int64("variant_id", sv.Remote.ID),
				zap.String("retail_price", sv.Remote.RetailPrice),
				zap.Error(err))
			continue
		}
		sv.Price = price
	}

	return snap, nil
}

func (f *Fetcher) catalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error) {
	if f.cache != nil {
		if info, err := f.cache.GetCatalogVariant(ctx, variantID); err == nil && info != nil {
			return info, nil
		}
	}

	info, err := f.remote.GetCatalogVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.SetCatalogVariant(ctx, variantID, info); err != nil {
			f.logger.Warn("Failed to cache catalog variant",
				zap.Int64("variant_id", variantID),
				zap.Error(err))
		}
	}
	return info, nil
}

// sizeGuide fetches sizing metadata. Size guides are cosmetic, so every
// failure collapses to an absent guide.
func (f *Fetcher) sizeGuide(ctx context.Context, catalogProductID int64) *models.SizeGuide {
	if catalogProductID == 0 {
		return nil
	}
	if f.cache != nil {
		if guide, err := f.cache.GetSizeGuide(ctx, catalogProductID); err == nil && guide != nil {
			return guide
		}
	}

	guide, err := f.remote.GetSizeGuide(ctx, catalogProductID)
	if err != nil {
		f.logger.Warn("Size guide unavailable",
			zap.Int64("catalog_product_id", catalogProductID),
			zap.Error(err))
		return nil
	}

	if f.cache != nil {
		if err := f.cache.SetSizeGuide(ctx, catalogProductID, guide); err != nil {
			f.logger.Warn("Failed to cache size guide",
				zap.Int64("catalog_product_id", catalogProductID),
				zap.Error(err))
		}
	}
	return guide
}
