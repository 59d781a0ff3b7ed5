package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"printful-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu             sync.Mutex
	descriptors    map[int64]*models.CatalogVariantInfo
	guides         map[int64]*models.SizeGuide
	descriptorErr  error
	guideErr       error
	descriptorGets int
	guideGets      int
}

func (f *fakeReader) GetCatalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptorGets++
	if f.descriptorErr != nil {
		return nil, f.descriptorErr
	}
	info, ok := f.descriptors[variantID]
	if !ok {
		return nil, errors.New("unknown catalog variant")
	}
	return info, nil
}

func (f *fakeReader) GetSizeGuide(ctx context.Context, catalogProductID int64) (*models.SizeGuide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guideGets++
	if f.guideErr != nil {
		return nil, f.guideErr
	}
	return f.guides[catalogProductID], nil
}

type fakeCache struct {
	mu       sync.Mutex
	variants map[int64]*models.CatalogVariantInfo
	guides   map[int64]*models.SizeGuide
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		variants: make(map[int64]*models.CatalogVariantInfo),
		guides:   make(map[int64]*models.SizeGuide),
	}
}

func (c *fakeCache) GetCatalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variants[variantID], nil
}

func (c *fakeCache) SetCatalogVariant(ctx context.Context, variantID int64, info *models.CatalogVariantInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variants[variantID] = info
	return nil
}

func (c *fakeCache) GetSizeGuide(ctx context.Context, catalogProductID int64) (*models.SizeGuide, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guides[catalogProductID], nil
}

func (c *fakeCache) SetSizeGuide(ctx context.Context, catalogProductID int64, guide *models.SizeGuide) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guides[catalogProductID] = guide
	return nil
}

func remoteClassicTee() *models.RemoteProduct {
	return &models.RemoteProduct{
		SyncProduct: models.SyncProduct{ID: 301, Name: "Classic Tee"},
		SyncVariants: []models.SyncVariant{
			{
				ID:          101,
				SKU:         "TEE-M-BLK",
				RetailPrice: "19.99",
				Currency:    "EUR",
				VariantID:   4011,
				Product:     models.SyncVariantProduct{VariantID: 4011, ProductID: 71},
				Files: []models.VariantFile{
					{Type: "preview", PreviewURL: "https://img/front.png"},
				},
			},
			{
				ID:          102,
				SKU:         "TEE-L-BLK",
				RetailPrice: "21,50",
				Currency:    "EUR",
				VariantID:   4012,
				Product:     models.SyncVariantProduct{VariantID: 4012, ProductID: 71},
				Files: []models.VariantFile{
					{Type: "preview", PreviewURL: "https://img/front.png"},
				},
			},
		},
	}
}

func classicTeeReader() *fakeReader {
	return &fakeReader{
		descriptors: map[int64]*models.CatalogVariantInfo{
			4011: {Variant: models.CatalogVariant{ID: 4011, ProductID: 71, Size: strptr("M"), Color: strptr("Black")}},
			4012: {Variant: models.CatalogVariant{ID: 4012, ProductID: 71, Size: strptr("L"), Color: strptr("Black")}},
		},
		guides: map[int64]*models.SizeGuide{
			71: {ProductID: 71, SizeTables: []byte(`[{"type":"measure_yourself"}]`)},
		},
	}
}

func TestSnapshot(t *testing.T) {
	reader := classicTeeReader()
	f := NewFetcher(reader, nil, 2)

	snap, err := f.Snapshot(context.Background(), remoteClassicTee())
	require.NoError(t, err)

	assert.Equal(t, int64(301), snap.Product.ID)
	assert.Equal(t, []string{"size", "color"}, snap.Options)
	assert.Equal(t, []string{"https://img/front.png"}, snap.Images)

	require.Len(t, snap.Variants, 2)
	v1 := snap.Variants[0]
	assert.Equal(t, "101", v1.ExternalID())
	assert.Equal(t, "Classic Tee - M / Black", v1.Title)
	assert.Equal(t, models.Price{Amount: 1999, Currency: "eur"}, v1.Price)
	require.NotNil(t, v1.SizeGuide)
	assert.NoError(t, v1.Err)

	v2 := snap.Variants[1]
	assert.Equal(t, models.Price{Amount: 2150, Currency: "eur"}, v2.Price)
}

func TestSnapshotDescriptorFailureAborts(t *testing.T) {
	reader := classicTeeReader()
	reader.descriptorErr = errors.New("catalog down")
	f := NewFetcher(reader, nil, 2)

	_, err := f.Snapshot(context.Background(), remoteClassicTee())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptor")
}

func TestSnapshotSizeGuideFailureTolerated(t *testing.T) {
	reader := classicTeeReader()
	reader.guideErr = errors.New("sizes endpoint down")
	f := NewFetcher(reader, nil, 2)

	snap, err := f.Snapshot(context.Background(), remoteClassicTee())
	require.NoError(t, err)
	for _, v := range snap.Variants {
		assert.Nil(t, v.SizeGuide)
	}
}

func TestSnapshotInvalidPriceMarksVariant(t *testing.T) {
	remote := remoteClassicTee()
	remote.SyncVariants[1].RetailPrice = "free"
	f := NewFetcher(classicTeeReader(), nil, 2)

	snap, err := f.Snapshot(context.Background(), remote)
	require.NoError(t, err)

	assert.NoError(t, snap.Variants[0].Err)
	assert.ErrorIs(t, snap.Variants[1].Err, ErrInvalidAmount)
	// The variant stays in the snapshot so its local counterpart survives.
	assert.Equal(t, "102", snap.Variants[1].ExternalID())
}

func TestSnapshotUsesCache(t *testing.T) {
	reader := classicTeeReader()
	cache := newFakeCache()
	f := NewFetcher(reader, cache, 2)

	_, err := f.Snapshot(context.Background(), remoteClassicTee())
	require.NoError(t, err)
	firstGets := reader.descriptorGets
	firstGuideGets := reader.guideGets
	assert.Equal(t, 2, firstGets)

	_, err = f.Snapshot(context.Background(), remoteClassicTee())
	require.NoError(t, err)
	assert.Equal(t, firstGets, reader.descriptorGets)
	assert.Equal(t, firstGuideGets, reader.guideGets)
}
