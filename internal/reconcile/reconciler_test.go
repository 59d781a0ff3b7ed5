package reconcile

import (
	"testing"

	"printful-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotVariant(id, catalogVariantID, catalogProductID int64, sku, price string, size, color *string) SnapshotVariant {
	sv := SnapshotVariant{
		Remote: models.SyncVariant{
			ID:          id,
			SKU:         sku,
			RetailPrice: price,
			Currency:    "EUR",
			VariantID:   catalogVariantID,
			Product:     models.SyncVariantProduct{VariantID: catalogVariantID, ProductID: catalogProductID},
		},
		Descriptor: models.CatalogVariant{
			ID:        catalogVariantID,
			ProductID: catalogProductID,
			Size:      size,
			Color:     color,
		},
	}
	sv.Title = VariantTitle("Classic Tee", size, color)
	if p, err := NormalizePrice(price, "EUR"); err != nil {
		sv.Err = err
	} else {
		sv.Price = p
	}
	return sv
}

func classicTeeSnapshot(variants ...SnapshotVariant) *Snapshot {
	descriptors := make([]models.CatalogVariant, len(variants))
	for i := range variants {
		descriptors[i] = variants[i].Descriptor
	}
	return &Snapshot{
		Product: models.SyncProduct{
			ID:           301,
			Name:         "Classic Tee",
			ThumbnailURL: "https://img/classic-tee.png",
		},
		Variants: variants,
		Options:  DeriveOptions(descriptors),
		Images:   []string{"https://img/front.png", "https://img/back.png"},
	}
}

func kinds(plan *models.OperationPlan) []models.OpKind {
	out := make([]models.OpKind, len(plan.Ops))
	for i, op := range plan.Ops {
		out[i] = op.Kind
	}
	return out
}

func TestPlanCreate(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")
	snap := classicTeeSnapshot(
		snapshotVariant(101, 4011, 71, "TEE-M-BLK", "19.99", strptr("M"), strptr("Black")),
		snapshotVariant(102, 4012, 71, "TEE-L-BLK", "21,50", strptr("L"), strptr("Black")),
	)

	plan := r.PlanCreate(snap)

	require.Len(t, plan.Ops, 5)
	assert.Equal(t, []models.OpKind{
		models.OpCreateProduct,
		models.OpSetOptionValue, models.OpSetOptionValue,
		models.OpSetOptionValue, models.OpSetOptionValue,
	}, kinds(plan))
	assert.Empty(t, plan.Skipped)
	assert.Equal(t, "301", plan.ExternalID)

	product := plan.Ops[0].CreateProduct.Product
	assert.Equal(t, "Classic Tee", product.Title)
	assert.Equal(t, "classic-tee", product.Handle)
	assert.Equal(t, "301", product.ExternalID)
	assert.Equal(t, []string{"size", "color"}, product.OptionTitles)
	assert.Equal(t, snap.Images, product.Images)
	assert.Equal(t, "profile-1", product.ProfileID)
	assert.Equal(t, "channel-1", product.SalesChannelID)
	assert.Equal(t, "301", product.Metadata.String(models.MetaPrintfulID))

	require.Len(t, product.Variants, 2)
	v1 := product.Variants[0]
	assert.Equal(t, "Classic Tee - M / Black", v1.Title)
	assert.Equal(t, "TEE-M-BLK", v1.SKU)
	require.Len(t, v1.Prices, 1)
	assert.Equal(t, models.Price{Amount: 1999, Currency: "eur"}, v1.Prices[0])
	assert.Equal(t, "101", v1.Metadata.String(models.MetaPrintfulID))
	assert.Equal(t, "4011", v1.Metadata.String(models.MetaPrintfulCatalogVariantID))
	assert.Equal(t, "71", v1.Metadata.String(models.MetaPrintfulCatalogProductID))
	assert.Equal(t, "M", v1.Metadata.String(models.MetaSize))
	assert.Equal(t, "Black", v1.Metadata.String(models.MetaColor))

	v2 := product.Variants[1]
	require.Len(t, v2.Prices, 1)
	assert.Equal(t, models.Price{Amount: 2150, Currency: "eur"}, v2.Prices[0])

	// Axis-outer order: both size values first, then both color values.
	size1 := plan.Ops[1].SetOptionValue
	assert.Equal(t, "101", size1.VariantExternalID)
	assert.Equal(t, "size", size1.OptionTitle)
	assert.Equal(t, "M", size1.Value)
	assert.False(t, size1.Update)
	assert.Equal(t, "102", plan.Ops[2].SetOptionValue.VariantExternalID)
	assert.Equal(t, "L", plan.Ops[2].SetOptionValue.Value)
	assert.Equal(t, "color", plan.Ops[3].SetOptionValue.OptionTitle)
	assert.Equal(t, "Black", plan.Ops[3].SetOptionValue.Value)

	for i, op := range plan.Ops {
		assert.Equal(t, i, op.Rank)
	}
}

func TestPlanCreateNoVariants(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")
	plan := r.PlanCreate(classicTeeSnapshot())

	require.Len(t, plan.Ops, 1)
	assert.Equal(t, models.OpCreateProduct, plan.Ops[0].Kind)
	assert.Empty(t, plan.Ops[0].CreateProduct.Product.Variants)
}

func TestPlanCreateSkipsInvalidPrice(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")
	snap := classicTeeSnapshot(
		snapshotVariant(101, 4011, 71, "TEE-M-BLK", "19.99", strptr("M"), strptr("Black")),
		snapshotVariant(102, 4012, 71, "TEE-L-BLK", "not-a-price", strptr("L"), strptr("Black")),
	)

	plan := r.PlanCreate(snap)

	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "102", plan.Skipped[0].ExternalID)

	product := plan.Ops[0].CreateProduct.Product
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "101", product.Variants[0].Metadata.String(models.MetaPrintfulID))

	for _, op := range plan.Ops[1:] {
		assert.NotEqual(t, "102", op.SetOptionValue.VariantExternalID)
	}
}

func TestPlanCreateVariantWithoutAxisValue(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")
	snap := classicTeeSnapshot(
		snapshotVariant(101, 4011, 71, "TEE-M", "19.99", strptr("M"), nil),
		snapshotVariant(102, 4012, 71, "TEE-BLK", "19.99", nil, strptr("Black")),
	)

	plan := r.PlanCreate(snap)

	// One size binding for 101 and one color binding for 102; a variant is
	// never forced to carry a value it does not have.
	require.Len(t, plan.Ops, 3)
	assert.Equal(t, "size", plan.Ops[1].SetOptionValue.OptionTitle)
	assert.Equal(t, "101", plan.Ops[1].SetOptionValue.VariantExternalID)
	assert.Equal(t, "color", plan.Ops[2].SetOptionValue.OptionTitle)
	assert.Equal(t, "102", plan.Ops[2].SetOptionValue.VariantExternalID)
}

func localClassicTee(variantExternalIDs ...string) *models.LocalProduct {
	p := &models.LocalProduct{
		ID:         "prod_1",
		Title:      "Classic Tee",
		Handle:     "classic-tee",
		ExternalID: "301",
		Metadata:   models.Metadata{models.MetaPrintfulID: "301"},
		Options: []models.ProductOption{
			{ID: "opt_size", ProductID: "prod_1", Title: "size"},
			{ID: "opt_color", ProductID: "prod_1", Title: "color"},
		},
	}
	for _, ext := range variantExternalIDs {
		p.Variants = append(p.Variants, models.LocalVariant{
			ID:        "var_" + ext,
			ProductID: "prod_1",
			Metadata:  models.Metadata{models.MetaPrintfulID: ext, models.MetaLocalID: "var_" + ext},
		})
	}
	return p
}

func TestPlanUpdateOrdering(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")

	// Remote now has V1 and V3; locally V1 and V2 exist. V2 must be deleted
	// before V3 is created, V1 updated, then the product refresh, then the
	// option pass, then prices.
	snap := classicTeeSnapshot(
		snapshotVariant(101, 4011, 71, "TEE-M-BLK", "19.99", strptr("M"), strptr("Black")),
		snapshotVariant(103, 4013, 71, "TEE-XL-BLK", "23.00", strptr("XL"), strptr("Black")),
	)
	local := localClassicTee("101", "102")

	plan := r.PlanUpdate(snap, local)

	assert.Equal(t, []models.OpKind{
		models.OpDeleteVariant,
		models.OpCreateVariant,
		models.OpUpdateVariant,
		models.OpUpdateProduct,
		models.OpSetOptionValue, models.OpSetOptionValue,
		models.OpSetOptionValue, models.OpSetOptionValue,
		models.OpSetVariantPrice,
	}, kinds(plan))

	del := plan.Ops[0].DeleteVariant
	assert.Equal(t, "var_102", del.VariantID)
	assert.Equal(t, "102", del.ExternalID)

	create := plan.Ops[1].CreateVariant
	assert.Equal(t, "prod_1", create.ProductID)
	assert.Equal(t, "103", create.ExternalID)
	assert.Equal(t, "Classic Tee - XL / Black", create.Variant.Title)
	require.Len(t, create.Options, 2)
	assert.Equal(t, models.OptionValue{OptionID: "opt_size", Value: "XL"}, create.Options[0])
	assert.Equal(t, models.OptionValue{OptionID: "opt_color", Value: "Black"}, create.Options[1])

	upd := plan.Ops[2].UpdateVariant
	assert.Equal(t, "var_101", upd.VariantID)
	assert.Equal(t, "Classic Tee - M / Black", upd.Update.Title)
	assert.Equal(t, "var_101", upd.Update.Metadata.String(models.MetaLocalID))
	assert.Equal(t, "101", upd.Update.Metadata.String(models.MetaPrintfulID))

	prodUpd := plan.Ops[3].UpdateProduct
	assert.Equal(t, "prod_1", prodUpd.ProductID)
	assert.Equal(t, "Classic Tee", prodUpd.Update.Title)
	assert.Equal(t, "classic-tee", prodUpd.Update.Handle)

	// Option pass covers matched and created variants in remote order, marked
	// as updates.
	assert.Equal(t, "101", plan.Ops[4].SetOptionValue.VariantExternalID)
	assert.Equal(t, "size", plan.Ops[4].SetOptionValue.OptionTitle)
	assert.True(t, plan.Ops[4].SetOptionValue.Update)
	assert.Equal(t, "101", plan.Ops[5].SetOptionValue.VariantExternalID)
	assert.Equal(t, "color", plan.Ops[5].SetOptionValue.OptionTitle)
	assert.Equal(t, "103", plan.Ops[6].SetOptionValue.VariantExternalID)
	assert.Equal(t, "103", plan.Ops[7].SetOptionValue.VariantExternalID)

	price := plan.Ops[8].SetVariantPrice
	assert.Equal(t, "var_101", price.VariantID)
	require.Len(t, price.Prices, 1)
	assert.Equal(t, models.Price{Amount: 1999, Currency: "eur"}, price.Prices[0])

	for i, op := range plan.Ops {
		assert.Equal(t, i, op.Rank)
	}
}

func TestPlanUpdateIdempotent(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")
	snap := classicTeeSnapshot(
		snapshotVariant(101, 4011, 71, "TEE-M-BLK", "19.99", strptr("M"), strptr("Black")),
	)
	local := localClassicTee("101")

	plan := r.PlanUpdate(snap, local)

	assert.Equal(t, 0, plan.Count(models.OpDeleteVariant))
	assert.Equal(t, 0, plan.Count(models.OpCreateVariant))
	assert.Equal(t, 1, plan.Count(models.OpUpdateVariant))
	assert.Equal(t, 1, plan.Count(models.OpUpdateProduct))
	assert.Equal(t, 1, plan.Count(models.OpSetVariantPrice))
}

func TestPlanUpdateInvalidPriceKeepsLocalVariant(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")

	// The remote variant still exists, its price just failed to parse. Its
	// local counterpart must survive untouched.
	snap := classicTeeSnapshot(
		snapshotVariant(101, 4011, 71, "TEE-M-BLK", "oops", strptr("M"), strptr("Black")),
	)
	local := localClassicTee("101")

	plan := r.PlanUpdate(snap, local)

	assert.Equal(t, 0, plan.Count(models.OpDeleteVariant))
	assert.Equal(t, 0, plan.Count(models.OpUpdateVariant))
	assert.Equal(t, 0, plan.Count(models.OpSetOptionValue))
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "101", plan.Skipped[0].ExternalID)
}

func TestPlanUpdateOptionSchemaDrift(t *testing.T) {
	r := NewReconciler("profile-1", "channel-1")
	snap := classicTeeSnapshot(
		snapshotVariant(103, 4013, 71, "TEE-XL-BLK", "23.00", strptr("XL"), strptr("Black")),
	)
	local := localClassicTee()
	// The local product only exposes a size axis.
	local.Options = local.Options[:1]

	plan := r.PlanUpdate(snap, local)

	assert.Equal(t, 0, plan.Count(models.OpCreateVariant))
	assert.Equal(t, 0, plan.Count(models.OpSetOptionValue))
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "103", plan.Skipped[0].ExternalID)
	assert.Contains(t, plan.Skipped[0].Reason, "option not found")
}
