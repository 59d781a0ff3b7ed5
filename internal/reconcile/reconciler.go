package reconcile

import (
	"fmt"
	"strconv"

	"printful-sync/internal/models"
)

// Reconciler plans the catalog mutations that bring a local product into
// agreement with a snapshot. Planning is pure: all I/O happened in the
// fetcher, and the emitted plan is applied separately by the executor.
type Reconciler struct {
	profileID      string
	salesChannelID string
}

// NewReconciler creates a planner. profileID and salesChannelID are the
// store's default shipping profile and sales channel, attached to every
// created product.
func NewReconciler(profileID, salesChannelID string) *Reconciler {
	return &Reconciler{profileID: profileID, salesChannelID: salesChannelID}
}

// PlanCreate plans the creation of a product that has no local counterpart:
// one CREATE_PRODUCT carrying the full variant payload list, followed by a
// SET_OPTION_VALUE for every {option, variant} pair where the variant has a
// value on that axis. A variant is never forced to carry a value it does
// not have.
func (r *Reconciler) PlanCreate(snap *Snapshot) *models.OperationPlan {
	plan := &models.OperationPlan{ExternalID: strconv.FormatInt(snap.Product.ID, 10)}

	var valid []*SnapshotVariant
	var newVariants []models.NewVariant
	for i := range snap.Variants {
		sv := &snap.Variants[i]
		if sv.Err != nil {
			plan.Skipped = append(plan.Skipped, models.SkippedVariant{ExternalID: sv.ExternalID(), Reason: sv.Err.Error()})
			continue
		}
		newVariants = append(newVariants, models.NewVariant{
			Title:    sv.Title,
			SKU:      sv.Remote.SKU,
			Prices:   []models.Price{sv.Price},
			Metadata: variantMetadata(sv),
		})
		valid = append(valid, sv)
	}

	product := models.NewProduct{
		Title:          snap.Product.Name,
		Handle:         BuildHandle(snap.Product.Name),
		Thumbnail:      snap.Product.ThumbnailURL,
		ExternalID:     plan.ExternalID,
		Images:         snap.Images,
		OptionTitles:   snap.Options,
		ProfileID:      r.profileID,
		SalesChannelID: r.salesChannelID,
		Metadata:       models.Metadata{models.MetaPrintfulID: plan.ExternalID},
		Variants:       newVariants,
	}

	ops := []models.Operation{{
		Kind:          models.OpCreateProduct,
		CreateProduct: &models.CreateProductOp{Product: product},
	}}

	for _, axis := range snap.Options {
		for _, sv := range valid {
			val := axisValue(sv, axis)
			if val == "" {
				continue
			}
			ops = append(ops, models.Operation{
				Kind: models.OpSetOptionValue,
				SetOptionValue: &models.SetOptionValueOp{
					VariantExternalID: sv.ExternalID(),
					OptionTitle:       axis,
					Value:             val,
				},
			})
		}
	}

	plan.Ops = rank(ops)
	return plan
}

// PlanUpdate plans the reconciliation of a product that already exists
// locally. Stale variant deletions come first so dropped SKUs never collide
// with new ones, then creations, then updates, then the product refresh,
// then the option-value pass over every surviving variant, then prices.
//
// Unlike the create path, variants created here did not get option values
// bound inside CREATE_PRODUCT, so the option pass covers created variants
// as well as matched ones.
func (r *Reconciler) PlanUpdate(snap *Snapshot, local *models.LocalProduct) *models.OperationPlan {
	plan := &models.OperationPlan{
		ExternalID:     strconv.FormatInt(snap.Product.ID, 10),
		LocalProductID: local.ID,
	}

	remoteByID := make(map[string]bool, len(snap.Variants))
	for i := range snap.Variants {
		remoteByID[snap.Variants[i].ExternalID()] = true
	}

	var deletes, creates, updates, optionOps, priceOps []models.Operation

	for i := range local.Variants {
		lv := &local.Variants[i]
		if !remoteByID[lv.ExternalID()] {
			deletes = append(deletes, models.Operation{
				Kind:          models.OpDeleteVariant,
				DeleteVariant: &models.DeleteVariantOp{VariantID: lv.ID, ExternalID: lv.ExternalID()},
			})
		}
	}

	localByExt := make(map[string]*models.LocalVariant, len(local.Variants))
	for i := range local.Variants {
		localByExt[local.Variants[i].ExternalID()] = &local.Variants[i]
	}
	optionIDByTitle := make(map[string]string, len(local.Options))
	for _, opt := range local.Options {
		optionIDByTitle[opt.Title] = opt.ID
	}

	excluded := make(map[string]bool)
	for i := range snap.Variants {
		sv := &snap.Variants[i]
		extID := sv.ExternalID()
		if sv.Err != nil {
			plan.Skipped = append(plan.Skipped, models.SkippedVariant{ExternalID: extID, Reason: sv.Err.Error()})
			excluded[extID] = true
			continue
		}

		lv, ok := localByExt[extID]
		if !ok {
			binds, err := r.bindOptions(sv, snap.Options, optionIDByTitle)
			if err != nil {
				plan.Skipped = append(plan.Skipped, models.SkippedVariant{ExternalID: extID, Reason: err.Error()})
				excluded[extID] = true
				continue
			}
			creates = append(creates, models.Operation{
				Kind: models.OpCreateVariant,
				CreateVariant: &models.CreateVariantOp{
					ProductID:  local.ID,
					ExternalID: extID,
					Variant: models.NewVariant{
						Title:    sv.Title,
						SKU:      sv.Remote.SKU,
						Prices:   []models.Price{sv.Price},
						Metadata: variantMetadata(sv),
					},
					Options: binds,
				},
			})
			continue
		}

		meta := variantMetadata(sv)
		meta[models.MetaLocalID] = lv.ID
		updates = append(updates, models.Operation{
			Kind: models.OpUpdateVariant,
			UpdateVariant: &models.UpdateVariantOp{
				VariantID:  lv.ID,
				ExternalID: extID,
				Update: models.VariantUpdate{
					Title:    sv.Title,
					SKU:      sv.Remote.SKU,
					Metadata: meta,
				},
			},
		})
		priceOps = append(priceOps, models.Operation{
			Kind: models.OpSetVariantPrice,
			SetVariantPrice: &models.SetVariantPriceOp{
				VariantID:  lv.ID,
				ExternalID: extID,
				Prices:     []models.Price{sv.Price},
			},
		})
	}

	productOp := models.Operation{
		Kind: models.OpUpdateProduct,
		UpdateProduct: &models.UpdateProductOp{
			ProductID: local.ID,
			Update: models.ProductUpdate{
				Title:     snap.Product.Name,
				Handle:    BuildHandle(snap.Product.Name),
				Thumbnail: snap.Product.ThumbnailURL,
				Images:    snap.Images,
				Metadata:  models.Metadata{models.MetaPrintfulID: plan.ExternalID},
			},
		},
	}

	for i := range snap.Variants {
		sv := &snap.Variants[i]
		if excluded[sv.ExternalID()] {
			continue
		}
		for _, axis := range snap.Options {
			val := axisValue(sv, axis)
			if val == "" {
				continue
			}
			optionOps = append(optionOps, models.Operation{
				Kind: models.OpSetOptionValue,
				SetOptionValue: &models.SetOptionValueOp{
					VariantExternalID: sv.ExternalID(),
					OptionTitle:       axis,
					Value:             val,
					Update:            true,
				},
			})
		}
	}

	ops := deletes
	ops = append(ops, creates...)
	ops = append(ops, updates...)
	ops = append(ops, productOp)
	ops = append(ops, optionOps...)
	ops = append(ops, priceOps...)
	plan.Ops = rank(ops)
	return plan
}

// bindOptions resolves a new variant's option-value bindings against the
// local product's option ids. Only axes the variant actually has a value on
// are bound; a missing option for a required axis means the schema drifted
// and is surfaced as ErrOptionNotFound.
func (r *Reconciler) bindOptions(sv *SnapshotVariant, axes []string, optionIDByTitle map[string]string) ([]models.OptionValue, error) {
	var binds []models.OptionValue
	for _, axis := range axes {
		val := axisValue(sv, axis)
		if val == "" {
			continue
		}
		optID, ok := optionIDByTitle[axis]
		if !ok {
			return nil, fmt.Errorf("axis %q: %w", axis, ErrOptionNotFound)
		}
		binds = append(binds, models.OptionValue{OptionID: optID, Value: val})
	}
	return binds, nil
}

func axisValue(sv *SnapshotVariant, axis string) string {
	switch axis {
	case models.OptionSize:
		if sv.Descriptor.Size != nil {
			return *sv.Descriptor.Size
		}
	case models.OptionColor:
		if sv.Descriptor.Color != nil {
			return *sv.Descriptor.Color
		}
	}
	return ""
}

// variantMetadata builds the metadata map persisted on a local variant. The
// external identifiers recorded here are the only linkage between local and
// remote identity.
func variantMetadata(sv *SnapshotVariant) models.Metadata {
	meta := models.Metadata{
		models.MetaPrintfulID:               sv.ExternalID(),
		models.MetaPrintfulCatalogVariantID: strconv.FormatInt(sv.Remote.VariantID, 10),
		models.MetaPrintfulCatalogProductID: strconv.FormatInt(sv.Remote.Product.ProductID, 10),
	}
	if sv.Descriptor.Size != nil {
		meta[models.MetaSize] = *sv.Descriptor.Size
	}
	if sv.Descriptor.Color != nil {
		meta[models.MetaColor] = *sv.Descriptor.Color
	}
	if sv.Descriptor.ColorCode != nil {
		meta[models.MetaColorCode] = *sv.Descriptor.ColorCode
	}
	if sv.SizeGuide != nil && len(sv.SizeGuide.SizeTables) > 0 {
		meta[models.MetaSizeTables] = string(sv.SizeGuide.SizeTables)
	}
	return meta
}

func rank(ops []models.Operation) []models.Operation {
	for i := range ops {
		ops[i].Rank = i
	}
	return ops
}
