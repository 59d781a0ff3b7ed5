package models

// OpKind identifies one kind of catalog mutation in an operation plan.
type OpKind string

const (
	OpCreateProduct   OpKind = "CREATE_PRODUCT"
	OpUpdateProduct   OpKind = "UPDATE_PRODUCT"
	OpCreateVariant   OpKind = "CREATE_VARIANT"
	OpUpdateVariant   OpKind = "UPDATE_VARIANT"
	OpDeleteVariant   OpKind = "DELETE_VARIANT"
	OpSetOptionValue  OpKind = "SET_OPTION_VALUE"
	OpSetVariantPrice OpKind = "SET_VARIANT_PRICE"
)

// Operation is one step of an operation plan. Exactly one payload field is
// set, matching Kind. Rank is the execution position; the executor runs
// operations strictly in rank order.
type Operation struct {
	Kind OpKind `json:"kind"`
	Rank int    `json:"rank"`

	CreateProduct   *CreateProductOp   `json:"create_product,omitempty"`
	UpdateProduct   *UpdateProductOp   `json:"update_product,omitempty"`
	CreateVariant   *CreateVariantOp   `json:"create_variant,omitempty"`
	UpdateVariant   *UpdateVariantOp   `json:"update_variant,omitempty"`
	DeleteVariant   *DeleteVariantOp   `json:"delete_variant,omitempty"`
	SetOptionValue  *SetOptionValueOp  `json:"set_option_value,omitempty"`
	SetVariantPrice *SetVariantPriceOp `json:"set_variant_price,omitempty"`
}

// CreateProductOp creates the local product together with its full variant
// payload list. The only operation kind retried on failure.
type CreateProductOp struct {
	Product NewProduct `json:"product"`
}

// UpdateProductOp refreshes title/handle/thumbnail/images/metadata on an
// existing local product.
type UpdateProductOp struct {
	ProductID string        `json:"product_id"`
	Update    ProductUpdate `json:"update"`
}

// CreateVariantOp creates one variant under an existing local product with
// its option-value bindings already resolved against the product's options.
type CreateVariantOp struct {
	ProductID  string        `json:"product_id"`
	ExternalID string        `json:"external_id"`
	Variant    NewVariant    `json:"variant"`
	Options    []OptionValue `json:"options"`
}

// UpdateVariantOp refreshes an existing variant addressed by its local id.
// The metadata in Update retains the local-id mirror so later fixups can
// re-address the record.
type UpdateVariantOp struct {
	VariantID  string        `json:"variant_id"`
	ExternalID string        `json:"external_id"`
	Update     VariantUpdate `json:"update"`
}

// DeleteVariantOp removes a stale local variant whose external id no longer
// appears in the remote snapshot.
type DeleteVariantOp struct {
	VariantID  string `json:"variant_id"`
	ExternalID string `json:"external_id"`
}

// SetOptionValueOp binds one option-axis value on a variant. The variant is
// addressed by its Printful id because freshly created variants have no
// known local id at planning time; the executor resolves it from the product
// relations. Update selects update-in-place over first-time binding.
type SetOptionValueOp struct {
	VariantExternalID string `json:"variant_external_id"`
	OptionTitle       string `json:"option_title"`
	Value             string `json:"value"`
	Update            bool   `json:"update"`
}

// SetVariantPriceOp replaces the price list of a variant addressed by its
// known local id.
type SetVariantPriceOp struct {
	VariantID  string  `json:"variant_id"`
	ExternalID string  `json:"external_id"`
	Prices     []Price `json:"prices"`
}

// OperationPlan is the ordered, executable diff for one product family.
// LocalProductID is empty when the plan begins with CREATE_PRODUCT; the
// executor then uses the id assigned during creation.
type OperationPlan struct {
	ExternalID     string      `json:"external_id"`
	LocalProductID string      `json:"local_product_id,omitempty"`
	Ops            []Operation `json:"ops"`

	// Skipped lists variants excluded from the plan because their data could
	// not be normalized or bound (bad price, missing option axis). Their
	// local counterparts are left untouched.
	Skipped []SkippedVariant `json:"skipped,omitempty"`
}

// SkippedVariant records why one variant was left out of a plan.
type SkippedVariant struct {
	ExternalID string `json:"external_id"`
	Reason     string `json:"reason"`
}

// IsEmpty reports whether the plan carries no mutations.
func (p *OperationPlan) IsEmpty() bool {
	return len(p.Ops) == 0
}

// Count returns how many operations of the given kind the plan carries.
func (p *OperationPlan) Count(kind OpKind) int {
	n := 0
	for _, op := range p.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
