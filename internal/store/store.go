package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"printful-sync/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a catalog record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the local catalog store. It implements the capability interface
// the plan executor mutates the catalog through.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetDefaultProfileID returns the default shipping profile id.
func (s *Store) GetDefaultProfileID(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, "SELECT id FROM shipping_profiles WHERE is_default = TRUE LIMIT 1")
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("default shipping profile: %w", ErrNotFound)
	}
	return id, err
}

// GetDefaultSalesChannelID returns the default sales channel id.
func (s *Store) GetDefaultSalesChannelID(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, "SELECT id FROM sales_channels WHERE is_default = TRUE LIMIT 1")
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("default sales channel: %w", ErrNotFound)
	}
	return id, err
}

// CreateProduct creates a product with its options and full variant list in
// one transaction. Each created variant gets its assigned id mirrored into
// metadata under the local-id key so later fixups can re-address it.
func (s *Store) CreateProduct(ctx context.Context, p models.NewProduct) (*models.LocalProduct, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	product := &models.LocalProduct{
		ID:             uuid.New().String(),
		Title:          p.Title,
		Handle:         p.Handle,
		Thumbnail:      p.Thumbnail,
		ExternalID:     p.ExternalID,
		Images:         p.Images,
		ProfileID:      p.ProfileID,
		SalesChannelID: p.SalesChannelID,
		Metadata:       p.Metadata,
	}

	query := `
		INSERT INTO products (id, title, handle, thumbnail, external_id, images, profile_id, sales_channel_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	row := tx.QueryRowxContext(ctx, query,
		product.ID, product.Title, product.Handle, product.Thumbnail, product.ExternalID,
		product.Images, product.ProfileID, product.SalesChannelID, product.Metadata)
	if err := row.Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	for _, title := range p.OptionTitles {
		opt := models.ProductOption{ID: uuid.New().String(), ProductID: product.ID, Title: title}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO product_options (id, product_id, title) VALUES ($1, $2, $3)",
			opt.ID, opt.ProductID, opt.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to insert option %s: %w", title, err)
		}
		product.Options = append(product.Options, opt)
	}

	for _, nv := range p.Variants {
		variant, err := insertVariant(ctx, tx, product.ID, nv)
		if err != nil {
			return nil, err
		}
		product.Variants = append(product.Variants, *variant)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return product, nil
}

// insertVariant inserts one variant row with its prices, mirroring the
// assigned id into metadata.
func insertVariant(ctx context.Context, tx *sqlx.Tx, productID string, nv models.NewVariant) (*models.LocalVariant, error) {
	meta := models.Metadata{}
	for k, v := range nv.Metadata {
		meta[k] = v
	}
	variant := &models.LocalVariant{
		ID:        uuid.New().String(),
		ProductID: productID,
		Title:     nv.Title,
		SKU:       nv.SKU,
		Prices:    nv.Prices,
	}
	meta[models.MetaLocalID] = variant.ID
	variant.Metadata = meta

	query := `
		INSERT INTO variants (id, product_id, title, sku, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	row := tx.QueryRowxContext(ctx, query,
		variant.ID, variant.ProductID, variant.Title, variant.SKU, variant.Metadata)
	if err := row.Scan(&variant.CreatedAt, &variant.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert variant %s: %w", nv.SKU, err)
	}

	for _, price := range nv.Prices {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO variant_prices (variant_id, currency, amount) VALUES ($1, $2, $3)",
			variant.ID, price.Currency, price.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to insert price for variant %s: %w", variant.ID, err)
		}
	}
	return variant, nil
}

// GetProduct retrieves a product with its options and variants (prices and
// option values eager-loaded).
func (s *Store) GetProduct(ctx context.Context, id string) (*models.LocalProduct, error) {
	var product models.LocalProduct
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductByExternalID retrieves a product by its Printful product id.
// Returns (nil, nil) when no product carries the external id yet.
func (s *Store) GetProductByExternalID(ctx context.Context, externalID string) (*models.LocalProduct, error) {
	var product models.LocalProduct
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE external_id = $1", externalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) loadRelations(ctx context.Context, product *models.LocalProduct) error {
	if err := s.db.SelectContext(ctx, &product.Options,
		"SELECT * FROM product_options WHERE product_id = $1 ORDER BY id", product.ID); err != nil {
		return err
	}
	if err := s.db.SelectContext(ctx, &product.Variants,
		"SELECT * FROM variants WHERE product_id = $1 ORDER BY created_at, id", product.ID); err != nil {
		return err
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		if err := s.db.SelectContext(ctx, &v.Prices,
			"SELECT amount, currency FROM variant_prices WHERE variant_id = $1", v.ID); err != nil {
			return err
		}
		if err := s.db.SelectContext(ctx, &v.Options,
			"SELECT option_id, value FROM variant_option_values WHERE variant_id = $1", v.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProduct refreshes the product row. Metadata is merged key by key so
// external-identifier fields already set are never overwritten with null.
func (s *Store) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error {
	var existing models.Metadata
	err := s.db.GetContext(ctx, &existing, "SELECT metadata FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE products
		SET title = $1, handle = $2, thumbnail = $3, images = $4, metadata = $5, updated_at = NOW()
		WHERE id = $6`,
		upd.Title, upd.Handle, upd.Thumbnail, models.StringSlice(upd.Images),
		mergeMetadata(existing, upd.Metadata), id)
	return err
}

// DeleteProduct removes a product and, through its ownership, every variant
// under it. Deletion is caller-initiated only; reconciliation never does it.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateVariant creates one variant under an existing product with its
// option-value bindings.
func (s *Store) CreateVariant(ctx context.Context, productID string, nv models.NewVariant, options []models.OptionValue) (*models.LocalVariant, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	variant, err := insertVariant(ctx, tx, productID, nv)
	if err != nil {
		return nil, err
	}
	for _, ov := range options {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO variant_option_values (variant_id, option_id, value) VALUES ($1, $2, $3)",
			variant.ID, ov.OptionID, ov.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to bind option value for variant %s: %w", variant.ID, err)
		}
	}
	variant.Options = options

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return variant, nil
}

// UpdateVariant refreshes title/sku/metadata on a variant. Metadata merges
// over the stored map.
func (s *Store) UpdateVariant(ctx context.Context, variantID string, upd models.VariantUpdate) error {
	var existing models.Metadata
	err := s.db.GetContext(ctx, &existing, "SELECT metadata FROM variants WHERE id = $1", variantID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("variant %s: %w", variantID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE variants SET title = $1, sku = $2, metadata = $3, updated_at = NOW() WHERE id = $4`,
		upd.Title, upd.SKU, mergeMetadata(existing, upd.Metadata), variantID)
	return err
}

// DeleteVariant removes a single variant with its prices and option values.
func (s *Store) DeleteVariant(ctx context.Context, variantID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM variants WHERE id = $1", variantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("variant %s: %w", variantID, ErrNotFound)
	}
	return nil
}

// AddOptionValue binds an option value on a variant for the first time.
func (s *Store) AddOptionValue(ctx context.Context, variantID, optionID, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO variant_option_values (variant_id, option_id, value) VALUES ($1, $2, $3)",
		variantID, optionID, value)
	return err
}

// UpdateOptionValue sets an option value, inserting when absent.
func (s *Store) UpdateOptionValue(ctx context.Context, variantID, optionID, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO variant_option_values (variant_id, option_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (variant_id, option_id) DO UPDATE SET value = EXCLUDED.value`,
		variantID, optionID, value)
	return err
}

// UpdateVariantPrices replaces the price list of a variant.
func (s *Store) UpdateVariantPrices(ctx context.Context, variantID string, prices []models.Price) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM variant_prices WHERE variant_id = $1", variantID); err != nil {
		return err
	}
	for _, price := range prices {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO variant_prices (variant_id, currency, amount) VALUES ($1, $2, $3)",
			variantID, price.Currency, price.Amount)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// mergeMetadata overlays upd on existing, skipping nil values so the
// external-id keys set by earlier runs survive every update.
func mergeMetadata(existing, upd models.Metadata) models.Metadata {
	merged := models.Metadata{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range upd {
		if v == nil {
			continue
		}
		merged[k] = v
	}
	return merged
}
