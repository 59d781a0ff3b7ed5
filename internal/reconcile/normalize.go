// Package reconcile computes and applies the difference between a Printful
// product snapshot and its local catalog representation. The planner emits
// an ordered operation plan; the executor applies it through the catalog
// capability interface, isolating per-operation failures.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"printful-sync/internal/models"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a retail price string does not parse as
// a number. Fatal for the enclosing variant only, never for the whole run.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrOptionNotFound is returned when a variant requires an option axis the
// local product does not expose, i.e. the option schema has drifted.
var ErrOptionNotFound = errors.New("option not found")

// NormalizePrice converts a Printful retail price string into minor units.
// Printful formats decimals with either "." or "," depending on locale.
func NormalizePrice(raw, currency string) (models.Price, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return models.Price{}, fmt.Errorf("price %q: %w", raw, ErrInvalidAmount)
	}
	amount := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return models.Price{Amount: amount, Currency: strings.ToLower(currency)}, nil
}

// DeriveOptions determines which option axes a product must expose, from its
// variants' catalog descriptors. An axis is present iff at least one variant
// carries it; size always precedes color. The same derivation runs on both
// the create and update paths so option schemas never drift between runs.
func DeriveOptions(descriptors []models.CatalogVariant) []string {
	hasSize, hasColor := false, false
	for _, d := range descriptors {
		if d.Size != nil {
			hasSize = true
		}
		if d.Color != nil {
			hasColor = true
		}
	}

	var options []string
	if hasSize {
		options = append(options, models.OptionSize)
	}
	if hasColor {
		options = append(options, models.OptionColor)
	}
	return options
}

// CollectImages extracts preview-image URLs from the variant file manifests,
// deduplicating by first occurrence and dropping empty entries.
func CollectImages(variants []models.SyncVariant) []string {
	var images []string
	seen := make(map[string]bool)
	for _, v := range variants {
		for _, f := range v.Files {
			if f.Type != models.FileTypePreview || f.PreviewURL == "" {
				continue
			}
			if seen[f.PreviewURL] {
				continue
			}
			seen[f.PreviewURL] = true
			images = append(images, f.PreviewURL)
		}
	}
	return images
}

// BuildHandle derives the URL-safe product handle from its title.
func BuildHandle(title string) string {
	return slug.Make(title)
}

// VariantTitle synthesizes a variant title from the product title and the
// variant's option attributes, omitting absent parts:
// "Classic Tee - M / Black".
func VariantTitle(productTitle string, size, color *string) string {
	var parts []string
	if size != nil {
		parts = append(parts, *size)
	}
	if color != nil {
		parts = append(parts, *color)
	}
	if len(parts) == 0 {
		return productTitle
	}
	return productTitle + " - " + strings.Join(parts, " / ")
}
