package catalog

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"storefront/internal/models"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by the catalog importer.
type SeedFile struct {
	Category string      `yaml:"category"`
	Products []SeedEntry `yaml:"products"`
}

// SeedEntry mirrors the back-office form. Price may be written as "₹12,000" or 12000.
type SeedEntry struct {
	SKU         string   `yaml:"sku"`
	Title       string   `yaml:"title"`
	Brand       string   `yaml:"brand"`
	Type        string   `yaml:"type"`
	Firmness    string   `yaml:"firmness"`
	Material    string   `yaml:"material"`
	Description string   `yaml:"description"`
	Warranty    string   `yaml:"warranty"`
	Price       any      `yaml:"price"`
	OldPrice    any      `yaml:"oldPrice"`
	Stock       *int     `yaml:"stock"`
	InStock     *bool    `yaml:"inStock"`
	Sizes       []string `yaml:"sizes"`
	Thicknesses []string `yaml:"thicknesses"`
	Images      []string `yaml:"images"`
}

// LoadSeed parses a seed file and normalizes every entry, generating SKUs
// for entries that have none.
func LoadSeed(r io.Reader) (models.Category, []models.Product, error) {
	var f SeedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return "", nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	category, ok := models.ParseCategory(f.Category)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownCategory, f.Category)
	}

	now := time.Now()
	products := make([]models.Product, 0, len(f.Products))
	for i, e := range f.Products {
		raw := models.RawProduct{
			SKU:         e.SKU,
			Title:       e.Title,
			Brand:       e.Brand,
			Type:        e.Type,
			Firmness:    e.Firmness,
			Material:    e.Material,
			Description: e.Description,
			Warranty:    e.Warranty,
			Price:       e.Price,
			OldPrice:    e.OldPrice,
			Images:      e.Images,
			CreatedAt:   now,
		}
		// absent fields stay nil so an entry without either counts as in stock
		if e.Stock != nil {
			raw.Stock = *e.Stock
		}
		if e.InStock != nil {
			raw.InStock = *e.InStock
		}
		if len(e.Sizes) > 0 {
			raw.Size = e.Sizes
		}
		if len(e.Thicknesses) > 0 {
			raw.Thickness = e.Thicknesses
		}

		p, err := Normalize(raw, category)
		if err != nil {
			return "", nil, fmt.Errorf("entry %d (%s): %w", i+1, e.Title, err)
		}
		if p.SKU == "" {
			p.SKU = GenerateSKU(SKUDraft{
				Title:     p.Title,
				Type:      p.Type,
				Price:     p.Price.String(),
				Stock:     strconv.Itoa(p.Stock),
				Size:      first(p.Sizes),
				Thickness: first(p.Thicknesses),
			})
		}
		if err := Validate(p); err != nil {
			return "", nil, fmt.Errorf("entry %d (%s): %w", i+1, e.Title, err)
		}
		products = append(products, p)
	}

	return category, products, nil
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}
