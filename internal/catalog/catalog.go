// Package catalog loads the product catalog the engine matches against.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/asteroid-belt/partmatch/internal/hash"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
)

type envelope struct {
	Products []models.Product `json:"products"`
}

// Load reads a catalog file. The file holds either a JSON array of products
// or an object with a "products" array. Products keep file order.
func Load(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrConfiguration, "read catalog", err)
	}
	products, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return products, nil
}

// Parse decodes catalog JSON. An empty catalog is a configuration error.
func Parse(data []byte) ([]models.Product, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, matcherr.Wrap(matcherr.ErrConfiguration, "catalog is empty")
	}

	var products []models.Product
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, matcherr.WrapErr(matcherr.ErrConfiguration, "decode catalog", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, matcherr.WrapErr(matcherr.ErrConfiguration, "decode catalog", err)
		}
		products = env.Products
	default:
		return nil, matcherr.Wrap(matcherr.ErrConfiguration, "catalog must be a JSON array or object")
	}

	for i := range products {
		products[i] = clean(products[i])
	}
	if len(products) == 0 {
		return nil, matcherr.Wrap(matcherr.ErrConfiguration, "catalog contains no products")
	}
	return products, nil
}

// Checksum fingerprints the catalog content and order.
func Checksum(products []models.Product) string {
	d := hash.NewDigest()
	for _, p := range products {
		d.Record(p.Code, p.Name, p.DisplayName)
	}
	return d.Sum()
}

func clean(p models.Product) models.Product {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Description = strings.TrimSpace(p.Description)
	return p
}
