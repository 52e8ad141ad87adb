package cli

import (
	"context"

	"github.com/asteroid-belt/partmatch/internal/catalog"
	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/log"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/internal/search"
	"github.com/asteroid-belt/partmatch/internal/vector"
)

// loadCatalog reads the catalog named by the first argument, falling back
// to the configured default.
func loadCatalog(args []string) ([]models.Product, string, error) {
	path := appConfig.Catalog
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, "", matcherr.Wrap(matcherr.ErrConfiguration, "no catalog given (pass a path or set catalog in the config file)")
	}
	products, err := catalog.Load(path)
	if err != nil {
		return nil, path, err
	}
	return products, path, nil
}

// openIndex creates the index over the configured model without loading it.
func openIndex() (*vector.Index, error) {
	model, err := embedding.Open(appConfig.EmbeddingOptions(), log.Get())
	if err != nil {
		return nil, err
	}
	return vector.New(appConfig.IndexOptions(), model, log.Get()), nil
}

// openSearch loads the published index and wraps it in a search service.
func openSearch(ctx context.Context) (*search.Service, error) {
	ix, err := openIndex()
	if err != nil {
		return nil, err
	}
	if err := ix.Load(ctx); err != nil {
		return nil, err
	}
	return search.New(ix, appConfig.SearchOptions(), log.Get()), nil
}
