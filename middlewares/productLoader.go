package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type productReader struct {
	db *gorm.DB
}

func (r *productReader) getProducts(ctx context.Context, ids []int) []*dataloader.Result[*models.Product] {
	results, err := utils.FetchModelsByIds(ctx, r.db, ids, func(p *models.Product) int { return p.ID })
	if err != nil {
		return handleError[*models.Product](len(ids), err)
	}

	return generateLoaderResults(results, ids, models.ErrProductNotFound)
}

func GetProduct(ctx context.Context, id int) (*models.Product, error) {
	loaders := For(ctx)
	return loaders.productLoader.Load(ctx, id)()
}

// GetProducts keeps the order of ids; errs[i] is set for ids that failed.
func GetProducts(ctx context.Context, ids []int) ([]*models.Product, []error) {
	loaders := For(ctx)
	return loaders.productLoader.LoadMany(ctx, ids)()
}
