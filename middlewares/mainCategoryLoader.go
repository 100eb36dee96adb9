package middlewares

import (
	"context"

	"bitbucket.org/lawdesk/crm_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type mainCategoryReader struct {
	db *gorm.DB
}

func (r *mainCategoryReader) getMainCategories(ctx context.Context, ids []int) []*dataloader.Result[*models.MainCategory] {
	var results []models.MainCategory
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.MainCategory](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetMainCategory(ctx context.Context, id int) (*models.MainCategory, error) {
	loaders := For(ctx)
	return loaders.MainCategoryLoader.Load(ctx, id)()
}

func GetMainCategories(ctx context.Context, ids []int) ([]*models.MainCategory, []error) {
	loaders := For(ctx)
	return loaders.MainCategoryLoader.LoadMany(ctx, ids)()
}
