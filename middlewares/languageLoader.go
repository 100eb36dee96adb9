package middlewares

import (
	"context"

	"bitbucket.org/lawdesk/crm_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type languageReader struct {
	db *gorm.DB
}

func (r *languageReader) getLanguages(ctx context.Context, ids []int) []*dataloader.Result[*models.Language] {
	var results []models.Language
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Language](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetLanguage(ctx context.Context, id int) (*models.Language, error) {
	loaders := For(ctx)
	return loaders.LanguageLoader.Load(ctx, id)()
}

func GetLanguages(ctx context.Context, ids []int) ([]*models.Language, []error) {
	loaders := For(ctx)
	return loaders.LanguageLoader.LoadMany(ctx, ids)()
}
