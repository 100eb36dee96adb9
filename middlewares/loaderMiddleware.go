package middlewares

import (
	"context"
	"reflect"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	EmployeeLoader     *dataloader.Loader[int, *models.Employee]
	CategoryLoader     *dataloader.Loader[int, *models.Category]
	MainCategoryLoader *dataloader.Loader[int, *models.MainCategory]
	CurrencyLoader     *dataloader.Loader[int, *models.Currency]
	LanguageLoader     *dataloader.Loader[int, *models.Language]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	employeeReader := &employeeReader{db: conn}
	categoryReader := &categoryReader{db: conn}
	mainCategoryReader := &mainCategoryReader{db: conn}
	currencyReader := &currencyReader{db: conn}
	languageReader := &languageReader{db: conn}

	return &Loaders{
		EmployeeLoader:     dataloader.NewBatchedLoader(employeeReader.getEmployees, dataloader.WithWait[int, *models.Employee](time.Millisecond)),
		CategoryLoader:     dataloader.NewBatchedLoader(categoryReader.getCategories, dataloader.WithWait[int, *models.Category](time.Millisecond)),
		MainCategoryLoader: dataloader.NewBatchedLoader(mainCategoryReader.getMainCategories, dataloader.WithWait[int, *models.MainCategory](time.Millisecond)),
		CurrencyLoader:     dataloader.NewBatchedLoader(currencyReader.getCurrencies, dataloader.WithWait[int, *models.Currency](time.Millisecond)),
		LanguageLoader:     dataloader.NewBatchedLoader(languageReader.getLanguages, dataloader.WithWait[int, *models.Language](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// T must be struct
func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	// generate resultMap from results
	resultMap := make(map[int]T)
	var resultZero T
	resultMap[0] = resultZero.GetDefault(0).(T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}
