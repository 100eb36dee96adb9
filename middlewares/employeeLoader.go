package middlewares

import (
	"context"

	"bitbucket.org/lawdesk/crm_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type employeeReader struct {
	db *gorm.DB
}

func (r *employeeReader) getEmployees(ctx context.Context, ids []int) []*dataloader.Result[*models.Employee] {
	var results []models.Employee
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Employee](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	loaders := For(ctx)
	return loaders.EmployeeLoader.Load(ctx, id)()
}

func GetEmployees(ctx context.Context, ids []int) ([]*models.Employee, []error) {
	loaders := For(ctx)
	return loaders.EmployeeLoader.LoadMany(ctx, ids)()
}
