package utils

import (
	"context"
	"errors"
)

// check if id exists, return RecordNotFound error otherwise
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check the column value is not already taken by another row
// (excludeId = 0 for create)
func ValidateUnique[T any](ctx context.Context, field string, value interface{}, excludeId int) error {

	count, err := ResourceCountWhere[T](ctx, field+" = ? AND id != ?", value, excludeId)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New(field + " has already been taken")
	}

	return nil
}
