package database

import (
	"context"

	"gorm.io/gorm"
)

// CreateEntity creates a record for the provided entity type.
func CreateEntity[T any](ctx context.Context, entity *T) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetEntityByID returns a single record of type T by its primary key id.
func GetEntityByID[T any, ID comparable](ctx context.Context, id ID) (*T, error) {
	db, err := GetDB()
	if err != nil {
		return nil, err
	}
	var out T
	if err := db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEntities returns records of type T matching the given conditions.
func ListEntities[T any](ctx context.Context, conds map[string]interface{}, limit int) ([]T, error) {
	db, err := GetDB()
	if err != nil {
		return nil, err
	}
	var out []T
	q := db.WithContext(ctx).Where(conds)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEntityByID deletes a record of type T by its primary key id.
func DeleteEntityByID[T any, ID comparable](ctx context.Context, id ID) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	var zero T
	return db.WithContext(ctx).Where("id = ?", id).Delete(&zero).Error
}

// WithTx runs fn within a transaction on the shared DB.
func WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(fn)
}
