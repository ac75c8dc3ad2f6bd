package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityRepository is the by-id CRUD shared by the reference-data tables.
type EntityRepository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int64, error)
}

type entityRepository[T any] struct {
	db       *gorm.DB
	order    string
	preloads []string
}

func newEntityRepository[T any](db *gorm.DB, order string, preloads ...string) *entityRepository[T] {
	return &entityRepository[T]{db: db, order: order, preloads: preloads}
}

func (r *entityRepository[T]) query(ctx context.Context) *gorm.DB {
	db := GetDB(ctx, r.db)
	for _, p := range r.preloads {
		db = db.Preload(p)
	}
	return db
}

func (r *entityRepository[T]) Create(ctx context.Context, entity *T) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(entity).Error
}

func (r *entityRepository[T]) Update(ctx context.Context, entity *T) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(entity).Error
}

// Delete returns gorm.ErrRecordNotFound when nothing matched.
func (r *entityRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *entityRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := r.query(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *entityRepository[T]) List(ctx context.Context) ([]T, error) {
	var entities []T
	db := r.query(ctx)
	if r.order != "" {
		db = db.Order(r.order)
	}
	if err := db.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *entityRepository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(new(T)).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
