package repository

import (
	"context"
	"errors"

	"grievance/internal/model"
	"grievance/pkg/apperr"

	"gorm.io/gorm"
)

// GeographyRepository is the pure-lookup boundary over the
// district → subdistrict → village tree.
type GeographyRepository interface {
	FindByCode(ctx context.Context, code string) (*model.GeoEntity, error)
	ChildrenOf(ctx context.Context, parentCode string) ([]model.GeoEntity, error)
	ListByType(ctx context.Context, entityType string) ([]model.GeoEntity, error)
	// DescendantVillageCodes resolves every village under the given
	// entity, the entity itself included when it is a village.
	DescendantVillageCodes(ctx context.Context, code string) ([]string, error)
	Create(ctx context.Context, entity *model.GeoEntity) error
}

type geographyRepository struct {
	db *gorm.DB
}

func NewGeographyRepository(db *gorm.DB) GeographyRepository {
	return &geographyRepository{db: db}
}

func (r *geographyRepository) FindByCode(ctx context.Context, code string) (*model.GeoEntity, error) {
	var entity model.GeoEntity
	if err := GetDB(ctx, r.db).First(&entity, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "geographic entity not found", err)
		}
		return nil, err
	}
	return &entity, nil
}

func (r *geographyRepository) ChildrenOf(ctx context.Context, parentCode string) ([]model.GeoEntity, error) {
	var children []model.GeoEntity
	if err := GetDB(ctx, r.db).
		Where("parent_code = ?", parentCode).
		Order("code ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

func (r *geographyRepository) ListByType(ctx context.Context, entityType string) ([]model.GeoEntity, error) {
	var entities []model.GeoEntity
	if err := GetDB(ctx, r.db).
		Where("type = ?", entityType).
		Order("code ASC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *geographyRepository) DescendantVillageCodes(ctx context.Context, code string) ([]string, error) {
	root, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if root.Type == model.EntityVillage {
		return []string{root.Code}, nil
	}

	var codes []string
	frontier := []string{root.Code}
	for len(frontier) > 0 {
		var next []string
		for _, parent := range frontier {
			children, err := r.ChildrenOf(ctx, parent)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if child.Type == model.EntityVillage {
					codes = append(codes, child.Code)
				} else {
					next = append(next, child.Code)
				}
			}
		}
		frontier = next
	}
	return codes, nil
}

func (r *geographyRepository) Create(ctx context.Context, entity *model.GeoEntity) error {
	return GetDB(ctx, r.db).Create(entity).Error
}
