package repository

import (
	"context"
	"errors"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"

	"gorm.io/gorm"
)

type SellerGormRepository struct {
	db *gorm.DB
}

func NewSellerGormRepository(db *gorm.DB) *SellerGormRepository {
	return &SellerGormRepository{db: db}
}

func (r *SellerGormRepository) FindByID(ctx context.Context, id int64) (model.Seller, error) {
	var s model.Seller
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Seller{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Seller{}, err
	}
	return s, nil
}

func (r *SellerGormRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Seller, error) {
	out := make(map[int64]model.Seller, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var sellers []model.Seller
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&sellers).Error; err != nil {
		return nil, err
	}
	for _, s := range sellers {
		out[s.ID] = s
	}
	return out, nil
}
