package repository

import (
	"context"
	"errors"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type addressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

func ownedBy(db *gorm.DB, owner model.Actor) *gorm.DB {
	return db.Where("owner_id = ? AND owner_kind = ?", owner.ID, owner.Kind)
}

func (r *addressGormRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	if err := r.db.WithContext(ctx).Create(&address).Error; err != nil {
		return model.Address{}, err
	}
	return address, nil
}

func (r *addressGormRepository) ListByOwner(ctx context.Context, owner model.Actor) ([]model.Address, error) {
	list := []model.Address{}
	err := ownedBy(r.db.WithContext(ctx), owner).
		Order("is_default DESC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *addressGormRepository) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var a model.Address
	err := r.db.WithContext(ctx).First(&a, addressID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Address{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

// 宛先の列だけ。is_default は SetDefault でしか変えない
func (r *addressGormRepository) Update(ctx context.Context, owner model.Actor, address model.Address) error {
	res := ownedBy(r.db.WithContext(ctx).Model(&model.Address{}), owner).
		Where("id = ?", address.ID).
		Select("full_name", "phone", "street", "ward", "district", "city", "updated_at").
		Updates(address)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *addressGormRepository) Delete(ctx context.Context, owner model.Actor, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deleted []model.Address
		res := ownedBy(tx.Clauses(clause.Returning{Columns: []clause.Column{{Name: "is_default"}}}), owner).
			Where("id = ?", addressID).
			Delete(&deleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		if len(deleted) == 0 || !deleted[0].IsDefault {
			return nil
		}

		var next model.Address
		err := ownedBy(tx, owner).Order("id ASC").Take(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&model.Address{}).Where("id = ?", next.ID).Update("is_default", true).Error
	})
}

// 外す→付けるを1txで。対象が他人のものなら何もしない
func (r *addressGormRepository) SetDefault(ctx context.Context, owner model.Actor, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target model.Address
		err := ownedBy(tx, owner).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", addressID).
			Take(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := ownedBy(tx.Model(&model.Address{}), owner).
			Where("is_default = TRUE AND id <> ?", addressID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.Address{}).Where("id = ?", addressID).Update("is_default", true).Error
	})
}
