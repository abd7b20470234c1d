package usecase

import (
	"context"
	"errors"
	"strings"

	"shopcore/internal/domain/model"
	repo "shopcore/internal/repository"
)

type AddressInput struct {
	FullName string
	Phone    string
	Address  string
	Ward     string
	District string
	City     string
}

func (in AddressInput) shipping() model.ShippingAddress {
	return model.ShippingAddress{
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Street:   strings.TrimSpace(in.Address),
		Ward:     strings.TrimSpace(in.Ward),
		District: strings.TrimSpace(in.District),
		City:     strings.TrimSpace(in.City),
	}
}

// 主体（購入者 / 出品者）ごとの住所帳
type AddressUsecase struct {
	addresses repo.AddressRepository
	validator CommerceValidator
	clock     Clock
}

func NewAddressUsecase(addresses repo.AddressRepository, validator CommerceValidator, clock Clock) *AddressUsecase {
	return &AddressUsecase{addresses: addresses, validator: validator, clock: clock}
}

func (u *AddressUsecase) List(ctx context.Context, actor model.Actor) ([]model.Address, error) {
	if !actor.Valid() {
		return nil, errUnauthorized()
	}

	list, err := u.addresses.ListByOwner(ctx, actor)
	if err != nil {
		return nil, errDB()
	}
	if list == nil {
		list = []model.Address{}
	}
	return list, nil
}

// 最初の1件はデフォルトにする
func (u *AddressUsecase) Create(ctx context.Context, actor model.Actor, in AddressInput) (model.Address, error) {
	if !actor.Valid() {
		return model.Address{}, errUnauthorized()
	}
	s := in.shipping()
	if err := u.validator.ValidateShipping(s); err != nil {
		return model.Address{}, errValidation(err.Error())
	}

	existing, err := u.addresses.ListByOwner(ctx, actor)
	if err != nil {
		return model.Address{}, errDB()
	}

	now := u.clock.Now()
	created, err := u.addresses.Create(ctx, model.Address{
		OwnerID:   actor.ID,
		OwnerKind: actor.Kind,
		FullName:  s.FullName,
		Phone:     s.Phone,
		Street:    s.Street,
		Ward:      s.Ward,
		District:  s.District,
		City:      s.City,
		IsDefault: len(existing) == 0,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Address{}, errDB()
	}
	return created, nil
}

func (u *AddressUsecase) Update(ctx context.Context, actor model.Actor, addressID int64, in AddressInput) (model.Address, error) {
	a, err := u.owned(ctx, actor, addressID)
	if err != nil {
		return model.Address{}, err
	}
	s := in.shipping()
	if err := u.validator.ValidateShipping(s); err != nil {
		return model.Address{}, errValidation(err.Error())
	}

	a.FullName = s.FullName
	a.Phone = s.Phone
	a.Street = s.Street
	a.Ward = s.Ward
	a.District = s.District
	a.City = s.City
	a.UpdatedAt = u.clock.Now()

	if err := u.addresses.Update(ctx, actor, a); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Address{}, errNotFound("address not found")
		}
		return model.Address{}, errDB()
	}
	return a, nil
}

func (u *AddressUsecase) Delete(ctx context.Context, actor model.Actor, addressID int64) error {
	if !actor.Valid() {
		return errUnauthorized()
	}
	if addressID <= 0 {
		return errValidation("invalid address id")
	}

	if err := u.addresses.Delete(ctx, actor, addressID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("address not found")
		}
		return errDB()
	}
	return nil
}

// 主体内でdefaultは1つ
func (u *AddressUsecase) SetDefault(ctx context.Context, actor model.Actor, addressID int64) error {
	if _, err := u.owned(ctx, actor, addressID); err != nil {
		return err
	}

	if err := u.addresses.SetDefault(ctx, actor, addressID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("address not found")
		}
		return errDB()
	}
	return nil
}

// 他人の住所は存在しないものとして扱う
func (u *AddressUsecase) owned(ctx context.Context, actor model.Actor, addressID int64) (model.Address, error) {
	if !actor.Valid() {
		return model.Address{}, errUnauthorized()
	}
	if addressID <= 0 {
		return model.Address{}, errValidation("invalid address id")
	}

	a, err := u.addresses.FindByID(ctx, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Address{}, errNotFound("address not found")
	}
	if err != nil {
		return model.Address{}, errDB()
	}
	if !a.OwnedBy(actor) {
		return model.Address{}, errNotFound("address not found")
	}
	return a, nil
}
