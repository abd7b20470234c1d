package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressInput(name string) AddressInput {
	return AddressInput{FullName: name, Phone: "0901234567", Address: "12 Nguyen Hue", District: "1", City: "HCMC"}
}

func TestAddressUsecase_Create_FirstIsDefault(t *testing.T) {
	f := newFixture()
	uc := f.addressBook()
	ctx := context.Background()

	first, err := uc.Create(ctx, buyer(1), addressInput("Home"))
	require.NoError(t, err)
	second, err := uc.Create(ctx, buyer(1), addressInput("Office"))
	require.NoError(t, err)

	assert.True(t, first.IsDefault)
	assert.False(t, second.IsDefault)

	// 出品者としての住所帳は別
	other, err := uc.Create(ctx, seller(1), addressInput("Shop"))
	require.NoError(t, err)
	assert.True(t, other.IsDefault)
}

func TestAddressUsecase_Create_Invalid(t *testing.T) {
	f := newFixture()
	_, err := f.addressBook().Create(context.Background(), buyer(1), AddressInput{FullName: "No phone"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.addressBook().Create(context.Background(), buyer(0), addressInput("x"))
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestAddressUsecase_SetDefault(t *testing.T) {
	f := newFixture()
	uc := f.addressBook()
	ctx := context.Background()

	first, err := uc.Create(ctx, buyer(1), addressInput("Home"))
	require.NoError(t, err)
	second, err := uc.Create(ctx, buyer(1), addressInput("Office"))
	require.NoError(t, err)

	require.NoError(t, uc.SetDefault(ctx, buyer(1), second.ID))

	list, err := uc.List(ctx, buyer(1))
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, a := range list {
		assert.Equal(t, a.ID == second.ID, a.IsDefault)
	}
	assert.NotEqual(t, first.ID, second.ID)
}

// 他人の住所は見えない
func TestAddressUsecase_OtherActor_NotFound(t *testing.T) {
	f := newFixture()
	uc := f.addressBook()
	ctx := context.Background()

	a, err := uc.Create(ctx, buyer(1), addressInput("Home"))
	require.NoError(t, err)

	_, err = uc.Update(ctx, buyer(2), a.ID, addressInput("Hijack"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindNotFound, KindOf(uc.Delete(ctx, buyer(2), a.ID)))
	assert.Equal(t, KindNotFound, KindOf(uc.SetDefault(ctx, seller(1), a.ID)))
}

func TestAddressUsecase_UpdateAndDelete(t *testing.T) {
	f := newFixture()
	uc := f.addressBook()
	ctx := context.Background()

	a, err := uc.Create(ctx, buyer(1), addressInput("Home"))
	require.NoError(t, err)

	updated, err := uc.Update(ctx, buyer(1), a.ID, addressInput("  New Home "))
	require.NoError(t, err)
	assert.Equal(t, "New Home", updated.FullName)
	assert.True(t, updated.IsDefault)

	require.NoError(t, uc.Delete(ctx, buyer(1), a.ID))
	list, err := uc.List(ctx, buyer(1))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddressUsecase_DeleteDefault_PromotesNext(t *testing.T) {
	f := newFixture()
	uc := f.addressBook()
	ctx := context.Background()

	home, err := uc.Create(ctx, buyer(1), addressInput("Home"))
	require.NoError(t, err)
	office, err := uc.Create(ctx, buyer(1), addressInput("Office"))
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, buyer(1), home.ID))

	list, err := uc.List(ctx, buyer(1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, office.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
}
