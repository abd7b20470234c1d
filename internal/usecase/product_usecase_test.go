package usecase

import (
	"context"
	"testing"

	"shopcore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductUsecase_ListPublicProducts_InvalidInput(t *testing.T) {
	f := newFixture()
	uc := f.products()
	ctx := context.Background()
	neg := int64(-1)
	lo, hi := int64(500), int64(100)

	cases := []ListProductsInput{
		{Page: 0, Limit: 10},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 101},
		{Page: 1, Limit: 10, Sort: "random"},
		{Page: 1, Limit: 10, MinPrice: &neg},
		{Page: 1, Limit: 10, MinPrice: &lo, MaxPrice: &hi},
	}
	for _, in := range cases {
		_, err := uc.ListPublicProducts(ctx, in)
		assert.Equal(t, KindValidation, KindOf(err), "%+v", in)
	}
}

func TestProductUsecase_ListPublicProducts_OnlyActive(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	f.addProduct(10, 1000, 5)
	hidden := f.addProduct(10, 1000, 5)
	f.updateProduct(hidden.ID, func(p *model.Product) { p.IsActive = false })

	out, err := f.products().ListPublicProducts(context.Background(), ListProductsInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)

	mine, err := f.products().ListSellerProducts(context.Background(), seller(10), ListProductsInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
}

func TestProductUsecase_GetProductDetail(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)
	uc := f.products()
	ctx := context.Background()

	got, err := uc.GetProductDetail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	f.updateProduct(p.ID, func(p *model.Product) { p.IsActive = false })
	_, err = uc.GetProductDetail(ctx, p.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = uc.GetProductDetail(ctx, 0)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestProductUsecase_CreateProduct(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	f.addSeller(20, false)
	uc := f.products()
	ctx := context.Background()
	in := ProductInput{Name: " Tea ", Price: 300, Stock: 10, IsActive: true}

	p, err := uc.CreateProduct(ctx, seller(10), in)
	require.NoError(t, err)
	assert.Equal(t, "Tea", p.Name)
	assert.Equal(t, int64(10), p.SellerID)

	_, err = uc.CreateProduct(ctx, buyer(10), in)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = uc.CreateProduct(ctx, seller(20), in)
	assert.Equal(t, KindSellerUnavailable, KindOf(err))

	_, err = uc.CreateProduct(ctx, seller(10), ProductInput{Name: "x", Price: 1, Discount: 101})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestProductUsecase_UpdateProduct_StockChangeRecordsAdjustment(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)
	uc := f.products()

	got, err := uc.UpdateProduct(context.Background(), seller(10), p.ID, ProductInput{Name: "Renamed", Price: 900, Discount: 5, Stock: 12, IsActive: true})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(12), got.Stock)
	assert.Equal(t, int64(12), f.store.product(p.ID).Stock)
	assert.Equal(t, int64(900), f.store.product(p.ID).Price)

	require.Len(t, f.store.adjustments, 1)
	assert.Equal(t, int64(7), f.store.adjustments[0].Delta)
	assert.Equal(t, "seller update", f.store.adjustments[0].Reason)
}

func TestProductUsecase_UpdateProduct_OtherSeller_Forbidden(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)

	_, err := f.products().UpdateProduct(context.Background(), seller(11), p.ID, ProductInput{Name: "x", Price: 1, Stock: 1})
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestProductUsecase_DeactivateProduct(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)

	require.NoError(t, f.products().DeactivateProduct(context.Background(), seller(10), p.ID))
	assert.False(t, f.store.product(p.ID).IsActive)
	// 2回目もエラーにしない
	assert.NoError(t, f.products().DeactivateProduct(context.Background(), seller(10), p.ID))
}

func TestProductUsecase_AdminUpdateInventory(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)
	uc := f.products()
	ctx := context.Background()

	require.NoError(t, uc.AdminUpdateInventory(ctx, admin(1), p.ID, 2, "stock count"))

	assert.Equal(t, int64(2), f.store.product(p.ID).Stock)
	require.Len(t, f.store.adjustments, 1)
	assert.Equal(t, int64(-3), f.store.adjustments[0].Delta)
	require.Len(t, f.store.audits, 1)
	assert.Equal(t, model.AuditActionUpdateStock, f.store.audits[0].Action)
	assert.JSONEq(t, `{"stock":5}`, f.store.audits[0].BeforeJSON)
	assert.JSONEq(t, `{"stock":2}`, f.store.audits[0].AfterJSON)
}

func TestProductUsecase_AdminUpdateInventory_Errors(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)
	uc := f.products()
	ctx := context.Background()

	assert.Equal(t, KindForbidden, KindOf(uc.AdminUpdateInventory(ctx, seller(10), p.ID, 2, "x")))
	assert.Equal(t, KindValidation, KindOf(uc.AdminUpdateInventory(ctx, admin(1), p.ID, -1, "x")))
	assert.Equal(t, KindValidation, KindOf(uc.AdminUpdateInventory(ctx, admin(1), p.ID, 1, " ")))
	assert.Equal(t, KindNotFound, KindOf(uc.AdminUpdateInventory(ctx, admin(1), 999, 1, "x")))

	assert.Equal(t, int64(5), f.store.product(p.ID).Stock)
	assert.Empty(t, f.store.audits)
}

func TestProductUsecase_AdminDeleteProduct(t *testing.T) {
	f := newFixture()
	f.addSeller(10, true)
	p := f.addProduct(10, 1000, 5)
	uc := f.products()
	ctx := context.Background()

	o, err := f.checkout().DirectCheckout(ctx, buyer(1), DirectCheckoutInput{ProductID: p.ID, Quantity: 2, ShippingAddress: shippingInput()})
	require.NoError(t, err)

	assert.Equal(t, KindForbidden, KindOf(uc.AdminDeleteProduct(ctx, seller(10), p.ID)))
	require.NoError(t, uc.AdminDeleteProduct(ctx, admin(1), p.ID))

	_, err = uc.GetProductDetail(ctx, p.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindNotFound, KindOf(uc.AdminDeleteProduct(ctx, admin(1), p.ID)))

	require.Len(t, f.store.audits, 1)
	assert.Equal(t, model.AuditActionDeleteProduct, f.store.audits[0].Action)

	// 削除後のキャンセルでも在庫は戻る
	_, err = f.orders().BuyerCancel(ctx, buyer(1), o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.store.deleted[p.ID].Stock)
	assert.Equal(t, int64(0), f.store.deleted[p.ID].SoldCount)
}
