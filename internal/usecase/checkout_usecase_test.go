package usecase_test

import (
	"context"
	"errors"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type checkoutMocks struct {
	tx         *TxManagerMock
	cartRepo   *CartRepoMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	txCarts    *CartRepoMock
	txItems    *CartItemRepoMock
	products   *ProductRepoMock
}

func newCheckoutMocks() checkoutMocks {
	m := checkoutMocks{
		tx:         new(TxManagerMock),
		cartRepo:   new(CartRepoMock),
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		txCarts:    new(CartRepoMock),
		txItems:    new(CartItemRepoMock),
		products:   new(ProductRepoMock),
	}
	m.tx.Repos = &TxReposMock{
		orders:     m.orders,
		orderItems: m.orderItems,
		carts:      m.txCarts,
		cartItems:  m.txItems,
		products:   m.products,
	}
	m.tx.On("WithinTx", mock.Anything).Return(nil)
	return m
}

func checkoutInput() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		ShippingAddress: "X",
		ContactName:     "Taro",
		ContactEmail:    "taro@example.com",
		PaymentMethod:   "cod",
	}
}

// カートが無い場合はEMPTY_CARTで注文は作られない
func TestCheckout_AbsentCart_EmptyCart(t *testing.T) {
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{}, repo.ErrNotFound)

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	_, err := uc.Checkout(context.Background(), ownerKey, checkoutInput())
	assertCode(t, err, usecase.CodeEmptyCart)

	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.cartRepo.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

// 明細ゼロのカートも同じくEMPTY_CART
func TestCheckout_EmptyCart(t *testing.T) {
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	_, err := uc.Checkout(context.Background(), ownerKey, checkoutInput())
	assertCode(t, err, usecase.CodeEmptyCart)

	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// シナリオ：(A qty=2 10.00) + (B qty=1 5.00) → 合計25.00、PENDING、2明細、カートは空に
func TestCheckout_Success_SnapshotsAndTotal(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 1, Quantity: 2},
		{CartID: 10, ProductID: 2, Quantity: 1},
	}, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).Return(activeProduct(1, "beans", "10.00"), nil)
	m.products.On("FindByID", mock.Anything, int64(2)).Return(activeProduct(2, "mug", "5.00"), nil)

	m.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.OwnerKey == ownerKey &&
			o.ShippingAddress == "X" &&
			o.Status == model.OrderStatusPending &&
			o.TotalPrice.Equal(decimal.RequireFromString("25.00"))
	})).Return(int64(7), nil)

	m.orderItems.On("CreateBulk", mock.Anything, int64(7), mock.MatchedBy(func(items []model.OrderItem) bool {
		if len(items) != 2 {
			return false
		}
		return items[0].ProductNameSnapshot == "beans" &&
			items[0].UnitPriceSnapshot.Equal(decimal.RequireFromString("10.00")) &&
			items[0].Quantity == 2 &&
			items[1].UnitPriceSnapshot.Equal(decimal.RequireFromString("5.00"))
	})).Return(nil)

	//コミット後にカートを空にする
	m.cartRepo.On("Clear", mock.Anything, int64(10)).Return(nil)

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	out, err := uc.Checkout(ctx, ownerKey, checkoutInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.True(t, out.TotalPrice.Equal(decimal.RequireFromString("25.00")), "total=%s", out.TotalPrice)
	assert.Equal(t, 2, len(out.Items))

	m.orders.AssertExpectations(t)
	m.orderItems.AssertExpectations(t)
	m.cartRepo.AssertExpectations(t)
}

// カート追加後にカタログから消えた商品が1つでもあれば全体が失敗し、注文は作られない
func TestCheckout_VanishedProduct_ProductUnavailable(t *testing.T) {
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 1, Quantity: 2},
		{CartID: 10, ProductID: 2, Quantity: 1},
	}, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).Return(activeProduct(1, "beans", "10.00"), nil)
	m.products.On("FindByID", mock.Anything, int64(2)).Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	_, err := uc.Checkout(context.Background(), ownerKey, checkoutInput())
	assertCode(t, err, usecase.CodeProductUnavailable)

	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.cartRepo.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

// 非公開に切り替わった商品も同じ扱い
func TestCheckout_InactiveProduct_ProductUnavailable(t *testing.T) {
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 1, Quantity: 1},
	}, nil)

	p := activeProduct(1, "beans", "10.00")
	p.IsActive = false
	m.products.On("FindByID", mock.Anything, int64(1)).Return(p, nil)

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	_, err := uc.Checkout(context.Background(), ownerKey, checkoutInput())
	assertCode(t, err, usecase.CodeProductUnavailable)
}

// カート掃除の失敗は注文を巻き戻さない
func TestCheckout_CartClearFailure_OrderStillCommitted(t *testing.T) {
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 1, Quantity: 1},
	}, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).Return(activeProduct(1, "beans", "10.00"), nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(int64(8), nil)
	m.orderItems.On("CreateBulk", mock.Anything, int64(8), mock.Anything).Return(nil)

	m.cartRepo.On("Clear", mock.Anything, int64(10)).Return(errors.New("db down"))

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	out, err := uc.Checkout(context.Background(), ownerKey, checkoutInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(8), out.ID)
}

// 冪等ではない：1回目が成功してカートが空になった後の2回目はEMPTY_CART
func TestCheckout_SecondCallAfterSuccess_EmptyCart(t *testing.T) {
	ctx := context.Background()
	m := newCheckoutMocks()

	//1回目
	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 1, Quantity: 1},
	}, nil).Once()
	m.products.On("FindByID", mock.Anything, int64(1)).Return(activeProduct(1, "beans", "10.00"), nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(int64(9), nil).Once()
	m.orderItems.On("CreateBulk", mock.Anything, int64(9), mock.Anything).Return(nil).Once()
	m.cartRepo.On("Clear", mock.Anything, int64(10)).Return(nil).Once()

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	out, err := uc.Checkout(ctx, ownerKey, checkoutInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)

	//2回目はカートが空
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil).Once()

	_, err = uc.Checkout(ctx, ownerKey, checkoutInput())
	assertCode(t, err, usecase.CodeEmptyCart)

	//注文は1回目の1件だけ
	m.orders.AssertNumberOfCalls(t, "Create", 1)
}

// 配送先なしは入力エラー。NOT_FOUNDやEMPTY_CARTに化けない。
func TestCheckout_MissingShippingAddress_InvalidInput(t *testing.T) {
	m := newCheckoutMocks()

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	in := checkoutInput()
	in.ShippingAddress = ""
	_, err := uc.Checkout(context.Background(), ownerKey, in)

	assertCode(t, err, usecase.CodeInvalidInput)
	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestCheckout_OrderCreateFailure_Aborts(t *testing.T) {
	m := newCheckoutMocks()

	m.txCarts.On("FindByOwnerKey", mock.Anything, ownerKey).Return(model.Cart{ID: 10}, nil)
	m.txItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 1, Quantity: 1},
	}, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).Return(activeProduct(1, "beans", "10.00"), nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	uc := usecase.NewCheckoutUsecase(m.tx, m.cartRepo, nil)

	_, err := uc.Checkout(context.Background(), ownerKey, checkoutInput())
	assertCode(t, err, usecase.CodePersistenceFailure)

	//注文が確定していないのでカートは触らない
	m.cartRepo.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}
