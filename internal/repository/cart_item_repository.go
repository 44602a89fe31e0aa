package repository

import (
	"context"

	"app/internal/domain/model"
)

// カート明細はすべて (cart_id, product_id) で一意。
// 変更系は carts.last_modified_at も更新する。
type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一商品はプラス。加算後の数量が maxQty を超えるなら ErrQuantityLimit。
	// 上限チェックは加算と同じロックの中で行う。
	UpsertAddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64, maxQty int64) error
	UpdateQuantityByProduct(ctx context.Context, cartID int64, productID int64, qty int64) error
	DeleteByProduct(ctx context.Context, cartID int64, productID int64) error
}
