package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")

	// カート明細の数量上限超過
	ErrQuantityLimit = errors.New("quantity limit exceeded")
)

// カタログ参照の約束。カートと注文はこのインターフェース越しにだけ商品を引く。
// 実装はGORMでもテスト用モックでも差し替え可能。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
