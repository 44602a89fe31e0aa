package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByOwnerKey(ctx context.Context, ownerKey string) (model.Cart, error)
	FindByOwnerKey(ctx context.Context, ownerKey string) (model.Cart, error)
	//明細を全削除（カート自体は残す）
	Clear(ctx context.Context, cartID int64) error
}
