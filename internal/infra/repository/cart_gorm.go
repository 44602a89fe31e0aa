package repository

import (
	"app/internal/domain/model"
	repo "app/internal/repository"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository と CartItemRepository を1つの実装でまかなう。
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// オーナーキーのカートを取得し、無ければ作成。
// 同時の初回アクセスはON CONFLICT DO NOTHINGで片方だけINSERTさせ、
// 負けた側は勝った行を読み直す。unique違反後のトランザクションは
// abort済みで再検索できないので、トランザクション内リトライにはしない。
func (r *CartGormRepository) GetOrCreateByOwnerKey(ctx context.Context, ownerKey string) (model.Cart, error) {

	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		First(&cart).Error

	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, err
	}

	// 無ければ作る
	now := time.Now()
	newCart := model.Cart{
		OwnerKey:       ownerKey,
		CreatedAt:      now,
		LastModifiedAt: now,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_key"}},
			DoNothing: true,
		}).
		Create(&newCart)
	if res.Error != nil {
		return model.Cart{}, res.Error
	}
	if res.RowsAffected > 0 {
		return newCart, nil
	}

	//同時作成で負けた側。勝った行を読む。
	if err := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		First(&cart).Error; err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// オーナーキーのカートを取得
func (r *CartGormRepository) FindByOwnerKey(ctx context.Context, ownerKey string) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// 指定カートの明細を全削除（カート行は残す）
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrNotFound
			}
			return err
		}

		//cart_itemsを全削除
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		return touchCart(tx, cartID)
	})
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一商品は数量加算。上限チェックは行ロック済みの読み取りに対して行う。
// 別トランザクションで読んだ数量では同時追加に対して上限を守れない。
func (r *CartGormRepository) UpsertAddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64, maxQty int64) error {

	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			newQty := item.Quantity + addQty
			if newQty > maxQty {
				return repo.ErrQuantityLimit
			}

			res := tx.Model(&model.CartItem{}).
				Where("id = ?", item.ID).
				Update("quantity", newQty)

			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			return touchCart(tx, cartID)
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		if addQty > maxQty {
			return repo.ErrQuantityLimit
		}
		now := time.Now()
		newItem := model.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  addQty,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := tx.Create(&newItem).Error; err != nil {
			return err
		}

		return touchCart(tx, cartID)
	})
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateQuantityByProduct(ctx context.Context, cartID int64, productID int64, qty int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Update("quantity", qty)

		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return touchCart(tx, cartID)
	})
}

// 明細を削除
func (r *CartGormRepository) DeleteByProduct(ctx context.Context, cartID int64, productID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Delete(&model.CartItem{})

		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return touchCart(tx, cartID)
	})
}

// 変更系は必ずカートのlast_modified_atを更新する
func touchCart(tx *gorm.DB, cartID int64) error {
	return tx.Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("last_modified_at", time.Now()).Error
}
