package usecase

import (
	repo "app/internal/repository"
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// カート明細の数量はこの範囲に収める。0は「削除」であって保存しない。
const (
	MinLineQuantity int64 = 1
	MaxLineQuantity int64 = 100
)

// CartUsecase は /cart の業務ロジックです。
// Repositoryは Cart と CartItem を分離して受け取ります。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// 表示用の明細。nameとpriceとimage_urlは「今の」カタログの値。
type CartItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int64           `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得。無いカート・空のカートは空レスポンス（エラーではない）。
func (u *CartUsecase) GetCart(ctx context.Context, ownerKey string) (CartResponse, error) {
	if ownerKey == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}

	cart, err := u.cartRepo.FindByOwnerKey(ctx, ownerKey)
	if err == repo.ErrNotFound {
		return CartResponse{Items: []CartItemResponse{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// AddItem はカートに追加（同一商品は数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, ownerKey string, in AddCartInput) (CartResponse, error) {
	if ownerKey == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}
	if in.Quantity < MinLineQuantity || in.Quantity > MaxLineQuantity {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidQuantity, "invalid quantity")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}

	// カート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateByOwnerKey(ctx, ownerKey)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	// Upsert（同一商品は加算）。既存数量＋追加分の上限チェックは
	// 行ロックを取るリポジトリ側で行う。別トランザクションで読んだ値では
	// 同時追加に対して上限を守れない。
	if err := u.cartItemRepo.UpsertAddQuantity(ctx, cart.ID, in.ProductID, in.Quantity, MaxLineQuantity); err != nil {
		if err == repo.ErrQuantityLimit {
			//黙って100に丸めない
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidQuantity, "quantity limit exceeded")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更。明細はproduct_idで特定する。
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, ownerKey string, productID int64, in UpdateCartItemInput) (CartResponse, error) {
	if ownerKey == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}
	if in.Quantity < MinLineQuantity || in.Quantity > MaxLineQuantity {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidQuantity, "invalid quantity")
	}

	cart, err := u.cartRepo.FindByOwnerKey(ctx, ownerKey)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeItemNotFound, "item not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	if err := u.cartItemRepo.UpdateQuantityByProduct(ctx, cart.ID, productID, in.Quantity); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeItemNotFound, "item not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 明細削除。カート自体は空になっても残す。
func (u *CartUsecase) RemoveItem(ctx context.Context, ownerKey string, productID int64) (CartResponse, error) {
	if ownerKey == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}

	cart, err := u.cartRepo.FindByOwnerKey(ctx, ownerKey)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeItemNotFound, "item not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	if err := u.cartItemRepo.DeleteByProduct(ctx, cart.ID, productID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeItemNotFound, "item not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細とカタログの現在値をまとめてCartResponseを作る。
// カタログから消えた商品は表示からは外す（注文確定はCheckoutUsecase側で全件失敗させる）。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			//カタログから消えた商品だけ表示から外す
			continue
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}
		if !p.IsActive {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			ImageURL:  p.ImageURL,
			Quantity:  it.Quantity,
		})

		total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	return CartResponse{Items: respItems, Total: total}, nil
}
