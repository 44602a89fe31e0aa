package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutUsecase はカート→注文の変換を担当する。
// 注文と明細の作成は1トランザクション。カートの掃除はコミット後のベストエフォート。
type CheckoutUsecase struct {
	tx       repo.TransactionManager
	cartRepo repo.CartRepository
	logger   *zap.Logger
}

func NewCheckoutUsecase(tx repo.TransactionManager, cartRepo repo.CartRepository, logger *zap.Logger) *CheckoutUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutUsecase{tx: tx, cartRepo: cartRepo, logger: logger}
}

type CheckoutInput struct {
	ShippingAddress string
	ContactName     string
	ContactEmail    string
	PaymentMethod   string
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	OwnerKey        string            `json:"owner_key"`
	ShippingAddress string            `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	Status          string            `json:"status"`
	TotalPrice      decimal.Decimal   `json:"total_price"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemOutput `json:"items"`
}

// Checkout は同じカートで2回呼べば2つの注文を作る（冪等化はしない）。
// 1回目が成功していればカートは空なので、2回目は EMPTY_CART で落ちる。
func (u *CheckoutUsecase) Checkout(ctx context.Context, ownerKey string, in CheckoutInput) (OrderOutput, error) {
	if ownerKey == "" {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if in.ShippingAddress == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "shipping address required")
	}

	metrics.CheckoutAttempts.Inc()

	var out OrderOutput
	var cartID int64

	//注文＋明細の作成はトランザクション。部分的な注文は絶対に見せない。
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByOwnerKey(ctx, ownerKey)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, CodeEmptyCart, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}
		cartID = cart.ID

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, CodeEmptyCart, "cart empty")
		}

		//全明細の商品を「今」引き直す。1つでも消えていたら注文全体を失敗させる。
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total := decimal.Zero

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusConflict, CodeProductUnavailable, "product unavailable")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusConflict, CodeProductUnavailable, "product unavailable")
			}

			//スナップショットは注文確定時点の価格。カート追加時の表示価格ではない。
			now := time.Now()
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			total = total.Add(p.Price.Mul(decimal.NewFromInt(ci.Quantity)))
		}

		// 注文作成
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			OwnerKey:        ownerKey,
			ShippingAddress: in.ShippingAddress,
			ContactName:     in.ContactName,
			ContactEmail:    in.ContactEmail,
			PaymentMethod:   in.PaymentMethod,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		created := model.Order{
			ID:              orderID,
			OwnerKey:        ownerKey,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
			CreatedAt:       now,
		}
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		metrics.CheckoutFailures.Inc()
		return OrderOutput{}, err
	}

	//コミット後にカートを空にする。失敗しても注文は確定済みなので巻き戻さない。
	if err := u.cartRepo.Clear(ctx, cartID); err != nil {
		metrics.CartClearFailures.Inc()
		u.logger.Warn("cart clear after checkout failed",
			zap.Int64("cart_id", cartID),
			zap.Int64("order_id", out.ID),
			zap.Error(err),
		)
	}

	metrics.OrdersPlaced.Inc()
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OwnerKey:        o.OwnerKey,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Status:          string(o.Status),
		TotalPrice:      o.TotalPrice,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
