package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// カートから注文を作る POST /orders
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

// 決済は扱わない。payment_method はラベルとして記録するだけ。
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=250"`
	ContactName     string `json:"contact_name" validate:"required,max=100"`
	ContactEmail    string `json:"contact_email" validate:"required,email,max=100"`
	PaymentMethod   string `json:"payment_method" validate:"max=50"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.OwnerKey(cfg))

	g.POST("", h.checkout)
}

func (h *CheckoutHandler) checkout(c echo.Context) error {
	ownerKey, ok := middleware.GetOwnerKey(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeForbidden})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeInvalidInput})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeInvalidInput})
	}

	out, err := h.uc.Checkout(c.Request().Context(), ownerKey, usecase.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}
