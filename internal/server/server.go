package server

import (
	"app/internal/config"
	"app/internal/handler"
	"app/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// echoのValidatorとしてgo-playground/validatorを挟む
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type Handlers struct {
	Cart       *handler.CartHandler
	Checkout   *handler.CheckoutHandler
	AdminOrder *handler.AdminOrderHandler
}

// New はechoを組み立てて返す。起動はStartで。
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(echomw.Recover())

	registerRoutes(e, cfg, h)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}

func registerRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(200)
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	h.Cart.RegisterRoutes(e, cfg)
	h.Checkout.RegisterRoutes(e, cfg)
	h.AdminOrder.RegisterRoutes(e, cfg)
}
