package middleware

import (
	"net/http"
	"time"

	"app/internal/config"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const guestSessionCookie = "guest_session"

// カート・チェックアウト用のオーナーキー解決。
// ログイン済みなら "user:<sub>"、匿名なら "guest:<uuid>"（cookieで固定）。
// どのリクエストも必ずオーナーキーを持つので、以降の層で「誰のカートか」が曖昧にならない。
func OwnerKey(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Bearerがあれば検証する。不正なトークンは匿名扱いにせず401。
			if c.Request().Header.Get("Authorization") != "" {
				sub, role, err := parseBearer(c, cfg)
				if err != nil {
					return c.JSON(http.StatusUnauthorized, errorJSON("FORBIDDEN", "unauthorized"))
				}
				c.Set(CtxOwnerKeyKey, "user:"+sub)
				c.Set(CtxUserRoleKey, role)
				return next(c)
			}

			//匿名はcookieのセッションIDでカートを紐づける
			cookie, err := c.Cookie(guestSessionCookie)
			if err == nil && cookie.Value != "" {
				if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					c.Set(CtxOwnerKeyKey, "guest:"+cookie.Value)
					return next(c)
				}
			}

			//初回アクセスはセッションIDを払い出す
			id := uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     guestSessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(30 * 24 * time.Hour),
			})
			c.Set(CtxOwnerKeyKey, "guest:"+id)

			return next(c)
		}
	}
}

// contextからオーナーキーを取り出す
func GetOwnerKey(c echo.Context) (string, bool) {
	v, ok := c.Get(CtxOwnerKeyKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
