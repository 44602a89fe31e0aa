package middleware

import (
	"errors"
	"net/http"
	"strings"

	"app/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxOwnerKeyKey = "owner_key" // string（"user:<sub>" か "guest:<uuid>"）
	CtxUserRoleKey = "user_role" // string
)

// bearerAuth用のJWT検証ミドルウェア。認証必須のルートで使う。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, role, err := parseBearer(c, cfg)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("FORBIDDEN", "unauthorized"))
			}

			//contextへ保存
			c.Set(CtxOwnerKeyKey, "user:"+sub)
			c.Set(CtxUserRoleKey, role)

			return next(c)
		}
	}
}

// AuthorizationヘッダからJWTを検証して (sub, role) を返す。
func parseBearer(c echo.Context, cfg config.Config) (string, string, error) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return "", "", errors.New("missing authorization header")
	}

	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "", errors.New("not bearer")
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return "", "", errors.New("empty token")
	}

	//JWTをパースして検証する
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", "", errors.New("invalid sub")
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", "", errors.New("invalid role")
	}

	return sub, role, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func errorJSON(code string, msg string) errorResponse {
	return errorResponse{Error: msg, Code: code}
}
