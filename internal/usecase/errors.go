package usecase

import (
	"errors"
	"fmt"
)

// 失敗の種類はHTTPステータスだけでなく安定したコードで返す。
// クライアントは code で機械判定できる。
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeItemNotFound       = "ITEM_NOT_FOUND"
	CodeEmptyCart          = "EMPTY_CART"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
)

type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
