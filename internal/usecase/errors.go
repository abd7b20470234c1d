package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 機械的に判定できるエラー種別
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindSellerUnavailable ErrorKind = "SELLER_UNAVAILABLE"
	KindSelfPurchase      ErrorKind = "SELF_PURCHASE_FORBIDDEN"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindConflict          ErrorKind = "CONFLICT"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindInternal          ErrorKind = "INTERNAL"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:        http.StatusBadRequest,
	KindNotFound:          http.StatusNotFound,
	KindInsufficientStock: http.StatusBadRequest,
	KindSellerUnavailable: http.StatusBadRequest,
	KindSelfPurchase:      http.StatusForbidden,
	KindForbidden:         http.StatusForbidden,
	KindInvalidTransition: http.StatusBadRequest,
	KindConflict:          http.StatusConflict,
	KindUnauthorized:      http.StatusUnauthorized,
	KindInternal:          http.StatusInternalServerError,
}

type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

// ステータスから種別を決める
func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Kind:    kindFromStatus(status),
		Message: message,
	}
}

func NewKindError(kind ErrorKind, message string) error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &HTTPError{
		Status:  status,
		Kind:    kind,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// HTTPError以外は INTERNAL
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if he, ok := AsHTTPError(err); ok {
		return he.Kind
	}
	return KindInternal
}

func kindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindInternal
	}
}

func errValidation(msg string) error { return NewKindError(KindValidation, msg) }
func errNotFound(msg string) error   { return NewKindError(KindNotFound, msg) }
func errForbidden() error            { return NewKindError(KindForbidden, "forbidden") }
func errUnauthorized() error         { return NewKindError(KindUnauthorized, "unauthorized") }
func errConflict(msg string) error   { return NewKindError(KindConflict, msg) }
func errDB() error                   { return NewKindError(KindInternal, "db error") }

func errInsufficientStock(msg string) error {
	return NewKindError(KindInsufficientStock, msg)
}

func errSellerUnavailable() error {
	return NewKindError(KindSellerUnavailable, "seller unavailable")
}

func errInvalidTransition(from, to string) error {
	return NewKindError(KindInvalidTransition, fmt.Sprintf("cannot change order status from %q to %q", from, to))
}
