package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"shopcore/internal/domain/model"
	"shopcore/internal/usecase"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

// どの項目がなぜ不正か
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

// 数字・+・-・空白・括弧のみ（8〜20文字）
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-\s()]{6,18}[0-9]$`)

type commerceValidator struct{}

// Usecaseは interface を依存注入
func NewCommerceValidator() usecase.CommerceValidator {
	return &commerceValidator{}
}

// 配送先の必須チェック
func (v *commerceValidator) ValidateShipping(a model.ShippingAddress) error {
	if strings.TrimSpace(a.FullName) == "" {
		return invalid("full_name", "shipping full name is required")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return invalid("phone", "shipping phone is required")
	}
	if !phonePattern.MatchString(strings.TrimSpace(a.Phone)) {
		return invalid("phone", "shipping phone is invalid")
	}
	if strings.TrimSpace(a.Street) == "" {
		return invalid("address", "shipping address is required")
	}
	if utf8.RuneCountInString(a.Note) > 500 {
		return invalid("note", "shipping note is too long")
	}
	return nil
}

// キャンペーン入力（商品の所有・価格・在庫はusecase側でDBを見て確認）
func (v *commerceValidator) ValidateCampaign(in usecase.FlashSaleInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "name is required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return invalid("name", "name is too long")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return invalid("start_time", "start_time and end_time are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return invalid("end_time", "end_time must be after start_time")
	}
	if len(in.Products) == 0 {
		return invalid("products", "at least one product is required")
	}

	seen := make(map[int64]bool, len(in.Products))
	for _, p := range in.Products {
		if p.ProductID <= 0 {
			return invalid("products", "invalid product_id")
		}
		if seen[p.ProductID] {
			return invalid("products", "duplicate product in campaign")
		}
		seen[p.ProductID] = true
		if p.SalePrice <= 0 {
			return invalid("products", "sale_price must be positive")
		}
		if p.StockLimit < 1 {
			return invalid("products", "stock_limit must be at least 1")
		}
	}
	return nil
}
