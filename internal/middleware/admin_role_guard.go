package middleware

import (
	"github.com/labstack/echo/v4"
)

// contextに入っている主体が管理者かどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return unauthorized(c)
			}

			//管理者だけ許可
			if !actor.IsAdmin {
				return forbidden(c, "admin only")
			}

			return next(c)
		}
	}
}

// 出品者アカウント（または管理者）だけ通す
func SellerGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return unauthorized(c)
			}
			if !actor.IsSeller() && !actor.IsAdmin {
				return forbidden(c, "seller only")
			}
			return next(c)
		}
	}
}
