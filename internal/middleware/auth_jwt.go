package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"shopcore/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const CtxActorKey = "actor" // model.Actor

const roleAdmin = "ADMIN"

// bearerAuth用のJWT検証ミドルウェア。
// トークンは別サービスが発行する（sub / kind / role）。
func AuthJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return unauthorized(c)
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return unauthorized(c)
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return unauthorized(c)
			}

			//JWTをパースして検証する（exp もここで見る）
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return key, nil
			})
			if err != nil || token == nil || !token.Valid {
				return unauthorized(c)
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c)
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				return unauthorized(c)
			}

			//contextへ保存
			c.Set(CtxActorKey, actor)

			return next(c)
		}
	}
}

// AuthJWTが入れた主体を取り出す
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(CtxActorKey).(model.Actor)
	if !ok || !a.Valid() {
		return model.Actor{}, false
	}
	return a, true
}

// kind が無ければ購入者。role=ADMIN なら管理者。
func actorFromClaims(claims jwt.MapClaims) (model.Actor, error) {
	id, err := parseID(claims["sub"])
	if err != nil || id <= 0 {
		return model.Actor{}, errors.New("invalid sub")
	}

	kind := model.ActorBuyer
	if v, ok := claims["kind"]; ok {
		s, ok := v.(string)
		if !ok {
			return model.Actor{}, errors.New("invalid kind")
		}
		kind = model.ActorKind(strings.ToLower(strings.TrimSpace(s)))
		if !kind.Valid() {
			return model.Actor{}, errors.New("invalid kind")
		}
	}

	role, _ := claims["role"].(string)

	return model.Actor{
		ID:      id,
		Kind:    kind,
		IsAdmin: strings.EqualFold(role, roleAdmin),
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Kind: "UNAUTHORIZED"})
}

func forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg, Kind: "FORBIDDEN"})
}

// subをint64に変換する
func parseID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}
