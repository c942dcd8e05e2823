package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

const (
	// HeaderMemberID は信頼できるゲートウェイが付与する会員ID
	HeaderMemberID = "X-Member-ID"
	// HeaderMemberRole は信頼できるゲートウェイが付与するロール
	HeaderMemberRole = "X-Member-Role"

	RoleMember = "member"
	RoleAdmin  = "admin"

	ctxMemberID = "member_id"
	ctxRole     = "role"
)

var errInvalidToken = apperror.ErrUnauthorized.WithMessage("トークンが不正です")

// Identity はリクエストの会員IDとロールを解決するミドルウェア
// secret があれば HS256 の Bearer トークンを検証し、なければゲートウェイのヘッダーを信頼する
// 認証情報がなくてもエラーにはせず、必須かどうかは RequireMember / RequireAdmin が判断する
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				setIdentity(c, c.Request().Header.Get(HeaderMemberID), c.Request().Header.Get(HeaderMemberRole))
				return next(c)
			}

			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return next(c)
			}
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				return errInvalidToken
			}
			sub, role, err := parseToken(raw, secret)
			if err != nil {
				return errInvalidToken
			}
			setIdentity(c, sub, role)
			return next(c)
		}
	}
}

func parseToken(raw, secret string) (sub, role string, err error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", jwt.ErrTokenInvalidClaims
	}
	sub, err = claims.GetSubject()
	if err != nil || sub == "" {
		return "", "", jwt.ErrTokenInvalidSubject
	}
	role, _ = claims["role"].(string)
	return sub, role, nil
}

func setIdentity(c echo.Context, memberID, role string) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return
	}
	if role == "" {
		role = RoleMember
	}
	c.Set(ctxMemberID, memberID)
	c.Set(ctxRole, role)
}

// MemberID は認証済みの会員IDを返す。未認証なら空
func MemberID(c echo.Context) string {
	id, _ := c.Get(ctxMemberID).(string)
	return id
}

// IsAdmin は管理者ロールかを返す
func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(ctxRole).(string)
	return role == RoleAdmin
}

// RequireMember は会員の認証を必須にする
func RequireMember() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if MemberID(c) == "" {
				return apperror.ErrUnauthorized
			}
			return next(c)
		}
	}
}

// RequireAdmin は管理者ロールを必須にする
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if MemberID(c) == "" {
				return apperror.ErrUnauthorized
			}
			if !IsAdmin(c) {
				return apperror.ErrForbidden
			}
			return next(c)
		}
	}
}
