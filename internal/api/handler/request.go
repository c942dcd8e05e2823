package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// bind はリクエストボディを読み込んで検証する
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Invalid("無効なリクエストです")
	}
	return c.Validate(req)
}

// paging は limit と offset のクエリを読む。未指定なら0
func paging(c echo.Context) (limit, offset int, err error) {
	if limit, err = intQuery(c, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intQuery(c, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intQuery(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperror.Invalid("%s は0以上の整数で指定してください", name)
	}
	return n, nil
}

// splitLabels はカンマ区切りの座席ラベルを分割する
func splitLabels(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
