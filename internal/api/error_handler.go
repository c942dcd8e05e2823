package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Status    int    `json:"status"`
	Retryable bool   `json:"retryable"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ドメインのエラーはそのままのコードとステータスで返す
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := toErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Status >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Status),
			zap.String("code", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Status)
	} else {
		err = c.JSON(resp.Status, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toErrorResponse(err error) ErrorResponse {
	if ae, ok := apperror.From(err); ok {
		return ErrorResponse{Error: ae.Message, Code: ae.Code, Status: ae.Status, Retryable: ae.Retryable}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return ErrorResponse{Error: message, Code: httpCode(he.Code), Status: he.Code, Retryable: he.Code >= 500}
	}

	ae := apperror.System(err)
	return ErrorResponse{Error: ae.Message, Code: ae.Code, Status: ae.Status, Retryable: ae.Retryable}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperror.ErrInvalidArgument.Code
	case http.StatusUnauthorized:
		return apperror.ErrUnauthorized.Code
	case http.StatusForbidden:
		return apperror.ErrForbidden.Code
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		return "HTTP_" + strconv.Itoa(status)
	}
}
