package e2e

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api"
	"github.com/sanosuguru/go-citizen-card-booking/internal/api/handler"
	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/config"
	"github.com/sanosuguru/go-citizen-card-booking/internal/infrastructure/memory"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/keylock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo        *echo.Echo
	Clock       *clock.Fake
	Coordinator *application.BookingCoordinator
	Seats       *application.SeatLockManager
}

var (
	testServer *TestServer
	baseTime   = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

// TestMain はE2Eテストのエントリポイント
// インメモリのストレージとロックで本番と同じルーティングを組み立てる
func TestMain(m *testing.M) {
	testServer = newTestServer()
	os.Exit(m.Run())
}

func newTestServer() *TestServer {
	clk := clock.NewFake(baseTime)
	mt := metrics.NewWithRegistry(prometheus.NewRegistry())
	locker := application.WithLockMetrics(keylock.New(), mt)

	showtimeRepo := memory.NewShowtimeRepository()
	seatRepo := memory.NewSeatRepository()

	seats := application.NewSeatLockManager(seatRepo, locker, clk, nil, mt)
	showtimes := application.NewShowtimeService(showtimeRepo, seatRepo, nil, clk)
	discounts := application.NewDiscountTracker(memory.NewDiscountRepository(), locker, clk)
	ledger := application.NewWalletLedger(memory.NewWalletRepository(), locker, clk, application.SpendPolicy{
		Window: 24 * time.Hour,
		Limit:  decimal.NewFromInt(100000),
	}, mt)
	coordinator := application.NewBookingCoordinator(application.CoordinatorDeps{
		Bookings:  memory.NewBookingRepository(),
		Showtimes: showtimeRepo,
		Seats:     seats,
		Discounts: discounts,
		Wallet:    ledger,
		Locker:    locker,
		Clock:     clk,
		Metrics:   mt,
	}, application.CoordinatorConfig{HoldTTL: 10 * time.Minute})

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, config.AuthConfig{}, mt)

	handler.RegisterRoutes(e, handler.Handlers{
		Health:    handler.NewHealthHandler(nil),
		Bookings:  handler.NewBookingHandler(coordinator),
		Showtimes: handler.NewShowtimeHandler(showtimes, seats),
		Wallet:    handler.NewWalletHandler(ledger),
		Discounts: handler.NewDiscountHandler(discounts),
	})

	return &TestServer{Echo: e, Clock: clk, Coordinator: coordinator, Seats: seats}
}

// getTestServer は共有サーバーを取得する
func getTestServer(t *testing.T) *TestServer {
	t.Helper()
	if testServer == nil {
		t.Skip("テスト環境が利用できません")
	}
	return testServer
}

// Request はHTTPリクエストを実行する。memberID が空なら未認証
func (s *TestServer) Request(method, path string, body interface{}, memberID string, admin bool) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if memberID != "" {
		req.Header.Set(middleware.HeaderMemberID, memberID)
	}
	if admin {
		req.Header.Set(middleware.HeaderMemberRole, middleware.RoleAdmin)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}
