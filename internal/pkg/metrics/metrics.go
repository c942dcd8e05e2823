package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約リクエストの結果（result: confirmed, availability, discount, funds, ...）
	BookingsTotal *prometheus.CounterVec

	// 座席確保の結果（result: held, conflict, error）
	SeatHoldsTotal *prometheus.CounterVec

	// ウォレット操作（operation: debit/credit/transfer/reverse, result）
	WalletOperationsTotal *prometheus.CounterVec

	// キーロックの待ち時間（scope: seat/discount/wallet/member）
	LockWaitDuration *prometheus.HistogramVec

	// サガの補償実行回数（step, result）
	SagaCompensationsTotal *prometheus.CounterVec

	// 期限切れで解放した件数（kind: hold, booking）
	ExpiredTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking attempts by result",
			},
			[]string{"result"},
		),
		SeatHoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_holds_total",
				Help: "Total number of seat hold attempts by result",
			},
			[]string{"result"},
		),
		WalletOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_operations_total",
				Help: "Total number of wallet ledger operations",
			},
			[]string{"operation", "result"},
		),
		LockWaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lock_wait_seconds",
				Help:    "Time spent waiting for keyed locks",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"scope"},
		),
		SagaCompensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saga_compensations_total",
				Help: "Total number of compensating actions executed",
			},
			[]string{"step", "result"},
		),
		ExpiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expired_total",
				Help: "Total number of expired holds and bookings swept",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.SeatHoldsTotal,
		m.WalletOperationsTotal,
		m.LockWaitDuration,
		m.SagaCompensationsTotal,
		m.ExpiredTotal,
	)

	return m
}

// NewNoop はどこにも登録しないメトリクスを作成する（テスト・ライブラリ利用向け）
func NewNoop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
