// Package saga は補償付きステップ列を順に実行する。
// 途中のステップが失敗した場合、完了済みのステップを逆順に補償する。
package saga

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Step はサガの1ステップ
// Compensate は nil でもよい（補償不要なステップ）
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError はステップ失敗の詳細
type StepError struct {
	Step string
	Err  error
	// Compensation は補償処理で発生したエラー（複数の場合は結合される）
	Compensation error
}

func (e *StepError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("step %s: %v (compensation: %v)", e.Step, e.Err, e.Compensation)
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

// Unwrap は元のステップエラーを返す。補償エラーで業務エラーを隠さない
func (e *StepError) Unwrap() error {
	return e.Err
}

// Option は Runner の設定
type Option func(*Runner)

// WithLogger はログ出力先を設定する
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithCompensationHook は補償を実行するたびに呼ばれる関数を設定する
func WithCompensationHook(fn func(step string, err error)) Option {
	return func(r *Runner) { r.onCompensate = fn }
}

// Runner はサガを実行する
type Runner struct {
	log          *zap.Logger
	onCompensate func(step string, err error)
}

// NewRunner は新しい Runner を作成する
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run はステップを順に実行する
// 補償は呼び出し元のキャンセルに影響されないコンテキストで実行する
func (r *Runner) Run(ctx context.Context, name string, steps []Step) error {
	log := r.log.With(zap.String("saga", name))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, log, steps[:i], step.Name, err)
		}
		log.Debug("ステップ実行", zap.String("step", step.Name))
		if err := step.Action(ctx); err != nil {
			return r.fail(ctx, log, steps[:i], step.Name, err)
		}
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, log *zap.Logger, done []Step, failed string, cause error) error {
	log.Warn("ステップ失敗、補償を開始", zap.String("step", failed), zap.Error(cause))

	cctx := context.WithoutCancel(ctx)
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		err := step.Compensate(cctx)
		if r.onCompensate != nil {
			r.onCompensate(step.Name, err)
		}
		if err != nil {
			log.Error("補償失敗", zap.String("step", step.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		log.Info("補償完了", zap.String("step", step.Name))
	}

	return &StepError{Step: failed, Err: cause, Compensation: errors.Join(errs...)}
}
