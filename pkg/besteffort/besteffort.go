// Package besteffort 包装"失败只记日志不影响主流程"的写操作。
//
// 调用方拿到 Outcome 后自行决定如何体现（计数、回显到响应），
// 但不会因为它而返回错误。
package besteffort

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/metrics"
)

type Outcome struct {
	Op  string
	Err error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Do 执行 fn；panic 也按失败处理
func Do(ctx context.Context, op string, fn func(ctx context.Context) error) (out Outcome) {
	out.Op = op
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
		}
		if out.Err != nil {
			metrics.BestEffortFailures.WithLabelValues(op).Inc()
			logger.Warn(ctx, "best-effort write failed", zap.String("op", op), zap.Error(out.Err))
		}
	}()
	out.Err = fn(ctx)
	return out
}

// Tally 汇总一批 Outcome 的失败数
func Tally(outs ...Outcome) (failed int) {
	for _, o := range outs {
		if !o.OK() {
			failed++
		}
	}
	return failed
}
